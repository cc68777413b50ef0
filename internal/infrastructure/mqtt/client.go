package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/devtrack/internal/infrastructure/config"
)

// Logger is the logging interface used by Client.
// Satisfied by *logging.Logger and *slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler receives one message. Handlers run on paho goroutines and
// should return quickly; a returned error is logged and otherwise ignored.
type MessageHandler func(topic string, payload []byte) error

// subscription is remembered so it can be replayed after a reconnect.
type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is a devtrack connection to an MQTT broker.
//
// It announces itself on the retained system status topic (with a will for
// unexpected disconnects) and replays its subscriptions whenever paho
// reconnects. All methods are safe for concurrent use.
type Client struct {
	paho   pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics

	connected atomic.Bool

	mu           sync.Mutex
	subs         map[string]subscription
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Connect dials the broker configured in cfg and waits for the first
// CONNACK. Later connection losses are retried in the background with
// exponential backoff between cfg.Reconnect.InitialDelay and MaxDelay.
//
// Returns an error wrapping ErrConnectionFailed if the broker does not
// accept the connection within the connect timeout.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		topics: Topics{Prefix: cfg.TopicPrefix},
		subs:   make(map[string]subscription),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.topics, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleConnectionLost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.log().Warn("MQTT reconnecting", "broker", cfg.Broker.Host)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), defaultConnectTimeout, ErrConnectionFailed); err != nil {
		return nil, err
	}

	// The connect handler runs asynchronously; IsConnected must hold as soon
	// as Connect returns.
	c.connected.Store(true)
	return c, nil
}

// Topics returns the topic layout for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// IsConnected reports whether the broker connection is currently up.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.connected.Load() && c.paho.IsConnected()
}

// HealthCheck returns ErrNotConnected while the connection is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close publishes a graceful offline status and disconnects. Safe to call
// on a client that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}

	if c.IsConnected() {
		payload := buildStatusPayload(statusOffline, c.cfg.Broker.ClientID, reasonShutdown)
		c.paho.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true, payload).WaitTimeout(defaultPublishTimeout) //nolint:gosec // qos validated by config
	}

	c.paho.Disconnect(defaultDisconnectQuiesce)
	c.connected.Store(false)
	return nil
}

// SetOnConnect registers a callback run after every successful (re)connect.
func (c *Client) SetOnConnect(callback func()) {
	c.mu.Lock()
	c.onConnect = callback
	c.mu.Unlock()
}

// SetOnDisconnect registers a callback run when the connection drops.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.mu.Lock()
	c.onDisconnect = callback
	c.mu.Unlock()
}

// SetLogger sets the logger for connection events and handler failures.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.logger == nil {
		return noopLogger{}
	}
	return c.logger
}

// handleConnect runs on a paho goroutine after every CONNACK.
func (c *Client) handleConnect() {
	c.connected.Store(true)

	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, sub := range c.subs {
		subs[topic] = sub
	}
	callback := c.onConnect
	c.mu.Unlock()

	// Clean sessions drop subscriptions on the broker side.
	for topic, sub := range subs {
		token := c.paho.Subscribe(topic, sub.qos, c.dispatch(sub.handler))
		if err := await(token, defaultPublishTimeout, ErrSubscribeFailed); err != nil {
			c.log().Error("MQTT resubscribe failed", "topic", topic, "error", err)
		}
	}

	online := buildStatusPayload(statusOnline, c.cfg.Broker.ClientID, "")
	c.paho.Publish(c.topics.SystemStatus(), byte(c.cfg.QoS), true, online) //nolint:gosec // qos validated by config

	if callback != nil {
		callback()
	}
}

func (c *Client) handleConnectionLost(err error) {
	c.connected.Store(false)

	c.mu.Lock()
	callback := c.onDisconnect
	c.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// dispatch adapts a MessageHandler to paho, recovering panics so one bad
// message cannot take down the paho router.
func (c *Client) dispatch(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log().Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			c.log().Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
		}
	}
}

// await waits for a paho token and wraps any failure in op.
func await(token pahomqtt.Token, timeout time.Duration, op error) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: %w after %v", op, ErrTimeout, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", op, err)
	}
	return nil
}
