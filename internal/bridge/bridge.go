package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/nerrad567/devtrack/internal/device"
	"github.com/nerrad567/devtrack/internal/infrastructure/mqtt"
	"github.com/nerrad567/devtrack/internal/ingest"
	"github.com/nerrad567/devtrack/internal/metrics"
)

// MQTTClient is the interface for MQTT operations.
// Satisfied by *mqtt.Client via an adapter in main.go.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a handler registered with Subscribe.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Reporter applies a position report. Satisfied by *ingest.Service.
type Reporter interface {
	Report(ctx context.Context, source ingest.Source, fields ingest.Fields) error
}

// EventSource delivers registry change events. Satisfied by *device.Registry.
type EventSource interface {
	Subscribe() <-chan device.Event
	Unsubscribe(ch <-chan device.Event)
}

// Logger defines the logging interface used by the Bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options holds the bridge dependencies.
type Options struct {
	MQTTClient MQTTClient
	Reporter   Reporter
	Events     EventSource
	Topics     mqtt.Topics
	QoS        byte
	Logger     Logger
}

// Bridge moves reports in from MQTT and device state out to MQTT.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt     MQTTClient
	reporter Reporter
	events   EventSource
	topics   mqtt.Topics
	qos      byte

	sub        <-chan device.Event
	subscribed bool
	ctx       context.Context
	ctxCancel context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a bridge. Call Start to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Reporter == nil {
		return nil, fmt.Errorf("reporter is required")
	}
	if opts.Events == nil {
		return nil, fmt.Errorf("event source is required")
	}

	return &Bridge{
		mqtt:     opts.MQTTClient,
		reporter: opts.Reporter,
		events:   opts.Events,
		topics:   opts.Topics,
		qos:      opts.QoS,
		logger:   opts.Logger,
	}, nil
}

// Start subscribes to the report topic and begins publishing device state.
// The bridge runs until Stop is called or ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	var err error
	b.startOnce.Do(func() {
		b.ctx, b.ctxCancel = context.WithCancel(ctx)

		// Follow the registry before subscribing so no report that arrives
		// over MQTT is missing from the state topics.
		b.sub = b.events.Subscribe()
		b.wg.Add(1)
		go b.publishLoop()

		topic := b.topics.AllReports()
		if subErr := b.mqtt.Subscribe(topic, b.qos, b.handleReport); subErr != nil {
			err = fmt.Errorf("subscribe to reports: %w", subErr)
			return
		}
		b.subscribed = true
		b.logInfo("subscribed to reports", "topic", topic)
	})
	if err != nil {
		b.Stop()
	}
	return err
}

// Stop halts state publication and waits for the publisher to exit.
func (b *Bridge) Stop() {
	if b.ctxCancel == nil {
		return
	}
	b.stopOnce.Do(func() {
		b.ctxCancel()
		if b.subscribed {
			if err := b.mqtt.Unsubscribe(b.topics.AllReports()); err != nil {
				b.logWarn("unsubscribe from reports failed", "error", err)
			}
		}
		b.events.Unsubscribe(b.sub)
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()
}

// handleReport turns one MQTT message into an ingest report.
func (b *Bridge) handleReport(topic string, payload []byte) {
	if err := b.applyReport(topic, payload); err != nil {
		b.logWarn("mqtt report rejected", "topic", topic, "error", err)
	}
}

func (b *Bridge) applyReport(topic string, payload []byte) error {
	topicID, ok := b.topics.ReportDeviceID(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrInvalidTopic, topic)
	}

	fields, err := ingest.FieldsFromJSON(payload)
	if err != nil {
		metrics.RecordReport(string(ingest.SourceMQTT), metrics.ResultInvalid)
		return err
	}
	if fields[ingest.FieldID].IsZero() {
		fields[ingest.FieldID] = device.StringValue(topicID)
	}

	ctx := b.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return b.reporter.Report(ctx, ingest.SourceMQTT, fields)
}

// publishLoop publishes every registry event until the subscription closes.
func (b *Bridge) publishLoop() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			return
		case ev, ok := <-b.sub:
			if !ok {
				return
			}
			if err := b.publishState(ev.Record); err != nil {
				b.logWarn("failed to publish device state", "id", ev.Record.ID, "error", err)
			}
		}
	}
}

// publishState publishes the retained record of one device.
func (b *Bridge) publishState(rec device.Record) error {
	if rec.ID == "" || strings.ContainsAny(rec.ID, "+#") {
		return fmt.Errorf("%w: %q", ErrUnpublishableID, rec.ID)
	}
	if !b.mqtt.IsConnected() {
		// The next change after reconnecting republishes the full record.
		b.logDebug("skipping state publish while disconnected", "id", rec.ID)
		return nil
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	err = b.mqtt.Publish(b.topics.DeviceState(rec.ID), payload, b.qos, true)
	metrics.RecordMQTTPublish(err)
	return err
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
