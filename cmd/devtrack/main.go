// devtrack - device location tracker
//
// devtrack accepts position reports from phones and other trackers over
// HTTP (and optionally MQTT), keeps the latest position of every device in
// memory, and serves a map page that shows them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/devtrack/internal/api"
	"github.com/nerrad567/devtrack/internal/bridge"
	"github.com/nerrad567/devtrack/internal/device"
	"github.com/nerrad567/devtrack/internal/infrastructure/config"
	"github.com/nerrad567/devtrack/internal/infrastructure/logging"
	"github.com/nerrad567/devtrack/internal/infrastructure/mqtt"
	"github.com/nerrad567/devtrack/internal/ingest"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// configEnvVar names the environment variable holding the config file path.
const configEnvVar = "DEVTRACK_CONFIG"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown after ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting devtrack",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	registry := device.NewRegistry()
	registry.SetLogger(log.Component("registry"))

	service := ingest.NewService(registry)
	service.SetLogger(log.Component("ingest"))

	var mqttHealth api.HealthChecker
	if cfg.MQTT.Enabled {
		mqttClient, reportBridge, mqttErr := startMQTT(ctx, cfg, service, log)
		if mqttErr != nil {
			return mqttErr
		}
		mqttHealth = mqttClient
		// Deferred in reverse: bridge stops before the client disconnects.
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		defer func() {
			log.Info("stopping MQTT bridge")
			reportBridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled")
	}

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Service: service,
		MQTT:    mqttHealth,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening", "address", server.Addr())

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	return nil
}

// getConfigPath returns the configuration file path.
// Uses DEVTRACK_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	return config.DefaultPath
}

// startMQTT connects to the broker and starts the report bridge.
// On error nothing is left running.
func startMQTT(ctx context.Context, cfg *config.Config, service *ingest.Service, log *logging.Logger) (*mqtt.Client, *bridge.Bridge, error) {
	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log.Component("mqtt"))
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	b, err := bridge.New(bridge.Options{
		MQTTClient: &mqttBridgeAdapter{client: client},
		Reporter:   service,
		Events:     service.Registry(),
		Topics:     client.Topics(),
		QoS:        byte(cfg.MQTT.QoS), //nolint:gosec // validated to 0-2 by config
		Logger:     log.Component("bridge"),
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	log.Info("MQTT bridge started", "reports", client.Topics().AllReports())

	return client, b, nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. Infrastructure handlers return an error; bridge
// handlers do not.
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// Unsubscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Unsubscribe(topic string) error {
	return a.client.Unsubscribe(topic)
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
