// Package logging provides structured logging for devtrack.
//
// It wraps the standard log/slog package: JSON output for production, text
// for development, and "service" and "version" attributes on every entry.
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Usage:
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("starting service", "port", 5000)
//	logger.Error("failed to connect", "error", err)
//
// Each subsystem gets its own tagged logger:
//
//	registry.SetLogger(logger.Component("registry"))
package logging
