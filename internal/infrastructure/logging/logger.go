package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/devtrack/internal/infrastructure/config"
)

// ServiceName is attached to every log entry as the "service" attribute.
const ServiceName = "devtrack"

// outputs maps the logging.output setting to a writer. Anything else is stdout.
var outputs = map[string]io.Writer{
	"stdout": os.Stdout,
	"stderr": os.Stderr,
}

// Logger is a slog.Logger carrying devtrack's service and version
// attributes. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to cfg.Output.
func New(cfg config.LoggingConfig, version string) *Logger {
	w, ok := outputs[strings.ToLower(cfg.Output)]
	if !ok {
		w = os.Stdout
	}
	return NewWithWriter(cfg, version, w)
}

// NewWithWriter creates a Logger writing to w; cfg.Output is ignored.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler).With(
		slog.String("service", ServiceName),
		slog.String("version", version),
	)}
}

// parseLevel accepts slog's level names (case-insensitive, with offsets
// such as "debug+2") plus "warning". Anything else is info.
func parseLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// With returns a Logger with extra attributes on every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a Logger tagged with component=name, one per
// subsystem (registry, ingest, api, mqtt, bridge).
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default is the logger used before configuration is loaded: JSON at info
// level on stdout.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}
