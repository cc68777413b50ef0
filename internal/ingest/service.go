package ingest

import (
	"context"
	"errors"
	"strings"

	"github.com/nerrad567/devtrack/internal/device"
	"github.com/nerrad567/devtrack/internal/metrics"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// RenameRequest is the body of a rename call.
type RenameRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	NewName  string `json:"new_name" validate:"required"`
}

// Service applies reports and renames to a device registry.
// It is safe for concurrent use.
type Service struct {
	registry *device.Registry
	logger   Logger
}

// NewService creates a service backed by registry.
func NewService(registry *device.Registry) *Service {
	return &Service{
		registry: registry,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Report validates one position report and applies it.
//
// Returns a *ValidationError if id, lat or lon is missing or malformed; the
// registry is unchanged in that case.
func (s *Service) Report(ctx context.Context, source Source, fields Fields) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordReport(string(source), metrics.ResultError)
		return err
	}

	report, err := parseReport(fields)
	if err != nil {
		metrics.RecordReport(string(source), metrics.ResultInvalid)
		s.logger.Debug("report rejected", "source", string(source), "error", err)
		return err
	}

	s.registry.Upsert(report)
	metrics.RecordReport(string(source), metrics.ResultAccepted)
	metrics.SetDeviceCount(s.registry.Count())
	return nil
}

// Rename sets the display name of a known device.
//
// Both fields are trimmed before use. Returns a *ValidationError if either
// is blank, or device.ErrDeviceNotFound if the device has never reported.
func (s *Service) Rename(ctx context.Context, req RenameRequest) error {
	if err := ctx.Err(); err != nil {
		metrics.RecordRename(metrics.ResultError)
		return err
	}

	req.DeviceID = strings.TrimSpace(req.DeviceID)
	req.NewName = strings.TrimSpace(req.NewName)
	if err := validateStruct(req); err != nil {
		metrics.RecordRename(metrics.ResultInvalid)
		return err
	}

	if err := s.registry.Rename(req.DeviceID, req.NewName); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			metrics.RecordRename(metrics.ResultNotFound)
		} else {
			metrics.RecordRename(metrics.ResultError)
		}
		return err
	}

	metrics.RecordRename(metrics.ResultRenamed)
	return nil
}

// List returns a snapshot of every device keyed by ID. It never fails.
func (s *Service) List(_ context.Context) map[string]device.Record {
	return s.registry.Snapshot()
}

// Registry returns the registry the service writes to.
func (s *Service) Registry() *device.Registry {
	return s.registry
}
