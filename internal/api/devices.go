package api

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/nerrad567/devtrack/internal/device"
	"github.com/nerrad567/devtrack/internal/ingest"
)

// deviceView is the /get_devices representation of one device. Every key
// is always present; absent values encode as null.
type deviceView struct {
	CustomName string       `json:"custom_name"`
	Lat        *float64     `json:"lat"`
	Lon        *float64     `json:"lon"`
	Timestamp  device.Value `json:"timestamp"`
	Battery    device.Value `json:"battery"`
	Speed      device.Value `json:"speed"`
	Accuracy   device.Value `json:"accuracy"`
}

// newDeviceView converts a registry record to its wire form.
func newDeviceView(rec device.Record) deviceView {
	view := deviceView{
		CustomName: rec.DisplayName,
		Timestamp:  rec.Telemetry.Timestamp,
		Battery:    rec.Telemetry.Battery,
		Speed:      rec.Telemetry.Speed,
		Accuracy:   rec.Telemetry.Accuracy,
	}
	if rec.Position != nil {
		lat, lon := rec.Position.Latitude, rec.Position.Longitude
		view.Lat = &lat
		view.Lon = &lon
	}
	return view
}

// handleReport accepts a position report from the query string, a form or
// a JSON body. Serves GET/POST /update and POST /.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	source, fields, err := readReportFields(r)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			writeReportError(w, http.StatusBadRequest, msgBodyTooLarge)
			return
		}
		s.logger.Warn("failed to read report", "error", err)
		writeReportError(w, http.StatusBadRequest, msgReportFailed)
		return
	}

	if err := s.service.Report(r.Context(), source, fields); err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			writeReportError(w, http.StatusBadRequest, verr.Message)
			return
		}
		s.logger.Warn("failed to process report", "source", string(source), "error", err)
		writeReportError(w, http.StatusBadRequest, msgReportFailed)
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{Status: "success"})
}

// handleRename sets a device display name from a JSON body.
// Serves POST /rename_device.
func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req ingest.RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeRenameError(w, http.StatusBadRequest, msgBodyTooLarge)
			return
		}
		writeRenameError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}

	err := s.service.Rename(r.Context(), req)
	var verr *ingest.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, renameResponse{Success: true})
	case errors.As(err, &verr):
		writeRenameError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, device.ErrDeviceNotFound):
		writeRenameError(w, http.StatusNotFound, msgDeviceUnknown)
	default:
		s.logger.Error("failed to rename device", "device_id", req.DeviceID, "error", err)
		writeRenameError(w, http.StatusInternalServerError, msgInternal)
	}
}

// handleGetDevices returns every device keyed by ID.
// Serves GET /get_devices.
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	records := s.service.List(r.Context())

	out := make(map[string]deviceView, len(records))
	for id, rec := range records {
		out[id] = newDeviceView(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListDevices returns every full record, sorted by ID.
// Serves GET /api/v1/devices.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	records := s.service.List(r.Context())

	devices := make([]device.Record, 0, len(records))
	for _, rec := range records {
		devices = append(devices, rec)
	}
	slices.SortFunc(devices, func(a, b device.Record) int {
		return strings.Compare(a.ID, b.ID)
	})
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice returns the full record of one device.
// Serves GET /api/v1/devices/{id}.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	rec, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, msgDeviceUnknown)
			return
		}
		writeInternalError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
