package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/devtrack/internal/panel"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "not found")
	})

	pages := panel.Handler(s.cfg.PanelDir)

	// Report intake
	r.Group(func(r chi.Router) {
		r.Use(s.recoverWith(func(w http.ResponseWriter) {
			writeReportError(w, http.StatusBadRequest, msgReportFailed)
		}))
		r.Use(s.reportRateLimit())

		r.Get("/update", s.handleReport)
		r.Post("/update", s.handleReport)
		r.Post("/", s.handleReport)
	})

	r.With(s.recoverWith(func(w http.ResponseWriter) {
		writeRenameError(w, http.StatusInternalServerError, msgInternal)
	})).Post("/rename_device", s.handleRename)

	r.Get("/get_devices", s.handleGetDevices)

	// Map page and its assets
	r.Get("/", pages.ServeHTTP)
	r.Handle("/panel/*", http.StripPrefix("/panel", pages))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/devices", s.handleListDevices)
		r.Get("/devices/{id}", s.handleGetDevice)
		r.Get("/ws", s.handleWebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// handleHealth returns the server health status.
// A lost MQTT connection degrades the status but HTTP intake keeps working.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, mqttState := "ok", "disabled"
	if s.mqtt != nil {
		mqttState = "connected"
		if err := s.mqtt.HealthCheck(r.Context()); err != nil {
			status, mqttState = "degraded", "disconnected"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"devices": s.registry.Count(),
		"clients": s.hub.ClientCount(),
		"mqtt":    mqttState,
	})
}
