package api

import (
	"net/http"

	"github.com/goccy/go-json"
)

// Error represents a structured error response on the /api/v1 routes.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeNotFound   = "not_found"
	ErrCodeInternal   = "internal_error"
)

// Client-facing messages. Internal error details are logged, never returned.
const (
	msgInternal      = "internal server error"
	msgInvalidJSON   = "request body must be a JSON object"
	msgBodyTooLarge  = "request body too large"
	msgDeviceUnknown = "device not found"
	msgRateLimited   = "too many requests"
	msgReportFailed  = "failed to process report"
)

// reportResponse is the envelope of the report endpoints.
type reportResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// renameResponse is the envelope of the rename endpoint.
type renameResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeReportError writes a failed report acknowledgement.
func writeReportError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, reportResponse{Status: "error", Message: message})
}

// writeRenameError writes a failed rename acknowledgement.
func writeRenameError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, renameResponse{Success: false, Message: message})
}
