package ingest

import "errors"

// ErrValidation is the sentinel wrapped by every *ValidationError.
var ErrValidation = errors.New("ingest: validation failed")

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	// Field is the wire name of the offending field.
	Field string

	// Message is a human-readable description safe to return to clients.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// missingField returns the validation error for an absent required field.
func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: field + " is required"}
}
