// Package ingest is the protocol layer between transports and the device
// registry.
//
// It turns position reports and rename requests into validated registry
// calls and returns explicit errors for the transport to map onto its own
// status codes. Every transport (the HTTP API, the MQTT bridge) goes through
// a Service; nothing else mutates the registry.
//
// Validation happens here, before the registry is touched:
//   - report: id, lat and lon are required; lat and lon must be finite numbers
//   - rename: device_id and new_name are required and non-blank
//
// Failures are *ValidationError (errors.Is(err, ErrValidation)) or
// device.ErrDeviceNotFound for a rename of an unknown device.
package ingest
