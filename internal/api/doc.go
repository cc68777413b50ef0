// Package api implements the HTTP and WebSocket surface of devtrack.
//
// This package provides:
//   - report intake on /update and / (query string, form or JSON body)
//   - device renaming on /rename_device
//   - the device listing consumed by the map page on /get_devices
//   - the map page itself, served from the panel package
//   - a read-only JSON view of full records under /api/v1
//   - a WebSocket live feed of registry changes on /api/v1/ws
//   - Prometheus metrics on /metrics
//
// # Response Shapes
//
// The report and rename endpoints answer with small envelopes that reporting
// clients already understand: {"status":"success"} or
// {"status":"error","message":...} for reports, {"success":true} or
// {"success":false,"message":...} for renames. The /api/v1 routes use the
// structured Error type instead.
//
// # Live Feed
//
// Every committed registry change is broadcast to WebSocket clients
// subscribed to its channel, device.updated or device.renamed.
//
// There is no authentication; deploy behind a trusted network or proxy.
package api
