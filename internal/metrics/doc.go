/*
Package metrics provides Prometheus instruments for devtrack.

Metrics are registered on the default Prometheus registry at package init
and exposed by the API server at /metrics in the Prometheus text format:

	curl http://localhost:5000/metrics

# Available Metrics

Ingest Metrics:
  - devtrack_reports_total: Position reports processed (counter)
    Labels: source (json, form, query, mqtt), result (accepted, invalid, error)
  - devtrack_renames_total: Rename requests processed (counter)
    Labels: result (renamed, invalid, not_found, error)
  - devtrack_devices: Devices currently known to the registry (gauge)

HTTP Metrics:
  - devtrack_http_requests_total: HTTP requests served (counter)
    Labels: method, route, status
  - devtrack_http_request_duration_seconds: Request latency (histogram)
    Labels: method, route

Live Feed Metrics:
  - devtrack_websocket_clients: Connected WebSocket clients (gauge)
  - devtrack_mqtt_published_total: Device states published to MQTT (counter)
    Labels: result (ok, error)
*/
package metrics
