package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest Metrics
	ReportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtrack_reports_total",
			Help: "Total number of position reports processed",
		},
		[]string{"source", "result"},
	)

	RenamesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtrack_renames_total",
			Help: "Total number of rename requests processed",
		},
		[]string{"result"},
	)

	Devices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devtrack_devices",
			Help: "Number of devices known to the registry",
		},
	)

	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtrack_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "devtrack_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "route"},
	)

	// Live Feed Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "devtrack_websocket_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	MQTTPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devtrack_mqtt_published_total",
			Help: "Total number of device states published to MQTT",
		},
		[]string{"result"},
	)
)

// Report results.
const (
	ResultAccepted = "accepted"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultRenamed  = "renamed"
	ResultNotFound = "not_found"
)

// RecordReport counts one processed position report.
func RecordReport(source, result string) {
	ReportsTotal.WithLabelValues(source, result).Inc()
}

// RecordRename counts one processed rename request.
func RecordRename(result string) {
	RenamesTotal.WithLabelValues(result).Inc()
}

// SetDeviceCount updates the registry size gauge.
func SetDeviceCount(n int) {
	Devices.Set(float64(n))
}

// RecordHTTPRequest records one served HTTP request.
// route is the matched route pattern, not the raw path, to bound label cardinality.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordMQTTPublish counts one device state publication.
func RecordMQTTPublish(err error) {
	if err != nil {
		MQTTPublishedTotal.WithLabelValues(ResultError).Inc()
		return
	}
	MQTTPublishedTotal.WithLabelValues("ok").Inc()
}
