package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics, registered on the default registry and exposed on
// GET /metrics (control plane).
var (
	heartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hvacpulse_heartbeats_total",
			Help: "Heartbeat records processed, by outcome (updated/failed).",
		},
		[]string{"outcome"},
	)
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hvacpulse_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hvacpulse_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hvacpulse_http_requests_in_flight",
			Help: "HTTP requests currently being processed.",
		},
	)
)

// recordHTTPRequest feeds the request counter and duration histogram for one
// served request. path must be the route template, not the raw URL, to keep
// label cardinality bounded.
func recordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
