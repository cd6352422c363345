// Package observability exposes the application's Prometheus collectors and
// the /metrics handler.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// StoreOperations counts round trips to the remote tree store by
	// operation (read, write, delete) and outcome (ok, error).
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timelog_store_operations_total",
		Help: "Remote store round trips by operation and outcome.",
	}, []string{"op", "outcome"})

	// CapacityRejections counts writes rejected by the 1440-minute check.
	CapacityRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timelog_capacity_rejections_total",
		Help: "Ledger writes rejected for exceeding the day capacity.",
	})

	// HTTPRequests counts served requests by route, method and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "timelog_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timelog_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveStoreOp records one store round trip.
func ObserveStoreOp(op string, err error) {
	StoreOperations.WithLabelValues(op, outcome(err)).Inc()
}
