package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filestore_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// OperationsTotal counts store operations (insert, find, update, delete, index).
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_operations_total",
			Help: "Total number of store operations",
		},
		[]string{"operation", "status"},
	)
	// DocumentsAffected counts documents inserted, updated or deleted.
	DocumentsAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filestore_documents_affected_total",
			Help: "Documents inserted, updated or deleted",
		},
		[]string{"operation"},
	)
)

// ObserveOperation records the outcome of a store operation
func ObserveOperation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
}
