// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"service", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "route"},
	)

	OrchestratorOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_operations_total",
			Help: "Total number of orchestrator use cases by outcome",
		},
		[]string{"operation", "outcome", "error_code"},
	)

	HistoryRecordFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_history_record_failures_total",
			Help: "Number of suppressed history-recording failures",
		},
		[]string{"error_code"},
	)

	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_call_duration_seconds",
			Help:    "Duration of downstream service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "outcome"},
	)

	UserCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_user_cache_lookups_total",
			Help: "User existence cache lookups by result",
		},
		[]string{"result"},
	)

	ActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_active",
			Help: "Number of in-flight HTTP requests",
		},
		[]string{"service"},
	)
)
