// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authorization"

// Authentication outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeBadPassword = "bad_credentials"
	OutcomeUnknownUser = "unknown_user"
	OutcomeDisabled    = "disabled"
	OutcomeRejected    = "rejected"
	OutcomeError       = "error"
)

var (
	// AuthenticationAttempts counts authentication attempts by outcome.
	AuthenticationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	// UserWrites counts user writes by operation and result.
	UserWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "users",
			Name:      "writes_total",
			Help:      "User writes by operation and result",
		},
		[]string{"operation", "result"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status_code"},
	)
)

// RecordWrite increments UserWrites with result "ok" or "error".
func RecordWrite(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	UserWrites.WithLabelValues(operation, result).Inc()
}
