// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registrations counts registration attempts by outcome.
	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_registrations_total",
			Help: "Total number of registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AuthRequests tracks login and password-change attempts by type and outcome.
	AuthRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_auth_requests_total",
			Help: "Total number of auth requests by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// AddressWrites counts address mutations by operation and outcome.
	AddressWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_address_writes_total",
			Help: "Total number of address writes by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	// HTTPDuration tracks request latency by route pattern and status class.
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accounts_http_request_duration_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounts_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"bucket"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeDenied   = "denied"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)
