// Package metrics holds the Prometheus instrumentation for the portal.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the portal gateway.
type Metrics struct {
	// Sign-in attempts by method (password, google, otp) and result
	// (ok, unauthorized, verification_required, unavailable).
	LoginAttempts *prometheus.CounterVec

	// Guard outcomes by guard name and decision
	// (allow, redirect, denied, unavailable).
	GuardDecisions *prometheus.CounterVec

	// Session verification checks against the remote API by outcome
	// (valid, invalid, unavailable).
	SessionChecks *prometheus.CounterVec

	// Gateway request handling duration by route.
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all metrics registered on registry.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wellness",
				Subsystem: "portal",
				Name:      "login_attempts_total",
				Help:      "Total number of sign-in attempts",
			},
			[]string{"method", "result"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wellness",
				Subsystem: "portal",
				Name:      "guard_decisions_total",
				Help:      "Total number of route guard decisions",
			},
			[]string{"guard", "decision"},
		),
		SessionChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wellness",
				Subsystem: "portal",
				Name:      "session_checks_total",
				Help:      "Total number of session verification calls to the remote API",
			},
			[]string{"outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wellness",
				Subsystem: "portal",
				Name:      "request_duration_seconds",
				Help:      "Gateway request handling duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
