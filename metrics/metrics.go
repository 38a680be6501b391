// Package metrics exports prometheus counters for auth decision outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counter families. A nil *Metrics is valid; every method
// becomes a no-op, so instrumentation stays optional at call sites.
type Metrics struct {
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	revocations prometheus.Counter
	rateLimited *prometheus.CounterVec
}

// New registers the counter families with reg and returns the handle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_refreshes_total",
			Help: "Refresh exchanges by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_resolutions_total",
			Help: "Principal resolutions by outcome.",
		}, []string{"outcome"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authcore_revocations_total",
			Help: "Credentials revoked.",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authcore_rate_limited_total",
			Help: "Denials by limiter kind.",
		}, []string{"limiter"}),
	}

	reg.MustRegister(m.logins, m.refreshes, m.resolutions, m.revocations, m.rateLimited)
	return m
}

// Outcome labels.
const (
	OutcomeSuccess   = "success"
	OutcomeDenied    = "denied"
	OutcomeExpired   = "expired"
	OutcomeRevoked   = "revoked"
	OutcomeMalformed = "malformed"
)

// Limiter labels.
const (
	LimiterGeneral = "general"
	LimiterAuth    = "auth"
	LimiterLockout = "lockout"
)

// Login counts a login attempt outcome.
func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// Refresh counts a refresh exchange outcome.
func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

// Resolution counts a principal resolution outcome.
func (m *Metrics) Resolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// Revocation counts a revoked credential.
func (m *Metrics) Revocation() {
	if m == nil {
		return
	}
	m.revocations.Inc()
}

// RateLimited counts a limiter denial.
func (m *Metrics) RateLimited(limiter string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(limiter).Inc()
}
