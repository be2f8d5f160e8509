package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts records login attempts by result (success|failure).
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimsdesk_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"},
	)

	// AccountLockouts counts lock transitions triggered by failed logins.
	AccountLockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimsdesk_account_lockouts_total",
			Help: "Total number of accounts locked after repeated failures",
		},
	)

	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimsdesk_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "claimsdesk_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// InvitationsIssued counts invitation tokens issued by kind (created|resent).
	InvitationsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimsdesk_invitations_issued_total",
			Help: "Total number of invitation tokens issued",
		},
		[]string{"kind"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "claimsdesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
