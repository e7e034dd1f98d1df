package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokensMinted tracks C4 access/refresh token minting.
	TokensMinted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "minted_total",
			Help:      "Total number of tokens minted",
		},
		[]string{"kind"}, // access, refresh
	)

	// RefreshOutcomes tracks the 1/3-vs-2/3 rotation policy outcome.
	RefreshOutcomes = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "refresh_outcomes_total",
			Help:      "Total number of refresh requests by policy outcome",
		},
		[]string{"outcome"}, // no_op, access_only, full_rotation, denied
	)

	// ActiveRefreshSessions is registered but nothing in this module
	// sets it: refresh sessions are not tracked server-side, so it
	// stays at 0.
	ActiveRefreshSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "active_refresh_sessions",
			Help:      "Number of refresh sessions currently tracked in memory",
		},
	)
)
