package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SharedSecretsCreated tracks C6 create operations.
	SharedSecretsCreated = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "created_total",
			Help:      "Total number of shared secrets created",
		},
	)

	// SharedSecretRetrievals tracks C6 retrieval attempts by role/result.
	SharedSecretRetrievals = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "retrievals_total",
			Help:      "Total number of shared secret retrieval attempts",
		},
		[]string{"role", "result"}, // sender/receiver, ok/otp_required/otp_mismatch/denied/not_found
	)

	// SharedSecretsExpired tracks rows removed by the expiry sweep.
	SharedSecretsExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "expired_total",
			Help:      "Total number of shared secret rows removed by expiry",
		},
	)

	// SharedSecretsDeleted tracks explicit or read-exhaustion deletes.
	SharedSecretsDeleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sharedsecret",
			Name:      "deleted_total",
			Help:      "Total number of shared secret rows deleted",
		},
		[]string{"reason"}, // explicit, reads_exhausted, expired
	)
)
