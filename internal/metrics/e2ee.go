package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// E2EESeals tracks C7 key-material sealing operations.
	E2EESeals = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "e2ee",
			Name:      "seals_total",
			Help:      "Total number of hybrid E2EE seal operations",
		},
		[]string{"result"}, // ok, ecdh_rejected, aead_fail
	)

	// E2EEOpens tracks C7 key-material unsealing operations.
	E2EEOpens = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "e2ee",
			Name:      "opens_total",
			Help:      "Total number of hybrid E2EE open operations",
		},
		[]string{"result"},
	)
)
