package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EnvelopeVerifications tracks C3 signed-envelope verification outcomes.
	EnvelopeVerifications = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "verifications_total",
			Help:      "Total number of signed envelope verifications",
		},
		[]string{"kind", "result"}, // body/query, ok/bad_envelope/bad_signature/replay
	)

	// EnvelopesSigned tracks server-side SignedResponse construction.
	EnvelopesSigned = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "envelope",
			Name:      "signed_total",
			Help:      "Total number of SignedResponse payloads produced",
		},
	)
)
