package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MagicLinksIssued tracks C5 issuance requests.
	MagicLinksIssued = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "magiclink",
			Name:      "issued_total",
			Help:      "Total number of magic links issued",
		},
	)

	// MagicLinksRedeemed tracks C5 redemption outcomes.
	MagicLinksRedeemed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "magiclink",
			Name:      "redeemed_total",
			Help:      "Total number of magic link redemption attempts",
		},
		[]string{"result"}, // ok, not_found, expired, consumed, bad_signer
	)

	// MailerDispatches tracks outbound mailer calls.
	MailerDispatches = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "magiclink",
			Name:      "mailer_dispatches_total",
			Help:      "Total number of mailer dispatch attempts",
		},
		[]string{"result"}, // sent, dry_run, failed
	)
)
