// SPDX-License-Identifier: LGPL-3.0-or-later

package sharedsecret

import (
	"context"

	"github.com/veilmark/corevault/internal/logger"
	"github.com/veilmark/corevault/internal/metrics"
)

// DryRunMailer logs the shared-secret notification link instead of
// sending it, mirroring magiclink.DryRunMailer for environments where
// dry_run_email is set.
type DryRunMailer struct {
	Logger logger.Logger
}

func (m *DryRunMailer) Send(ctx context.Context, to, link string) error {
	m.Logger.Info("shared-secret link issued (dry run)",
		logger.String("to", to),
		logger.String("secret_url", link),
	)
	metrics.MailerDispatches.WithLabelValues("dry_run").Inc()
	return nil
}

// StubMailer is a no-op SMTP sender: the wire protocol for actually
// delivering mail is out of scope, so this collaborator only reports
// that a dispatch was attempted.
type StubMailer struct{}

func (m *StubMailer) Send(ctx context.Context, to, link string) error {
	metrics.MailerDispatches.WithLabelValues("sent").Inc()
	return nil
}
