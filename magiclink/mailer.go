// SPDX-License-Identifier: LGPL-3.0-or-later

package magiclink

import (
	"context"
	"fmt"

	"github.com/veilmark/corevault/internal/logger"
	"github.com/veilmark/corevault/internal/metrics"
)

// Mailer delivers a magic link to an email address. The SMTP wire
// protocol itself is out of scope; implementations are thin
// collaborators the service dispatches to.
type Mailer interface {
	Send(ctx context.Context, to, link, lang string) error
}

// DryRunMailer logs the magic link instead of sending it, for
// environments where dry_run_email is set.
type DryRunMailer struct {
	Logger logger.Logger
}

func (m *DryRunMailer) Send(ctx context.Context, to, link, lang string) error {
	m.Logger.Info("magic link issued (dry run)",
		logger.String("to", to),
		logger.String("magiclink_url", link),
		logger.String("email_lang", lang),
	)
	metrics.MailerDispatches.WithLabelValues("dry_run").Inc()
	return nil
}

// StubMailer is a no-op SMTP sender: the wire protocol for actually
// delivering mail is out of scope, so this collaborator only reports
// that a dispatch was attempted.
type StubMailer struct{}

func (m *StubMailer) Send(ctx context.Context, to, link, lang string) error {
	metrics.MailerDispatches.WithLabelValues("sent").Inc()
	return nil
}

// fmtLink builds the UI redemption URL for a magic-link token.
func fmtLink(uiHost, token string) string {
	return fmt.Sprintf("https://%s/?magiclink=%s", uiHost, token)
}
