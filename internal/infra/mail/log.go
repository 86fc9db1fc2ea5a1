package mail

import (
	"context"
	"taskremind/internal/domain"
	"taskremind/internal/ports"

	"github.com/rs/zerolog/log"
)

var _ ports.Mailer = LogMailer{}

// LogMailer writes digests to the log. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject string, body domain.Digest) error {
	l := log.Ctx(ctx)
	l.Info().Str("component", "mailer").Str("to", to).Str("subject", subject).
		Int("entries", len(body.Entries)).Msg("digest (not sent, no mail host)")
	for _, e := range body.Entries {
		l.Debug().Str("component", "mailer").Str("icon", e.Icon).Str("link", e.Link).Msg(e.Message)
	}
	return nil
}
