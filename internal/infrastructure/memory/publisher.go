package memory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// NoopPublisher stands in for the broker when RABBIT_URL is empty. It logs the
// hand-off without the code itself.
type NoopPublisher struct {
	log zerolog.Logger
}

func NewNoopPublisher(lg zerolog.Logger) *NoopPublisher {
	return &NoopPublisher{log: lg.With().Str("component", "noop_publisher").Logger()}
}

func (p *NoopPublisher) PublishMail(ctx context.Context, req domain.MailRequest) error {
	p.log.Info().
		Str("template", req.Template).
		Str("subject", req.Subject).
		Msg("mail request not sent (no broker configured)")
	return nil
}
