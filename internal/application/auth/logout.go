package auth

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Logout blacklists both tokens of the session. Tokens that are malformed or
// already expired are skipped; an error means at least one revocation was not
// confirmed and the caller should retry.
func (s *Service) Logout(ctx context.Context, toks domain.SessionTokens) error {
	if err := s.revoke(ctx, toks); err != nil {
		return err
	}
	s.audit.Record(ctx, "logout", nil)
	return nil
}
