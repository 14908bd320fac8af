package auth

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/metrics"
)

// Refresh trades a refresh token for a new pair. The presented refresh token is
// blacklisted first so each one can be used only once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (toks Tokens, err error) {
	defer func() { metrics.TokenRefreshTotal.WithLabelValues(outcome(err)).Inc() }()

	if refreshToken == "" {
		return Tokens{}, domain.ErrTokenMissing()
	}
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return Tokens{}, err
	}
	if claims.Type != domain.TokenRefresh {
		return Tokens{}, domain.ErrTokenInvalid()
	}

	now := s.now()
	revoked, err := s.blacklist.Contains(ctx, refreshToken, now)
	if err != nil {
		return Tokens{}, err
	}
	if revoked {
		s.audit.Record(ctx, "refresh_reused", map[string]string{"account_id": claims.Subject})
		return Tokens{}, domain.ErrTokenBlacklisted()
	}

	acc, err := s.getByID(ctx, claims.Subject)
	if err != nil {
		if domain.Is(err, domain.CodeAccountNotFound) {
			return Tokens{}, domain.ErrTokenInvalid()
		}
		return Tokens{}, err
	}
	if !acc.Verified {
		return Tokens{}, domain.ErrAccountUnverified()
	}

	if _, err := s.blacklist.Add(ctx, refreshToken, now); err != nil {
		return Tokens{}, err
	}

	// role comes from the account, not the old token, so role changes take effect
	toks, err = s.issueTokens(acc.Identity())
	if err != nil {
		return Tokens{}, err
	}
	s.audit.Record(ctx, "token_refreshed", map[string]string{"account_id": acc.ID})
	return toks, nil
}
