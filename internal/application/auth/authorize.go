package auth

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Authorize is the gate for every authenticated request: the token must decode,
// be an access token and not be blacklisted.
func (s *Service) Authorize(ctx context.Context, token string) (domain.TokenClaims, error) {
	if token == "" {
		return domain.TokenClaims{}, domain.ErrTokenMissing()
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return domain.TokenClaims{}, err
	}
	if claims.Type != domain.TokenAccess {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}

	revoked, err := s.blacklist.Contains(ctx, token, s.now())
	if err != nil {
		return domain.TokenClaims{}, err
	}
	if revoked {
		return domain.TokenClaims{}, domain.ErrTokenBlacklisted()
	}
	return claims, nil
}
