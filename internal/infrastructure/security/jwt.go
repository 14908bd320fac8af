package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type TokenConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues and decodes HS256 tokens. It is immutable after construction;
// changing the secret invalidates every token issued before.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(cfg TokenConfig, now func() time.Time) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("token service: empty secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token service: ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        now,
	}, nil
}

type tokenClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (s *TokenService) AccessTTL() time.Duration  { return s.accessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *TokenService) IssueAccess(id domain.Identity) (string, error) {
	return s.issue(id, domain.TokenAccess, s.accessTTL)
}

func (s *TokenService) IssueRefresh(id domain.Identity) (string, error) {
	return s.issue(id, domain.TokenRefresh, s.refreshTTL)
}

func (s *TokenService) issue(id domain.Identity, typ domain.TokenType, ttl time.Duration) (string, error) {
	now := s.now()
	claims := tokenClaims{
		Role:      string(id.Role),
		TokenType: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   id.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

// Decode verifies signature, structure and expiry. It never consults the blacklist.
// Expired tokens fail with token_expired; anything else fails with token_invalid.
func (s *TokenService) Decode(token string) (domain.TokenClaims, error) {
	return s.parse(token,
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
	)
}

// Inspect verifies signature and structure but ignores time-based claims, so callers
// can read the expiry of a token that is already past it.
func (s *TokenService) Inspect(token string) (domain.TokenClaims, error) {
	return s.parse(token, jwt.WithoutClaimsValidation())
}

func (s *TokenService) parse(token string, opts ...jwt.ParserOption) (domain.TokenClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		// prevent alg confusion
		if t.Method != jwt.SigningMethodHS256 {
			return nil, domain.ErrTokenInvalid()
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TokenClaims{}, domain.ErrTokenExpired()
		}
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}

	c, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || c.Subject == "" || c.ExpiresAt == nil {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}
	typ := domain.TokenType(c.TokenType)
	if typ != domain.TokenAccess && typ != domain.TokenRefresh {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}
	if c.Issuer != s.issuer {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}
	role, ok := domain.ParseRole(c.Role)
	if !ok {
		return domain.TokenClaims{}, domain.ErrTokenInvalid()
	}

	out := domain.TokenClaims{
		ID:        c.ID,
		Subject:   c.Subject,
		Role:      role,
		Type:      typ,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, nil
}
