package auth

import (
	"context"
	"sync"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/application/otp"
	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type Service struct {
	accounts  AccountRepo
	hasher    PasswordHasher
	tokens    TokenIssuer
	otps      *otp.Manager
	blacklist Blacklist
	mail      Mailer
	audit     Auditor
	now       func() time.Time

	storeTimeout    time.Duration
	unverifiedGrace time.Duration

	// decoy is a real hash at the configured cost, compared on unknown-email logins.
	decoyMu sync.Mutex
	decoy   string
}

type Config struct {
	StoreTimeout    time.Duration
	UnverifiedGrace time.Duration
}

func NewService(
	accounts AccountRepo,
	hasher PasswordHasher,
	tokens TokenIssuer,
	otps *otp.Manager,
	blacklist Blacklist,
	mail Mailer,
	cfg Config,
) *Service {
	grace := cfg.UnverifiedGrace
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	return &Service{
		accounts:        accounts,
		hasher:          hasher,
		tokens:          tokens,
		otps:            otps,
		blacklist:       blacklist,
		mail:            mail,
		audit:           nopAuditor{},
		now:             time.Now,
		storeTimeout:    cfg.StoreTimeout,
		unverifiedGrace: grace,
	}
}

func (s *Service) WithAudit(a Auditor) *Service {
	if a != nil {
		s.audit = a
	}
	return s
}

// WithClock replaces time.Now; the same clock should back the token issuer.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Tokens is the common token output for handlers/DTO mapping.
type Tokens struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string // "Bearer"
	ExpiresIn        int64  // seconds
	RefreshExpiresIn int64  // seconds
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type RegisterResult struct {
	AccountID string
}

func (s *Service) issueTokens(id domain.Identity) (Tokens, error) {
	access, err := s.tokens.IssueAccess(id)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := s.tokens.IssueRefresh(id)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.tokens.AccessTTL().Seconds()),
		RefreshExpiresIn: int64(s.tokens.RefreshTTL().Seconds()),
	}, nil
}

// store bounds a single persistence call by the configured timeout.
func (s *Service) store(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *Service) getByEmail(ctx context.Context, email string) (domain.Account, error) {
	ctx, cancel := s.store(ctx)
	defer cancel()
	return s.accounts.GetByEmail(ctx, email)
}

func (s *Service) getByID(ctx context.Context, id string) (domain.Account, error) {
	ctx, cancel := s.store(ctx)
	defer cancel()
	return s.accounts.GetByID(ctx, id)
}

// revoke blacklists every valid token in toks. Malformed or already expired
// tokens have nothing to revoke and are skipped; a store failure on any token
// is returned so the caller can retry.
func (s *Service) revoke(ctx context.Context, toks domain.SessionTokens) error {
	now := s.now()
	var failed error
	for _, t := range []string{toks.Access, toks.Refresh} {
		if t == "" {
			continue
		}
		if _, err := s.blacklist.Add(ctx, t, now); err != nil && domain.IsRetryable(err) && failed == nil {
			failed = err
		}
	}
	return failed
}

// sendOTP hands the code to the mail pipeline. It never fails the caller.
func (s *Service) sendOTP(acc domain.Account, o domain.OTP) {
	s.mail.Enqueue(domain.MailRequest{
		Recipient: acc.Email,
		Subject:   "Your verification code",
		Template:  domain.MailTemplateOTP,
		Data: domain.OTPMailData{
			Name: acc.DisplayName(),
			OTP:  o.Code,
			Date: s.now().UTC().Format("2006-01-02"),
		},
	})
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, string, map[string]string) {}
