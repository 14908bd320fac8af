package auth

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
	"github.com/worketyamo/workplace/services/auth-service/internal/metrics"
)

// Login authenticates an account and issues an access/refresh pair.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
// The unverified state is only reported once the password has matched.
func (s *Service) Login(ctx context.Context, email, password string) (toks Tokens, err error) {
	defer func() { metrics.LoginAttemptsTotal.WithLabelValues(outcome(err)).Inc() }()

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return Tokens{}, domain.ErrInvalidCredentials()
	}

	acc, err := s.getByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, domain.CodeAccountNotFound) {
			s.compareDecoy(ctx, password)
			s.audit.Record(ctx, "login_failed", map[string]string{"email": email, "code": domain.CodeAccountNotFound})
			return Tokens{}, domain.ErrInvalidCredentials()
		}
		return Tokens{}, err
	}

	ok, err := s.hasher.Verify(ctx, password, acc.PasswordHash)
	if err != nil {
		return Tokens{}, err
	}
	if !ok {
		s.audit.Record(ctx, "login_failed", map[string]string{"account_id": acc.ID, "code": domain.CodeInvalidCredentials})
		return Tokens{}, domain.ErrInvalidCredentials()
	}
	if !acc.Verified {
		return Tokens{}, domain.ErrAccountUnverified()
	}

	toks, err = s.issueTokens(acc.Identity())
	if err != nil {
		return Tokens{}, err
	}
	s.audit.Record(ctx, "login_success", map[string]string{"account_id": acc.ID})
	return toks, nil
}

const decoyPassword = "decoy-password-never-assigned"

// compareDecoy spends one hash comparison so a missing account costs
// about as much as a wrong password.
func (s *Service) compareDecoy(ctx context.Context, password string) {
	s.decoyMu.Lock()
	if s.decoy == "" {
		if h, err := s.hasher.Hash(ctx, decoyPassword); err == nil {
			s.decoy = h
		}
	}
	h := s.decoy
	s.decoyMu.Unlock()

	if h != "" {
		_, _ = s.hasher.Verify(ctx, password, h)
	}
}
