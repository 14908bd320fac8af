package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Register creates an unverified account carrying a fresh OTP and queues the
// code for delivery. No tokens are issued until the account is verified.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := domain.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return RegisterResult{}, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	now := s.now()
	code, err := s.otps.Issue(now)
	if err != nil {
		return RegisterResult{}, err
	}

	acc := domain.Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		OTP:          &code,
		Verified:     false,
		Role:         domain.RoleEmployee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	sctx, cancel := s.store(ctx)
	created, err := s.accounts.Create(sctx, acc)
	cancel()
	if err != nil {
		s.audit.Record(ctx, "register_failed", auditFailure(map[string]string{"email": email}, err))
		return RegisterResult{}, err
	}

	s.sendOTP(created, code)
	s.audit.Record(ctx, "registered", map[string]string{"account_id": created.ID, "email": email})
	return RegisterResult{AccountID: created.ID}, nil
}
