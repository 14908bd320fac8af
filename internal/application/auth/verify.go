package auth

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Verify activates the account registered under email if code is its pending OTP.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if code == "" {
		return domain.ErrMissingField("otp")
	}

	acc, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}

	sctx, cancel := s.store(ctx)
	defer cancel()
	if err := s.otps.Verify(sctx, acc, code, s.now()); err != nil {
		s.audit.Record(ctx, "verify_failed", auditFailure(map[string]string{"account_id": acc.ID}, err))
		return err
	}

	s.audit.Record(ctx, "verified", map[string]string{"account_id": acc.ID, "email": acc.Email})
	return nil
}

// ResendOTP replaces the pending code of an unverified account and mails it again.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}

	acc, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}

	sctx, cancel := s.store(ctx)
	defer cancel()
	code, err := s.otps.Resend(sctx, &acc, s.now())
	if err != nil {
		return err
	}

	s.sendOTP(acc, code)
	s.audit.Record(ctx, "otp_resent", map[string]string{"account_id": acc.ID})
	return nil
}
