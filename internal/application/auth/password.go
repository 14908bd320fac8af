package auth

import (
	"context"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// ChangePassword replaces the password of an authenticated account after checking
// the old one. The calling session is blacklisted before the new hash is
// written, so a store failure can be retried with the same old password.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string, current domain.SessionTokens) error {
	if accountID == "" {
		return domain.ErrTokenMissing()
	}
	if oldPassword == "" {
		return domain.ErrMissingField("old_password")
	}
	if err := validatePassword("new_password", newPassword); err != nil {
		return err
	}

	acc, err := s.getByID(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, oldPassword, acc.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		s.audit.Record(ctx, "password_change_failed", map[string]string{"account_id": accountID, "code": domain.CodeInvalidCredentials})
		return domain.ErrInvalidCredentials()
	}

	if err := s.revoke(ctx, current); err != nil {
		return err
	}
	if err := s.setPassword(ctx, accountID, newPassword); err != nil {
		return err
	}
	s.audit.Record(ctx, "password_changed", map[string]string{"account_id": accountID})
	return nil
}

// ResetPassword sets a new password for the account registered under email.
// Ownership must already be proven by the caller. Any tokens it passes are
// revoked first.
func (s *Service) ResetPassword(ctx context.Context, email, newPassword string, current domain.SessionTokens) error {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.ErrMissingField("email")
	}
	if err := validatePassword("new_password", newPassword); err != nil {
		return err
	}

	acc, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.revoke(ctx, current); err != nil {
		return err
	}
	if err := s.setPassword(ctx, acc.ID, newPassword); err != nil {
		return err
	}
	s.audit.Record(ctx, "password_reset", map[string]string{"account_id": acc.ID})
	return nil
}

func (s *Service) setPassword(ctx context.Context, accountID, password string) error {
	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return err
	}
	sctx, cancel := s.store(ctx)
	defer cancel()
	return s.accounts.UpdatePasswordHash(sctx, accountID, hash)
}
