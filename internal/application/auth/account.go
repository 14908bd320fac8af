package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Me returns the account behind an authenticated request.
func (s *Service) Me(ctx context.Context, accountID string) (domain.Account, error) {
	if accountID == "" {
		return domain.Account{}, domain.ErrTokenMissing()
	}
	return s.getByID(ctx, accountID)
}

// UpdateEmail moves the account to a new, unused address. The verified flag
// never reverts, so the change does not touch verification state and the
// account stays out of reach of PurgeUnverified.
func (s *Service) UpdateEmail(ctx context.Context, accountID, newEmail string) error {
	newEmail = domain.NormalizeEmail(newEmail)
	if err := validateEmail(newEmail); err != nil {
		return err
	}

	acc, err := s.getByID(ctx, accountID)
	if err != nil {
		return err
	}
	if acc.Email == newEmail {
		return nil
	}

	sctx, cancel := s.store(ctx)
	err = s.accounts.UpdateEmail(sctx, accountID, newEmail)
	cancel()
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "email_changed", map[string]string{"account_id": accountID, "email": newEmail})
	return nil
}

// DeleteAccount removes target. Only the owner or an admin may do so. When the
// owner deletes their own account the calling session is revoked before the
// row goes, so an unconfirmed revocation leaves the account in place to retry.
func (s *Service) DeleteAccount(ctx context.Context, actor domain.Identity, targetID string, current domain.SessionTokens) error {
	if targetID == "" {
		return domain.ErrMissingField("id")
	}
	if !actor.Role.CanManage(actor.AccountID, targetID) {
		return domain.ErrForbidden()
	}
	if actor.AccountID == targetID {
		if err := s.revoke(ctx, current); err != nil {
			return err
		}
	}

	sctx, cancel := s.store(ctx)
	err := s.accounts.Delete(sctx, targetID)
	cancel()
	if err != nil {
		return err
	}

	s.audit.Record(ctx, "account_deleted", map[string]string{"account_id": targetID, "actor_id": actor.AccountID})
	return nil
}

// PurgeUnverified deletes accounts still unverified after the grace period.
// Running it twice is harmless.
func (s *Service) PurgeUnverified(ctx context.Context, now time.Time) (int64, error) {
	sctx, cancel := s.store(ctx)
	defer cancel()
	n, err := s.accounts.DeleteUnverifiedBefore(sctx, now.Add(-s.unverifiedGrace))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.audit.Record(ctx, "unverified_purged", map[string]string{"count": strconv.FormatInt(n, 10)})
	}
	return n, nil
}
