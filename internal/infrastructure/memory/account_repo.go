package memory

import (
	"context"
	"sync"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// AccountRepo is an in-process account store for local runs and tests.
// All mutations happen under one lock, which gives ConsumeOTP the same
// single-step semantics as the conditional UPDATE in postgres.
type AccountRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.Account
	byEmail map[string]string // email -> accountID
}

func NewAccountRepo() *AccountRepo {
	return &AccountRepo{
		byID:    make(map[string]domain.Account),
		byEmail: make(map[string]string),
	}
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return clone(a), nil
}

func (r *AccountRepo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[a.Email]; exists {
		return domain.Account{}, domain.ErrEmailAlreadyExists()
	}
	if a.ID == "" {
		return domain.Account{}, domain.ErrInternal(nil)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	a.UpdatedAt = a.CreatedAt

	r.byID[a.ID] = clone(a)
	r.byEmail[a.Email] = a.ID
	return clone(a), nil
}

func (r *AccountRepo) SetOTP(ctx context.Context, id string, o domain.OTP) error {
	return r.mutate(id, func(a *domain.Account) error {
		if a.Verified {
			return domain.ErrAlreadyVerified()
		}
		a.OTP = &o
		return nil
	})
}

func (r *AccountRepo) ConsumeOTP(ctx context.Context, id, code string, now time.Time) (bool, error) {
	consumed := false
	err := r.mutate(id, func(a *domain.Account) error {
		if a.Verified || a.OTP == nil || a.OTP.Code != code || a.OTP.Expired(now) {
			return nil
		}
		a.Verified = true
		a.OTP = nil
		consumed = true
		return nil
	})
	if domain.Is(err, domain.CodeAccountNotFound) {
		return false, nil
	}
	return consumed, err
}

func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return r.mutate(id, func(a *domain.Account) error {
		a.PasswordHash = hash
		return nil
	})
}

// UpdateEmail moves the account to a new address. Verification state is kept.
func (r *AccountRepo) UpdateEmail(ctx context.Context, id, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	if owner, taken := r.byEmail[email]; taken && owner != id {
		return domain.ErrEmailAlreadyExists()
	}
	delete(r.byEmail, a.Email)
	a.Email = email
	a.UpdatedAt = time.Now()
	r.byID[id] = a
	r.byEmail[email] = id
	return nil
}

func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	delete(r.byID, id)
	delete(r.byEmail, a.Email)
	return nil
}

func (r *AccountRepo) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, a := range r.byID {
		if !a.Verified && a.CreatedAt.Before(cutoff) {
			delete(r.byID, id)
			delete(r.byEmail, a.Email)
			n++
		}
	}
	return n, nil
}

func (r *AccountRepo) mutate(id string, fn func(*domain.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	if err := fn(&a); err != nil {
		return err
	}
	a.UpdatedAt = time.Now()
	r.byID[id] = a
	return nil
}

// clone detaches the OTP pointer so callers cannot mutate stored state.
func clone(a domain.Account) domain.Account {
	if a.OTP != nil {
		o := *a.OTP
		a.OTP = &o
	}
	return a
}
