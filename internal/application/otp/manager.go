// Package otp generates and validates the one-time codes that gate account activation.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Store persists pending codes. ConsumeOTP must be a single atomic conditional
// update: it flips verified to true and clears the code only when the account is
// still unverified, the code matches and the deadline has not passed at now.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Account, error)
	SetOTP(ctx context.Context, accountID string, otp domain.OTP) error
	ConsumeOTP(ctx context.Context, accountID, code string, now time.Time) (bool, error)
}

type Config struct {
	TTL    time.Duration
	Length int
}

type Manager struct {
	store  Store
	ttl    time.Duration
	length int
	random io.Reader
	limit  *big.Int
}

func NewManager(store Store, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	return &Manager{
		store:  store,
		ttl:    cfg.TTL,
		length: cfg.Length,
		random: rand.Reader,
		limit:  new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(cfg.Length)), nil),
	}
}

// WithRandom swaps the entropy source; tests use it for deterministic codes.
func (m *Manager) WithRandom(r io.Reader) *Manager {
	m.random = r
	return m
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Generate returns a zero-padded numeric code of the configured length.
func (m *Manager) Generate() (string, error) {
	n, err := rand.Int(m.random, m.limit)
	if err != nil {
		return "", domain.ErrRandomFailed(err)
	}
	return fmt.Sprintf("%0*d", m.length, n), nil
}

// Issue builds a fresh code with its deadline without persisting it.
func (m *Manager) Issue(now time.Time) (domain.OTP, error) {
	code, err := m.Generate()
	if err != nil {
		return domain.OTP{}, err
	}
	return domain.OTP{Code: code, ExpiresAt: now.Add(m.ttl)}, nil
}

// Attach replaces any pending code on the account with a fresh one.
func (m *Manager) Attach(ctx context.Context, acc *domain.Account, now time.Time) (domain.OTP, error) {
	o, err := m.Issue(now)
	if err != nil {
		return domain.OTP{}, err
	}
	if err := m.store.SetOTP(ctx, acc.ID, o); err != nil {
		return domain.OTP{}, err
	}
	acc.OTP = &o
	return o, nil
}

// Resend is Attach restricted to unverified accounts. The previous code stops
// verifying immediately, even if it had not expired.
func (m *Manager) Resend(ctx context.Context, acc *domain.Account, now time.Time) (domain.OTP, error) {
	if acc.Verified {
		return domain.OTP{}, domain.ErrAlreadyVerified()
	}
	return m.Attach(ctx, acc, now)
}

// Verify checks code against the account's pending OTP and, on success, marks the
// account verified in one atomic store update. When a concurrent caller wins the
// race the loser reports the state it observes afterwards.
func (m *Manager) Verify(ctx context.Context, acc domain.Account, code string, now time.Time) error {
	if err := check(acc, code, now); err != nil {
		return err
	}

	ok, err := m.store.ConsumeOTP(ctx, acc.ID, code, now)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	current, err := m.store.GetByID(ctx, acc.ID)
	if err != nil {
		return err
	}
	if err := check(current, code, now); err != nil {
		return err
	}
	// the row matched every check on reload but the update still missed
	return domain.ErrAlreadyVerified()
}

func check(acc domain.Account, code string, now time.Time) error {
	switch {
	case acc.Verified:
		return domain.ErrAlreadyVerified()
	case acc.OTP == nil:
		return domain.ErrOTPNotFound()
	case acc.OTP.Expired(now):
		return domain.ErrOTPExpired()
	case acc.OTP.Code != code:
		return domain.ErrOTPMismatch()
	}
	return nil
}
