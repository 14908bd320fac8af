package otp

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]domain.Account

	setErr     error
	consumeErr error
}

func newFakeStore(accs ...domain.Account) *fakeStore {
	s := &fakeStore{accounts: map[string]domain.Account{}}
	for _, a := range accs {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound()
	}
	return a, nil
}

func (s *fakeStore) SetOTP(_ context.Context, id string, o domain.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound()
	}
	if a.Verified {
		return domain.ErrAlreadyVerified()
	}
	a.OTP = &o
	s.accounts[id] = a
	return nil
}

func (s *fakeStore) ConsumeOTP(_ context.Context, id, code string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumeErr != nil {
		return false, s.consumeErr
	}
	a, ok := s.accounts[id]
	if !ok || a.Verified || a.OTP == nil || a.OTP.Code != code || now.After(a.OTP.ExpiresAt) {
		return false, nil
	}
	a.Verified = true
	a.OTP = nil
	s.accounts[id] = a
	return true, nil
}

func (s *fakeStore) get(id string) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

// fixedDigits makes rand.Int yield 482913 for a 6 digit limit.
func fixedDigits() *bytes.Reader {
	return bytes.NewReader([]byte{0x07, 0x5E, 0x61})
}
