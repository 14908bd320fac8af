package memory

import (
	"context"
	"sync"
	"time"
)

type BlacklistRepo struct {
	mu      sync.RWMutex
	entries map[string]time.Time // digest -> expires_at
}

func NewBlacklistRepo() *BlacklistRepo {
	return &BlacklistRepo{entries: make(map[string]time.Time)}
}

func (r *BlacklistRepo) Insert(ctx context.Context, digest string, expiresAt, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[digest]; !ok {
		r.entries[digest] = expiresAt
	}
	return nil
}

func (r *BlacklistRepo) Exists(ctx context.Context, digest string, now time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.entries[digest]
	return ok && exp.After(now), nil
}

func (r *BlacklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, k)
			n++
		}
	}
	return n, nil
}

// Len is the number of stored entries, swept or not.
func (r *BlacklistRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
