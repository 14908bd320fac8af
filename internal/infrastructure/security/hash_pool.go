package security

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Hasher is the synchronous password hashing primitive.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// HashPool bounds how many bcrypt computations run at once so a burst of
// logins cannot starve the rest of the process of CPU.
type HashPool struct {
	inner Hasher
	sem   *semaphore.Weighted
}

func NewHashPool(inner Hasher, workers int) *HashPool {
	if workers < 1 {
		workers = 1
	}
	return &HashPool{inner: inner, sem: semaphore.NewWeighted(int64(workers))}
}

func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.sem.Release(1)
	return p.inner.Hash(password)
}

func (p *HashPool) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := p.acquire(ctx); err != nil {
		return false, err
	}
	defer p.sem.Release(1)
	return p.inner.Verify(password, hash)
}

// acquire fails with a retryable error when ctx ends before a slot frees up.
func (p *HashPool) acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return domain.ErrStoreUnavailable(fmt.Errorf("hash pool saturated: %w", err))
	}
	return nil
}
