// Package blacklist tracks revoked tokens until their own expiry.
package blacklist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// Repo is the persistence behind the blacklist. Keys are token digests.
// Insert must be idempotent for an existing key; now is the instant of the
// revocation, for backends that derive a retention TTL. Exists must compare the stored
// deadline with now (expires_at > now) and DeleteExpired must remove exactly the
// entries with expires_at <= now.
type Repo interface {
	Insert(ctx context.Context, digest string, expiresAt, now time.Time) error
	Exists(ctx context.Context, digest string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Inspector reads claims from a correctly signed token regardless of its expiry.
type Inspector interface {
	Inspect(token string) (domain.TokenClaims, error)
}

type Store struct {
	repo    Repo
	tokens  Inspector
	timeout time.Duration
}

func NewStore(repo Repo, tokens Inspector, timeout time.Duration) *Store {
	return &Store{repo: repo, tokens: tokens, timeout: timeout}
}

// Digest is the storage key for a token. Equal digests mean equal token strings.
func Digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add revokes token until its own expiry. It returns false, and stores nothing,
// when the token is already expired at now. A returned error means the revocation
// was not confirmed and the caller must not treat the token as revoked.
func (s *Store) Add(ctx context.Context, token string, now time.Time) (bool, error) {
	claims, err := s.tokens.Inspect(token)
	if err != nil {
		return false, err
	}
	if !claims.ExpiresAt.After(now) {
		return false, nil
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.repo.Insert(ctx, Digest(token), claims.ExpiresAt, now); err != nil {
		return false, storeErr(ctx, err)
	}
	return true, nil
}

// Contains is true only for a stored entry whose deadline is still ahead of now,
// so correctness never depends on when the last sweep ran.
func (s *Store) Contains(ctx context.Context, token string, now time.Time) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ok, err := s.repo.Exists(ctx, Digest(token), now)
	if err != nil {
		return false, storeErr(ctx, err)
	}
	return ok, nil
}

// Sweep deletes entries whose deadline is at or before now.
func (s *Store) Sweep(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, storeErr(ctx, err)
	}
	return n, nil
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// storeErr keeps domain errors from the repo and turns everything else,
// including deadline and cancellation, into store_unavailable.
func storeErr(ctx context.Context, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return domain.ErrStoreUnavailable(ctxErr)
	}
	return domain.ErrStoreUnavailable(err)
}
