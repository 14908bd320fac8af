package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// BlacklistRepo stores revoked token digests as bl:<digest> -> expiry (unix ms).
// The key TTL is expiresAt minus the caller's now, and membership is decided by
// the stored deadline, so an injected clock gives the same answers as Postgres.
type BlacklistRepo struct {
	rdb    *goredis.Client
	prefix string

	scanCount int64
}

func NewBlacklistRepo(c *Client) *BlacklistRepo {
	return &BlacklistRepo{
		rdb:       rdbOf(c),
		prefix:    "bl:",
		scanCount: 500,
	}
}

func (r *BlacklistRepo) Insert(ctx context.Context, digest string, expiresAt, now time.Time) error {
	if r.rdb == nil {
		return domain.ErrStoreUnavailable(errors.New("redis blacklist not configured"))
	}
	ttl := expiresAt.Sub(now)
	if ttl < time.Second {
		// the key still needs a TTL; Sweep removes it by deadline anyway
		ttl = time.Second
	}
	val := strconv.FormatInt(expiresAt.UnixMilli(), 10)
	if err := r.rdb.SetNX(ctx, r.prefix+digest, val, ttl).Err(); err != nil {
		return domain.ErrStoreUnavailable(err)
	}
	return nil
}

func (r *BlacklistRepo) Exists(ctx context.Context, digest string, now time.Time) (bool, error) {
	if r.rdb == nil {
		return false, domain.ErrStoreUnavailable(errors.New("redis blacklist not configured"))
	}
	val, err := r.rdb.Get(ctx, r.prefix+digest).Result()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, domain.ErrStoreUnavailable(err)
	}
	exp, ok := parseDeadline(val)
	if !ok {
		// unreadable entry: treat as revoked rather than let the token through
		return true, nil
	}
	return exp > now.UnixMilli(), nil
}

// DeleteExpired walks bl:* with SCAN and removes entries whose deadline has
// passed at now. Keys already evicted by their TTL are simply not seen.
func (r *BlacklistRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if r.rdb == nil {
		return 0, domain.ErrStoreUnavailable(errors.New("redis blacklist not configured"))
	}
	cutoff := now.UnixMilli()

	var removed int64
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, r.prefix+"*", r.scanCount).Result()
		if err != nil {
			return removed, domain.ErrStoreUnavailable(err)
		}

		for _, key := range keys {
			val, err := r.rdb.Get(ctx, key).Result()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return removed, domain.ErrStoreUnavailable(err)
			}
			if exp, ok := parseDeadline(val); ok && exp > cutoff {
				continue
			}
			n, err := r.rdb.Del(ctx, key).Result()
			if err != nil {
				return removed, domain.ErrStoreUnavailable(err)
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func parseDeadline(val string) (int64, bool) {
	ms, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
