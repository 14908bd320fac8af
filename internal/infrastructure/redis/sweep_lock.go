package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it is still held by the caller.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// SweepLock makes sure only one replica runs a given sweeper task per tick.
type SweepLock struct {
	rdb    *goredis.Client
	prefix string
}

func NewSweepLock(c *Client) *SweepLock {
	return &SweepLock{rdb: rdbOf(c), prefix: "sweep:lock:"}
}

// TryLock takes the named lock for ttl. It returns ok=false when another holder
// has it. release is a no-op if the lock has already expired or changed hands.
func (l *SweepLock) TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	if l.rdb == nil {
		return nil, false, errors.New("redis sweep lock not configured")
	}
	token, err := newLockToken()
	if err != nil {
		return nil, false, err
	}

	key := l.prefix + name
	ok, err = l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	release = func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}
	return release, true, nil
}

func newLockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
