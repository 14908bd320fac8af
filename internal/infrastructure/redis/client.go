// Package redis holds the optional Redis backends: the token blacklist and the
// sweep lock that keeps replicas from running the same job together.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Timeout bounds dial, read and write. Zero keeps go-redis defaults.
	Timeout time.Duration
}

type Client struct {
	rdb *goredis.Client
}

func New(opts Options) *Client {
	o := &goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.Timeout > 0 {
		o.DialTimeout = opts.Timeout
		o.ReadTimeout = opts.Timeout
		o.WriteTimeout = opts.Timeout
	}
	return &Client{rdb: goredis.NewClient(o)}
}

// Ping is used once at startup; it gives up after two seconds.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func rdbOf(c *Client) *goredis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}
