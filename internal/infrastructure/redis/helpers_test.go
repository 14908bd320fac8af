package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(Options{Addr: mr.Addr(), Timeout: time.Second})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}
