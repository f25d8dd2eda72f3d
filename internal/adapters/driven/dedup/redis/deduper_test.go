package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/guestmail/internal/core/domain"
)

// unreachable returns a client for a port nothing listens on.
func unreachable(t *testing.T) *Deduper {
	t.Helper()
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	d := NewDeduper(rdb)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDeduper_UnavailableIsTransient(t *testing.T) {
	d := unreachable(t)
	ctx := context.Background()

	ok, err := d.Claim(ctx, "msg-1", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, domain.IsTransient(err))

	assert.True(t, domain.IsTransient(d.Ping(ctx)))
	assert.Error(t, d.Release(ctx, "msg-1"))
}

func TestNewClient(t *testing.T) {
	c := NewClient(domain.RedisConfig{Addr: "cache:6380", Password: "pw", DB: 3})
	t.Cleanup(func() { _ = c.Close() })

	opts := c.Options()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)
}
