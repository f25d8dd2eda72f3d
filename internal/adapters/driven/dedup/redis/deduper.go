// Package redis claims message identifiers in Redis so that sync runs on
// different hosts do not process the same message concurrently.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/guestmail/internal/core/domain"
	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
	"github.com/custodia-labs/guestmail/internal/logger"
)

// KeyPrefix namespaces every claim key.
const KeyPrefix = "guestmail:claim:"

// Ensure Deduper implements the interface.
var _ driven.Deduper = (*Deduper)(nil)

// Deduper is a driven.Deduper backed by SET NX with expiry.
type Deduper struct {
	rdb goredis.UniversalClient
}

// NewClient builds a client from configuration.
func NewClient(cfg domain.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewDeduper wraps a connected client.
func NewDeduper(rdb goredis.UniversalClient) *Deduper {
	return &Deduper{rdb: rdb}
}

// Ping checks connectivity. Failures are transient.
func (d *Deduper) Ping(ctx context.Context) error {
	if err := d.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", domain.ErrTransient, err)
	}
	return nil
}

// Claim returns true if key was not already claimed.
func (d *Deduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, KeyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("%w: claim %s: %v", domain.ErrTransient, key, err)
	}
	if !ok {
		logger.Debug("claim %s held elsewhere", key)
	}
	return ok, nil
}

// Release drops the claim on key.
func (d *Deduper) Release(ctx context.Context, key string) error {
	if err := d.rdb.Del(ctx, KeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (d *Deduper) Close() error {
	return d.rdb.Close()
}
