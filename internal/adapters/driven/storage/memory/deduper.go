package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/guestmail/internal/core/ports/driven"
)

// Ensure Deduper implements the interface.
var _ driven.Deduper = (*Deduper)(nil)

// Deduper is an in-process implementation of driven.Deduper. It only
// guards workers of a single process; use the redis deduper across hosts.
type Deduper struct {
	mu     sync.Mutex
	claims map[string]time.Time // key -> expiry
	now    func() time.Time
}

// NewDeduper creates a new in-memory deduper.
func NewDeduper() *Deduper {
	return &Deduper{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Claim takes key for ttl. It returns false if an unexpired claim exists.
func (d *Deduper) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.claims[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.claims[key] = now.Add(ttl)
	return true, nil
}

// Release drops a claim.
func (d *Deduper) Release(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.claims, key)
	return nil
}
