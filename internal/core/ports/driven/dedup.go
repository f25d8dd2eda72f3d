package driven

import (
	"context"
	"time"
)

// Deduper claims message identifiers across processes so that concurrent
// runs do not spend inference on the same message. The stores remain the
// source of truth for uniqueness.
type Deduper interface {
	// Claim returns true if the caller won the claim for key.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops a claim so a later run may retry the key.
	Release(ctx context.Context, key string) error
}
