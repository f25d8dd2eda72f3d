package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for the Gmail token bucket, well under the per-user quota.
const (
	DefaultRequestsPerSecond = 10.0
	DefaultBurst             = 5

	// defaultBackoff applies when a 429 carries no Retry-After.
	defaultBackoff = 30 * time.Second
)

// RateLimiter is a token bucket with an additional backoff window that
// opens after the provider reports rate limiting.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a limiter. Non-positive values take the defaults.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		now:     time.Now,
	}
}

// Wait blocks until a request may be made, honouring any backoff window.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := retryAt.Sub(r.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// RecordRateLimitError opens a backoff window of retryAfter, or the
// default when the provider gave no hint.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = defaultBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(retryAfter); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// Allow reports whether a request may be made immediately.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if r.now().Before(retryAt) {
		return false
	}
	return r.limiter.Allow()
}
