package dispatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitBackoff is the pause after the oracle reports rate
// limiting without saying how long to wait.
const DefaultRateLimitBackoff = 30 * time.Second

// RateLimiter paces oracle calls with a token bucket and pauses every
// caller after a rate limit response. A limiter built with a
// non-positive rate only applies the pause.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backoff time.Duration
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained
// calls with the given burst. backoff is the default pause after a rate
// limit response; zero uses DefaultRateLimitBackoff.
func NewRateLimiter(requestsPerSecond float64, burst int, backoff time.Duration) *RateLimiter {
	r := &RateLimiter{backoff: backoff}
	if r.backoff <= 0 {
		r.backoff = DefaultRateLimitBackoff
	}
	if requestsPerSecond > 0 {
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return r
}

// Wait blocks until a call can be made. It respects any pause set by
// RecordRateLimitError and then waits for the token bucket.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if r.limiter == nil {
		return ctx.Err()
	}
	return r.limiter.Wait(ctx)
}

// RecordRateLimitError pauses all callers. A non-positive retryAfter
// uses the limiter's default backoff. An existing longer pause is kept.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = r.backoff
	}
	if at := time.Now().Add(retryAfter); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// Allow reports whether a call can be made immediately, consuming a
// token when it can.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}
	if r.limiter == nil {
		return true
	}
	return r.limiter.Allow()
}
