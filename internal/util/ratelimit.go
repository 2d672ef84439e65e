package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces operations to at most perMinute per minute. It is a
// token bucket of depth one: bursts are never allowed, only the steady
// replenished rate.
type RateLimiter struct {
	mu       sync.Mutex
	perSec   float64
	tokens   float64
	refilled time.Time
}

// NewRateLimiter creates a RateLimiter allowing perMinute operations per
// minute. The first Wait never blocks.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perSec:   float64(perMinute) / 60.0,
		tokens:   1,
		refilled: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.take() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// take refills the bucket for the elapsed time and consumes a token if one
// is available.
func (rl *RateLimiter) take() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.refilled).Seconds() * rl.perSec
	if rl.tokens > 1 {
		rl.tokens = 1
	}
	rl.refilled = now

	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}
