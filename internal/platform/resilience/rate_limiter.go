package resilience

import (
	"context"
	"sync"
	"time"
)

// minWaitSlice bounds how often Wait rechecks the bucket, so a nearly-full
// bucket does not turn Wait into a busy loop.
const minWaitSlice = 10 * time.Millisecond

// RateLimiter is a token bucket. The bucket holds up to burst tokens,
// refills continuously at ratePerSec, and each admitted request spends one.
type RateLimiter struct {
	mu         sync.Mutex
	ratePerSec float64
	burst      int
	tokens     float64
	lastRefill time.Time
}

// NewRateLimiter creates a full bucket admitting rate requests per second
// with bursts up to burst. Non-positive arguments fall back to 10 req/s
// and a burst equal to the rate.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst <= 0 {
		burst = int(rate)
	}

	return &RateLimiter{
		ratePerSec: rate,
		burst:      burst,
		tokens:     float64(burst),
		lastRefill: time.Now(),
	}
}

// Allow spends a token if one is available. It never blocks.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ok, _ := rl.takeLocked(time.Now())
	return ok
}

// Wait blocks until a token is spent or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		ok, wait := rl.takeLocked(time.Now())
		rl.mu.Unlock()

		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// SetRate changes the refill rate. Time already elapsed is credited at the
// old rate first. Non-positive rates are ignored.
func (rl *RateLimiter) SetRate(rate float64) {
	if rate <= 0 {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	rl.ratePerSec = rate
}

// Stats reports the configured rate, the burst size, and the tokens
// available right now.
func (rl *RateLimiter) Stats() (rate float64, burst int, availableTokens float64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked(time.Now())
	return rl.ratePerSec, rl.burst, rl.tokens
}

// takeLocked refills the bucket to now and spends a token if one is
// available. When the bucket is empty the returned duration estimates how
// long until the next token. Caller must hold mu.
func (rl *RateLimiter) takeLocked(now time.Time) (bool, time.Duration) {
	rl.refillLocked(now)

	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}

	wait := time.Duration((1 - rl.tokens) / rl.ratePerSec * float64(time.Second))
	if wait < minWaitSlice {
		wait = minWaitSlice
	}
	return false, wait
}

// refillLocked credits tokens for the time elapsed since the last refill,
// capped at the burst size. Caller must hold mu.
func (rl *RateLimiter) refillLocked(now time.Time) {
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.ratePerSec
	if full := float64(rl.burst); rl.tokens > full {
		rl.tokens = full
	}
	rl.lastRefill = now
}
