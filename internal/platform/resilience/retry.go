package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// RetryConfig controls the retry loop: attempt budget and the exponential
// backoff between attempts.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // fraction of the delay, 0.0 to 1.0
}

// DefaultRetryConfig allows three attempts backing off from 1s to 30s
// with 10% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.1,
	}
}

// Retry runs fn until it succeeds or the attempt budget is spent, treating
// every error as retryable.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	_, err := RetryIfWithResult(ctx, cfg, func(error) bool { return true },
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx)
		})
	return err
}

// RetryIfWithResult runs fn until it succeeds, isRetryable classifies its
// error as terminal, the context ends, or the attempt budget is spent.
// The wait between attempts doubles from cfg.BaseDelay up to cfg.MaxDelay.
func RetryIfWithResult[T any](ctx context.Context, cfg RetryConfig, isRetryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt-1, cfg); err != nil {
				return zero, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return zero, fmt.Errorf("non-retryable error: %w", err)
		}
		if ctx.Err() != nil {
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("max retry attempts reached: %w", lastErr)
}

// sleepBackoff waits out the backoff that follows the given zero-based
// attempt.
func sleepBackoff(ctx context.Context, attempt int, cfg RetryConfig) error {
	timer := time.NewTimer(calculateBackoff(attempt, cfg.BaseDelay, cfg.MaxDelay, cfg.Jitter))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
	}
}

// calculateBackoff doubles baseDelay per completed attempt, caps the
// result at maxDelay, then spreads it uniformly across ±jitter.
func calculateBackoff(attempt int, baseDelay, maxDelay time.Duration, jitter float64) time.Duration {
	delay := math.Min(float64(baseDelay)*math.Pow(2, float64(attempt)), float64(maxDelay))

	if jitter > 0 {
		delay *= 1 - jitter + 2*jitter*rand.Float64()
	}

	return time.Duration(delay)
}

// IsRetryable classifies an error for retry purposes. Client errors are
// terminal except 429, which Horizon returns when a client exceeds its
// rate allowance.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrCircuitOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "status code 4") && !strings.Contains(msg, "status code 429") {
		return false
	}

	return true
}
