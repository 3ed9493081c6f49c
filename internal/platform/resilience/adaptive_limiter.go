package resilience

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// maxBackoffExponent caps how far consecutive rate limit errors
	// compound, so a long upstream outage does not push the rate to a
	// value that takes hours to recover from.
	maxBackoffExponent = 5

	// recoveryInterval is the minimum gap between rate increases.
	recoveryInterval = time.Second
)

// AdaptiveLimiter is a token bucket whose rate follows upstream health.
// Each rate limit response cuts the rate by backoffFactor, compounding
// with the failure streak; a full window of consecutive successes raises
// it again by recoveryFactor. The rate stays within [minRate, maxRate].
type AdaptiveLimiter struct {
	limiter *RateLimiter

	baseRate       float64
	minRate        float64
	maxRate        float64
	backoffFactor  float64
	recoveryFactor float64
	recoveryWindow int

	mu             sync.RWMutex
	currentRate    float64
	lastAdjustment time.Time

	successStreak int64
	failureStreak int64
	totalRequests int64
	rateLimitHits int64
	adaptations   int64
	level         int32 // 0 at minRate, 50 at baseRate, 100 at maxRate
}

// AdaptiveLimiterConfig configures an AdaptiveLimiter. Zero values fall
// back to the documented defaults.
type AdaptiveLimiterConfig struct {
	// BaseRate is the steady-state rate in requests per second (default 1.0).
	BaseRate float64

	// MinRate is the floor backoff cannot cross (default 0.1).
	MinRate float64

	// MaxRate is the ceiling recovery cannot cross (default 10.0).
	MaxRate float64

	// Burst is the bucket size (default twice BaseRate, at least 1).
	Burst int

	// BackoffFactor multiplies the rate on each rate limit error; it must
	// be in (0, 1) (default 0.5).
	BackoffFactor float64

	// RecoveryFactor multiplies the rate after a clean recovery window; it
	// must exceed 1 (default 1.1).
	RecoveryFactor float64

	// RecoveryWindow is the consecutive successes required before a rate
	// increase (default 10).
	RecoveryWindow int
}

// NewAdaptiveLimiter creates a limiter running at cfg.BaseRate.
func NewAdaptiveLimiter(cfg AdaptiveLimiterConfig) *AdaptiveLimiter {
	if cfg.BaseRate <= 0 {
		cfg.BaseRate = 1.0
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = 0.1
	}
	if cfg.MaxRate <= 0 {
		cfg.MaxRate = 10.0
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.BaseRate * 2)
		if cfg.Burst < 1 {
			cfg.Burst = 1
		}
	}
	if cfg.BackoffFactor <= 0 || cfg.BackoffFactor >= 1 {
		cfg.BackoffFactor = 0.5
	}
	if cfg.RecoveryFactor <= 1 {
		cfg.RecoveryFactor = 1.1
	}
	if cfg.RecoveryWindow <= 0 {
		cfg.RecoveryWindow = 10
	}

	// The base rate always sits inside the [min, max] band
	if cfg.MinRate > cfg.BaseRate {
		cfg.MinRate = cfg.BaseRate
	}
	if cfg.MaxRate < cfg.BaseRate {
		cfg.MaxRate = cfg.BaseRate
	}

	return &AdaptiveLimiter{
		limiter:        NewRateLimiter(cfg.BaseRate, cfg.Burst),
		baseRate:       cfg.BaseRate,
		minRate:        cfg.MinRate,
		maxRate:        cfg.MaxRate,
		backoffFactor:  cfg.BackoffFactor,
		recoveryFactor: cfg.RecoveryFactor,
		recoveryWindow: cfg.RecoveryWindow,
		currentRate:    cfg.BaseRate,
		lastAdjustment: time.Now(),
		level:          50,
	}
}

// Wait blocks until the bucket admits the request or ctx ends.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	atomic.AddInt64(&a.totalRequests, 1)
	return a.limiter.Wait(ctx)
}

// Allow reports whether the bucket admits the request, without blocking.
func (a *AdaptiveLimiter) Allow() bool {
	atomic.AddInt64(&a.totalRequests, 1)
	return a.limiter.Allow()
}

// RecordSuccess notes a healthy upstream response. A full recovery window
// of consecutive successes raises the rate one step.
func (a *AdaptiveLimiter) RecordSuccess() {
	atomic.StoreInt64(&a.failureStreak, 0)

	if streak := atomic.AddInt64(&a.successStreak, 1); int(streak) >= a.recoveryWindow {
		a.recover()
	}
}

// RecordRateLimitError notes an upstream rate limit response and backs the
// rate off immediately.
func (a *AdaptiveLimiter) RecordRateLimitError() {
	atomic.AddInt64(&a.rateLimitHits, 1)
	atomic.StoreInt64(&a.successStreak, 0)

	a.backoff(int(atomic.AddInt64(&a.failureStreak, 1)))
}

// RecordError notes a non-rate-limit failure. The rate holds, but the
// success streak restarts.
func (a *AdaptiveLimiter) RecordError() {
	atomic.StoreInt64(&a.successStreak, 0)
}

// Reset restores the base rate and clears both streaks.
func (a *AdaptiveLimiter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	atomic.StoreInt64(&a.successStreak, 0)
	atomic.StoreInt64(&a.failureStreak, 0)

	a.currentRate = a.baseRate
	a.limiter.SetRate(a.baseRate)
	a.lastAdjustment = time.Now()
	atomic.StoreInt32(&a.level, a.levelLocked())
}

// CurrentRate returns the rate currently in force, in requests per second.
func (a *AdaptiveLimiter) CurrentRate() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentRate
}

// IsThrottled reports whether the limiter is running below its base rate.
func (a *AdaptiveLimiter) IsThrottled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentRate < a.baseRate
}

func (a *AdaptiveLimiter) backoff(failureStreak int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if failureStreak > maxBackoffExponent {
		failureStreak = maxBackoffExponent
	}

	newRate := a.currentRate * math.Pow(a.backoffFactor, float64(failureStreak))
	if newRate < a.minRate {
		newRate = a.minRate
	}
	a.setRateLocked(newRate)
}

func (a *AdaptiveLimiter) recover() {
	a.mu.Lock()
	defer a.mu.Unlock()

	atomic.StoreInt64(&a.successStreak, 0)

	if a.currentRate >= a.maxRate {
		return
	}
	if time.Since(a.lastAdjustment) < recoveryInterval {
		return
	}

	newRate := a.currentRate * a.recoveryFactor
	if newRate > a.maxRate {
		newRate = a.maxRate
	}
	a.setRateLocked(newRate)
}

// setRateLocked applies newRate when it differs from the rate in force.
// Caller must hold mu.
func (a *AdaptiveLimiter) setRateLocked(newRate float64) {
	if newRate == a.currentRate {
		return
	}

	a.currentRate = newRate
	a.limiter.SetRate(newRate)
	a.lastAdjustment = time.Now()
	atomic.AddInt64(&a.adaptations, 1)
	atomic.StoreInt32(&a.level, a.levelLocked())
}

// levelLocked maps the current rate onto a 0-100 scale: 0 at minRate, 50
// at baseRate, 100 at maxRate. Caller must hold mu.
func (a *AdaptiveLimiter) levelLocked() int32 {
	if a.currentRate <= a.baseRate {
		if span := a.baseRate - a.minRate; span > 0 {
			return int32((a.currentRate - a.minRate) / span * 50)
		}
		return 50
	}
	if span := a.maxRate - a.baseRate; span > 0 {
		return 50 + int32((a.currentRate-a.baseRate)/span*50)
	}
	return 100
}

// AdaptiveLimiterStats is a point-in-time snapshot for health reporting.
type AdaptiveLimiterStats struct {
	CurrentRate     float64
	BaseRate        float64
	MinRate         float64
	MaxRate         float64
	Level           int // 0 at minRate, 50 at baseRate, 100 at maxRate
	TotalRequests   int64
	RateLimitHits   int64
	Adaptations     int64
	AvailableTokens float64
}

// Stats snapshots the limiter.
func (a *AdaptiveLimiter) Stats() AdaptiveLimiterStats {
	a.mu.RLock()
	currentRate := a.currentRate
	a.mu.RUnlock()

	_, _, tokens := a.limiter.Stats()

	return AdaptiveLimiterStats{
		CurrentRate:     currentRate,
		BaseRate:        a.baseRate,
		MinRate:         a.minRate,
		MaxRate:         a.maxRate,
		Level:           int(atomic.LoadInt32(&a.level)),
		TotalRequests:   atomic.LoadInt64(&a.totalRequests),
		RateLimitHits:   atomic.LoadInt64(&a.rateLimitHits),
		Adaptations:     atomic.LoadInt64(&a.adaptations),
		AvailableTokens: tokens,
	}
}
