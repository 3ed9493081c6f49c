package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// DefaultL1MaxTTL caps how long entries live in the in-memory layer.
// L2 keeps the full TTL; L1 staleness is bounded by this value.
const DefaultL1MaxTTL = 1 * time.Minute

// LayeredCache implements a two-tier cache (L1: memory, L2: Redis).
// Reads check L1 first and backfill it on an L2 hit. Writes go through
// to both layers. A missing layer is skipped, so the cache also works
// in L1-only or L2-only mode.
type LayeredCache struct {
	l1       Store
	l2       Store
	l1MaxTTL time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// LayeredCacheConfig holds layered cache configuration.
type LayeredCacheConfig struct {
	L1       Store
	L2       Store
	L1MaxTTL time.Duration
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// NewLayeredCache creates a layered cache with default settings.
func NewLayeredCache(l1, l2 Store) *LayeredCache {
	return NewLayeredCacheWithConfig(LayeredCacheConfig{L1: l1, L2: l2})
}

// NewLayeredCacheWithLogger creates a layered cache that logs degraded
// layer operations.
func NewLayeredCacheWithLogger(l1, l2 Store, logger *slog.Logger) *LayeredCache {
	return NewLayeredCacheWithConfig(LayeredCacheConfig{L1: l1, L2: l2, Logger: logger})
}

// NewLayeredCacheWithConfig creates a new layered cache.
func NewLayeredCacheWithConfig(cfg LayeredCacheConfig) *LayeredCache {
	if cfg.L1MaxTTL <= 0 {
		cfg.L1MaxTTL = DefaultL1MaxTTL
	}

	return &LayeredCache{
		l1:       cfg.L1,
		l2:       cfg.L2,
		l1MaxTTL: cfg.L1MaxTTL,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Get retrieves a value from cache (L1 → L2 → miss). An L1 failure
// degrades to L2; an L2 failure other than a miss is propagated, since
// the caller cannot tell a broken cache from a cold one.
func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if lc.l1 != nil {
		val, err := lc.l1.Get(ctx, key)
		if err == nil {
			lc.recordHit(ctx, "l1")
			return val, nil
		}
		if !errors.Is(err, ErrNotFound) && lc.logger != nil {
			lc.logger.Warn("l1 cache read failed, falling back to l2",
				"key", key,
				"error", err,
			)
		}
		lc.recordMiss(ctx, "l1")
	}

	if lc.l2 != nil {
		val, err := lc.l2.Get(ctx, key)
		if err == nil {
			lc.recordHit(ctx, "l2")
			// Backfill L1 on L2 hit
			if lc.l1 != nil {
				_ = lc.l1.Set(ctx, key, val, lc.l1MaxTTL)
			}
			return val, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		lc.recordMiss(ctx, "l2")
	}

	return nil, ErrNotFound
}

// Set stores a value in both cache layers (write-through). L1 TTL is
// capped at l1MaxTTL. Returns an error only when no layer accepted the
// write.
func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var firstErr error
	wrote := false

	if lc.l1 != nil {
		l1TTL := ttl
		if l1TTL > lc.l1MaxTTL {
			l1TTL = lc.l1MaxTTL
		}
		if err := lc.l1.Set(ctx, key, value, l1TTL); err != nil {
			firstErr = err
			if lc.logger != nil {
				lc.logger.Warn("l1 cache write failed", "key", key, "error", err)
			}
		} else {
			wrote = true
		}
	}

	if lc.l2 != nil {
		if err := lc.l2.Set(ctx, key, value, ttl); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			if lc.logger != nil {
				lc.logger.Warn("l2 cache write failed", "key", key, "error", err)
			}
		} else {
			wrote = true
		}
	}

	if !wrote && firstErr != nil {
		return firstErr
	}

	return nil
}

// Delete removes a key from both cache layers
func (lc *LayeredCache) Delete(ctx context.Context, key string) error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Delete(ctx, key)
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Delete(ctx, key)
	}

	if l1Err != nil {
		return l1Err
	}
	if l2Err != nil {
		return l2Err
	}

	return nil
}

// Close closes both cache layers
func (lc *LayeredCache) Close() error {
	var l1Err, l2Err error

	if lc.l1 != nil {
		l1Err = lc.l1.Close()
	}

	if lc.l2 != nil {
		l2Err = lc.l2.Close()
	}

	if l1Err != nil {
		return l1Err
	}
	if l2Err != nil {
		return l2Err
	}

	return nil
}

// InvalidateL1 invalidates only L1 cache for a key.
// Useful when you want to force a read from L2.
func (lc *LayeredCache) InvalidateL1(ctx context.Context, key string) error {
	if lc.l1 != nil {
		return lc.l1.Delete(ctx, key)
	}
	return nil
}

func (lc *LayeredCache) recordHit(ctx context.Context, layer string) {
	if lc.metrics != nil {
		lc.metrics.RecordCacheHit(ctx, layer)
	}
}

func (lc *LayeredCache) recordMiss(ctx context.Context, layer string) {
	if lc.metrics != nil {
		lc.metrics.RecordCacheMiss(ctx, layer)
	}
}
