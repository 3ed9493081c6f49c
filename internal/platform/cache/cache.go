// Package cache provides the caching layer the metrics pipeline sits
// behind: a byte-oriented Store interface with memory, Redis, and layered
// implementations, deterministic key construction, a typed cache-aside
// helper, and startup warming.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned on a cache miss.
var ErrNotFound = errors.New("cache: key not found")

// ErrInvalidValue is returned when a cached payload cannot be decoded
// into the requested type.
var ErrInvalidValue = errors.New("cache: invalid value")

// Store is a byte-oriented cache. Encoding is the caller's concern; the
// typed path lives in GetOrFetch.
type Store interface {
	// Get returns the value under key, or ErrNotFound on a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

var (
	_ Store = (*MemoryCache)(nil)
	_ Store = (*RedisCache)(nil)
	_ Store = (*LayeredCache)(nil)
)
