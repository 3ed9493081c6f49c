package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetOrFetch implements the cache-aside pattern for typed values: return
// the decoded cached value on a hit; on a miss run compute, store the
// JSON-encoded result under key with the given TTL, and return it.
//
// compute runs only on a miss and its failure propagates without a cache
// write. Store failures (reads other than a miss, undecodable hits, and
// failed writes) also fail the call. Concurrent misses on the same key
// may each run compute; last write wins.
func GetOrFetch[T any](ctx context.Context, store Store, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	var zero T

	data, err := store.Get(ctx, key)
	if err == nil {
		var cached T
		if err := json.Unmarshal(data, &cached); err != nil {
			return zero, fmt.Errorf("%w: decode %s: %v", ErrInvalidValue, key, err)
		}
		return cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return zero, fmt.Errorf("cache get %s: %w", key, err)
	}

	value, err := compute(ctx)
	if err != nil {
		return zero, err
	}

	data, err = json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", key, err)
	}

	if err := store.Set(ctx, key, data, ttl); err != nil {
		return zero, fmt.Errorf("cache set %s: %w", key, err)
	}

	return value, nil
}
