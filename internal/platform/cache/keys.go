package cache

import "fmt"

// Resource tags used for TTL resolution (see config.CacheConfig.TTLFor).
const (
	ResourceAnchor   = "anchor"
	ResourceCorridor = "corridor"
)

// AnchorListKey builds the cache key for a paginated anchor list query.
// Format: anchor:list:{limit}:{offset}
func AnchorListKey(limit, offset int) string {
	return fmt.Sprintf("anchor:list:%d:%d", limit, offset)
}

// CorridorListKey builds the cache key for a corridor list query. The
// fingerprint encodes the full filter set so queries with different
// filters never share an entry.
// Format: corridor:list:{limit}:{offset}:{fingerprint}
func CorridorListKey(limit, offset int, fingerprint string) string {
	return fmt.Sprintf("corridor:list:%d:%d:%s", limit, offset, fingerprint)
}
