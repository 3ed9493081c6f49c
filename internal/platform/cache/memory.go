package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultMemoryCacheSize = 1000
	sweepInterval          = time.Minute
)

// entry is a single cached value tracked by the eviction list.
type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// MemoryCache is the in-process L1 store: an LRU map bounded by maxSize
// with per-entry TTLs. A background janitor sweeps expired entries so
// rarely-read keys do not pin memory until eviction.
type MemoryCache struct {
	maxSize int

	mu    sync.Mutex
	index map[string]*list.Element
	order *list.List // front = most recently used

	done chan struct{}
}

// NewMemoryCache creates an in-memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = defaultMemoryCacheSize
	}

	c := &MemoryCache{
		maxSize: maxSize,
		index:   make(map[string]*list.Element),
		order:   list.New(),
		done:    make(chan struct{}),
	}
	go c.janitor()

	return c
}

// Get returns the cached value or ErrNotFound. Reading an expired entry
// removes it.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[key]
	if !ok {
		return nil, ErrNotFound
	}

	ent := elem.Value.(*entry)
	if ent.expired(time.Now()) {
		c.removeLocked(elem)
		return nil, ErrNotFound
	}

	c.order.MoveToFront(elem)
	return ent.value, nil
}

// Set stores value under key for ttl, evicting from the LRU tail when the
// cache is over capacity.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)

	if elem, ok := c.index[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(elem)
		return nil
	}

	c.index[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})

	for c.order.Len() > c.maxSize {
		tail := c.order.Back()
		if tail == nil {
			break
		}
		c.removeLocked(tail)
	}

	return nil
}

// Delete removes key if present.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[key]; ok {
		c.removeLocked(elem)
	}
	return nil
}

// Close stops the janitor.
func (c *MemoryCache) Close() error {
	close(c.done)
	return nil
}

// Len returns the number of entries currently held, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.index)
}

// removeLocked unlinks an element from the index and the eviction list.
// Caller must hold mu.
func (c *MemoryCache) removeLocked(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.index, elem.Value.(*entry).key)
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

// sweep drops every expired entry in one pass.
func (c *MemoryCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).expired(now) {
			c.removeLocked(elem)
		}
		elem = prev
	}
}
