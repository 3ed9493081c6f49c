package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// fakeStore is an in-memory Store with injectable failures and call
// counters, shared by the layered cache and cache-aside tests.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	getErr  error
	setErr  error
	gets    int
	sets    int
}

type fakeEntry struct {
	value     []byte
	expiresAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]fakeEntry)}
}

func (f *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++

	if f.getErr != nil {
		return nil, f.getErr
	}

	e, ok := f.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (f *fakeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++

	if f.setErr != nil {
		return f.setErr
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	f.entries[key] = fakeEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func (f *fakeStore) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sets
}

// ttlOf returns the remaining TTL for key, or false if absent.
func (f *fakeStore) ttlOf(key string) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[key]
	if !ok {
		return 0, false
	}
	return time.Until(e.expiresAt), true
}

func TestLayeredCache_L1MissFallsThroughToL2(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	lc := NewLayeredCache(l1, l2)

	want := []byte("anchors-page")
	if err := l2.Set(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("Seed L2: %v", err)
	}

	got, err := lc.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Expected L2 value, got error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}

	// One lookup per layer: L1 missed, L2 answered
	if l1.getCount() != 1 || l2.getCount() != 1 {
		t.Errorf("Expected 1 get per layer, got l1=%d l2=%d", l1.getCount(), l2.getCount())
	}

	t.Log("✓ L1 miss falls through to L2")
}

func TestLayeredCache_L2HitBackfillsL1(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	lc := NewLayeredCache(l1, l2)

	want := []byte("corridors-page")
	if err := l2.Set(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("Seed L2: %v", err)
	}

	if _, err := lc.Get(ctx, "k"); err != nil {
		t.Fatalf("First get: %v", err)
	}
	if l1.setCount() != 1 {
		t.Fatalf("Expected L1 backfill write, got %d sets", l1.setCount())
	}

	// Second read is served from L1 alone
	l2GetsBefore := l2.getCount()
	got, err := lc.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Second get: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q from L1, got %q", want, got)
	}
	if l2.getCount() != l2GetsBefore {
		t.Errorf("Expected no L2 lookups after backfill, got %d more", l2.getCount()-l2GetsBefore)
	}

	t.Log("✓ L2 hit backfills L1 for subsequent reads")
}

func TestLayeredCache_L1TTLCapped(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	lc := NewLayeredCacheWithConfig(LayeredCacheConfig{
		L1:       l1,
		L2:       l2,
		L1MaxTTL: 30 * time.Second,
	})

	if err := lc.Set(ctx, "k", []byte("v"), 5*time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	l1TTL, ok := l1.ttlOf("k")
	if !ok {
		t.Fatal("Key missing from L1")
	}
	if l1TTL > 31*time.Second {
		t.Errorf("Expected L1 TTL capped at 30s, got %v", l1TTL)
	}

	l2TTL, ok := l2.ttlOf("k")
	if !ok {
		t.Fatal("Key missing from L2")
	}
	if l2TTL < 4*time.Minute {
		t.Errorf("Expected L2 to keep the full 5m TTL, got %v", l2TTL)
	}
}

func TestLayeredCache_L1ReadErrorDegradesToL2(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	l1.getErr = errors.New("l1 connection failed")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	lc := NewLayeredCacheWithLogger(l1, l2, logger)

	want := []byte("survives")
	if err := l2.Set(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("Seed L2: %v", err)
	}

	got, err := lc.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Expected degradation to L2, got error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Expected %q, got %q", want, got)
	}

	t.Log("✓ Broken L1 degrades reads to L2")
}

func TestLayeredCache_L1WriteErrorToleratedWhenL2Accepts(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	l1.setErr = errors.New("l1 write failed")

	lc := NewLayeredCache(l1, l2)

	if err := lc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Errorf("Expected Set to succeed via L2, got %v", err)
	}
	if _, err := l2.Get(ctx, "k"); err != nil {
		t.Errorf("Expected value in L2: %v", err)
	}
}

func TestLayeredCache_SingleLayerModes(t *testing.T) {
	ctx := context.Background()

	t.Run("l1 only", func(t *testing.T) {
		l1 := newFakeStore()
		lc := NewLayeredCache(l1, nil)

		if err := lc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if got, err := lc.Get(ctx, "k"); err != nil || !bytes.Equal(got, []byte("v")) {
			t.Fatalf("Get = %q, %v", got, err)
		}
		if err := lc.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := lc.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("l2 only", func(t *testing.T) {
		l2 := newFakeStore()
		lc := NewLayeredCache(nil, l2)

		if err := lc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set: %v", err)
		}
		if got, err := lc.Get(ctx, "k"); err != nil || !bytes.Equal(got, []byte("v")) {
			t.Fatalf("Get = %q, %v", got, err)
		}
	})
}

func TestLayeredCache_SetFailsWhenNoLayerAccepts(t *testing.T) {
	ctx := context.Background()
	l2 := newFakeStore()
	l2.setErr = errors.New("l2 write failed")

	lc := NewLayeredCache(nil, l2)

	if err := lc.Set(ctx, "k", []byte("v"), time.Minute); err == nil {
		t.Error("Expected Set error when the only layer refuses the write")
	}
}

func TestLayeredCache_InvalidateL1(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	lc := NewLayeredCache(l1, l2)

	want := []byte("v")
	if err := lc.Set(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := lc.InvalidateL1(ctx, "k"); err != nil {
		t.Fatalf("InvalidateL1: %v", err)
	}

	if _, err := l1.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected L1 invalidated, got %v", err)
	}
	if got, err := l2.Get(ctx, "k"); err != nil || !bytes.Equal(got, want) {
		t.Errorf("Expected L2 untouched, got %q, %v", got, err)
	}

	// The next layered read repopulates L1 from L2
	if got, err := lc.Get(ctx, "k"); err != nil || !bytes.Equal(got, want) {
		t.Fatalf("Get after invalidate = %q, %v", got, err)
	}
	if _, err := l1.Get(ctx, "k"); err != nil {
		t.Errorf("Expected L1 repopulated: %v", err)
	}
}

func TestLayeredCache_MissReturnsNotFound(t *testing.T) {
	lc := NewLayeredCache(newFakeStore(), newFakeStore())

	if _, err := lc.Get(context.Background(), "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLayeredCache_L2ErrorPropagates(t *testing.T) {
	l1, l2 := newFakeStore(), newFakeStore()
	l2.getErr = errors.New("l2 connection failed")

	lc := NewLayeredCache(l1, l2)

	_, err := lc.Get(context.Background(), "k")
	if err == nil {
		t.Fatal("Expected L2 error to propagate")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Expected the transport error, not ErrNotFound")
	}

	t.Log("✓ A broken L2 is distinguishable from a cold cache")
}

func TestLayeredCache_WriteThrough(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()
	lc := NewLayeredCache(l1, l2)

	want := []byte("v")
	if err := lc.Set(ctx, "k", want, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	for name, layer := range map[string]*fakeStore{"l1": l1, "l2": l2} {
		got, err := layer.Get(ctx, "k")
		if err != nil {
			t.Fatalf("Expected %s to hold the value: %v", name, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%s value mismatch: expected %q, got %q", name, want, got)
		}
	}
}

func TestLayeredCache_DefaultL1MaxTTL(t *testing.T) {
	lc := NewLayeredCache(newFakeStore(), newFakeStore())

	if lc.l1MaxTTL != DefaultL1MaxTTL {
		t.Errorf("Expected default L1 max TTL %v, got %v", DefaultL1MaxTTL, lc.l1MaxTTL)
	}
	if DefaultL1MaxTTL != time.Minute {
		t.Errorf("Expected DefaultL1MaxTTL of 1m, got %v", DefaultL1MaxTTL)
	}
}

func TestLayeredCache_MetricsWiringToleratesDisabledMetrics(t *testing.T) {
	ctx := context.Background()
	l1, l2 := newFakeStore(), newFakeStore()

	metrics, err := observability.NewMetrics("test", false)
	if err != nil {
		t.Fatalf("Failed to create metrics: %v", err)
	}

	lc := NewLayeredCacheWithConfig(LayeredCacheConfig{
		L1:      l1,
		L2:      l2,
		Metrics: metrics,
	})

	if err := lc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := lc.Get(ctx, "k"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := lc.Get(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestLayeredCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	lc := NewLayeredCache(newFakeStore(), newFakeStore())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = lc.Set(ctx, "shared", []byte(strconv.Itoa(id*1000+j)), time.Minute)
			}
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, _ = lc.Get(ctx, "shared")
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Error("Concurrent access timed out")
	}
}
