package anchors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/dinahmaccodes/stellar-insights/internal/horizon"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/cache"
	"github.com/dinahmaccodes/stellar-insights/internal/storage"
)

const (
	anchorID1 = "11111111-1111-1111-1111-111111111111"
	anchorID2 = "22222222-2222-2222-2222-222222222222"
)

type fakeStore struct {
	mu         sync.Mutex
	anchors    []storage.Anchor
	assets     map[string][]storage.Asset
	listErr    error
	assetsErr  error
	listCalls  int
	assetCalls []uuid.UUID
}

func (f *fakeStore) ListAnchors(ctx context.Context, limit, offset int) ([]storage.Anchor, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()

	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.anchors, nil
}

func (f *fakeStore) GetAssetsByAnchor(ctx context.Context, anchorID uuid.UUID) ([]storage.Asset, error) {
	f.mu.Lock()
	f.assetCalls = append(f.assetCalls, anchorID)
	f.mu.Unlock()

	if f.assetsErr != nil {
		return nil, f.assetsErr
	}
	return f.assets[anchorID.String()], nil
}

func (f *fakeStore) getListCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakePayments struct {
	mu        sync.Mutex
	byAccount map[string][]horizon.Payment
	errFor    map[string]error
	calls     int
}

func (f *fakePayments) FetchAccountPayments(ctx context.Context, account string, limit int) ([]horizon.Payment, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := f.errFor[account]; err != nil {
		return nil, err
	}
	return f.byAccount[account], nil
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]*Alert
}

func (f *fakePublisher) PublishAlert(ctx context.Context, alert *Alert) error {
	return f.PublishBatch(ctx, []*Alert{alert})
}

func (f *fakePublisher) PublishBatch(ctx context.Context, alerts []*Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, alerts)
	return nil
}

func (f *fakePublisher) getBatches() [][]*Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func storedAnchor(id, name, account string) storage.Anchor {
	return storage.Anchor{
		ID:                     id,
		Name:                   name,
		StellarAccount:         account,
		ReliabilityScore:       95.5,
		TotalTransactions:      100,
		SuccessfulTransactions: 90,
		FailedTransactions:     10,
	}
}

func livePayments(n int) []horizon.Payment {
	payments := make([]horizon.Payment, n)
	for i := range payments {
		payments[i] = horizon.Payment{
			ID:     fmt.Sprintf("op-%d", i),
			Type:   "payment",
			Amount: "10.0000000",
		}
	}
	return payments
}

func newTestService(t *testing.T, store *fakeStore, payments *fakePayments, publisher AlertPublisher, alertsEnabled bool) *Service {
	t.Helper()

	memCache := cache.NewMemoryCache(100)
	t.Cleanup(func() { memCache.Close() })

	svc, err := NewService(ServiceConfig{
		Store:         store,
		Payments:      payments,
		Cache:         memCache,
		Publisher:     publisher,
		AlertsEnabled: alertsEnabled,
	})
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return svc
}

func TestService_List_LiveFeed(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{storedAnchor(anchorID1, "StableAnchor", "GANCHOR1")},
		assets: map[string][]storage.Asset{
			anchorID1: {{Code: "USDC"}, {Code: "EURC"}, {Code: "BRLT"}},
		},
	}
	payments := &fakePayments{
		byAccount: map[string][]horizon.Payment{"GANCHOR1": livePayments(5)},
	}

	svc := newTestService(t, store, payments, nil, false)

	resp, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if resp.Total != 1 || len(resp.Anchors) != 1 {
		t.Fatalf("Expected 1 anchor, got total=%d len=%d", resp.Total, len(resp.Anchors))
	}

	m := resp.Anchors[0]
	if m.TotalTransactions != 5 || m.SuccessfulTransactions != 5 || m.FailedTransactions != 0 {
		t.Errorf("Expected live counters (5, 5, 0), got (%d, %d, %d)",
			m.TotalTransactions, m.SuccessfulTransactions, m.FailedTransactions)
	}
	if m.ReliabilityScore != 100.0 {
		t.Errorf("Expected reliability 100 from live feed, got %v", m.ReliabilityScore)
	}
	if m.FailureRate != 0.0 {
		t.Errorf("Expected failure rate 0, got %v", m.FailureRate)
	}
	if m.Status != StatusGreen {
		t.Errorf("Expected status green, got %q", m.Status)
	}
	if m.AssetCoverage != 3 {
		t.Errorf("Expected asset coverage 3, got %d", m.AssetCoverage)
	}
}

func TestService_List_FallbackOnFetchError(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{storedAnchor(anchorID1, "FlakyAnchor", "GANCHOR1")},
		assets:  map[string][]storage.Asset{anchorID1: {{Code: "USDC"}}},
	}
	payments := &fakePayments{
		errFor: map[string]error{"GANCHOR1": errors.New("horizon unavailable")},
	}

	svc := newTestService(t, store, payments, nil, false)

	resp, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("Expected fallback, not error: %v", err)
	}

	m := resp.Anchors[0]
	if m.TotalTransactions != 100 || m.SuccessfulTransactions != 90 || m.FailedTransactions != 10 {
		t.Errorf("Expected stored counters (100, 90, 10), got (%d, %d, %d)",
			m.TotalTransactions, m.SuccessfulTransactions, m.FailedTransactions)
	}
	if m.ReliabilityScore != 90.0 {
		t.Errorf("Expected reliability 90 from stored counters, got %v", m.ReliabilityScore)
	}
	if m.FailureRate != 10.0 {
		t.Errorf("Expected failure rate 10, got %v", m.FailureRate)
	}
	if m.Status != StatusRed {
		t.Errorf("Expected status red, got %q", m.Status)
	}
}

func TestService_List_FallbackOnEmptyFeed(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{storedAnchor(anchorID1, "QuietAnchor", "GANCHOR1")},
		assets:  map[string][]storage.Asset{},
	}
	payments := &fakePayments{
		byAccount: map[string][]horizon.Payment{"GANCHOR1": nil},
	}

	svc := newTestService(t, store, payments, nil, false)

	resp, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	m := resp.Anchors[0]
	if m.TotalTransactions != 100 {
		t.Errorf("Expected stored total 100 on empty feed, got %d", m.TotalTransactions)
	}
	if m.ReliabilityScore != 90.0 {
		t.Errorf("Expected reliability 90, got %v", m.ReliabilityScore)
	}
}

func TestService_List_StoredScoreWhenNoTransactions(t *testing.T) {
	anchor := storage.Anchor{
		ID:               anchorID1,
		Name:             "NewAnchor",
		StellarAccount:   "GANCHOR1",
		ReliabilityScore: 97.5,
	}
	store := &fakeStore{anchors: []storage.Anchor{anchor}}
	payments := &fakePayments{}

	svc := newTestService(t, store, payments, nil, false)

	resp, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	m := resp.Anchors[0]
	if m.ReliabilityScore != 97.5 {
		t.Errorf("Expected stored score 97.5 with zero transactions, got %v", m.ReliabilityScore)
	}
	if m.FailureRate != 0.0 {
		t.Errorf("Expected failure rate 0 with zero transactions, got %v", m.FailureRate)
	}
	if m.Status != StatusYellow {
		t.Errorf("Expected status yellow for 97.5, got %q", m.Status)
	}
}

func TestService_List_CachesResult(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{storedAnchor(anchorID1, "CachedAnchor", "GANCHOR1")},
	}
	payments := &fakePayments{
		byAccount: map[string][]horizon.Payment{"GANCHOR1": livePayments(3)},
	}

	svc := newTestService(t, store, payments, nil, false)

	first, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("First List failed: %v", err)
	}
	second, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("Second List failed: %v", err)
	}

	if store.getListCalls() != 1 {
		t.Errorf("Expected 1 store query (second call cached), got %d", store.getListCalls())
	}
	if first.Total != second.Total || len(first.Anchors) != len(second.Anchors) {
		t.Error("Expected cached response to match computed response")
	}

	// A different page misses the cache
	if _, err := svc.List(context.Background(), 50, 50); err != nil {
		t.Fatalf("Offset List failed: %v", err)
	}
	if store.getListCalls() != 2 {
		t.Errorf("Expected 2 store queries after new offset, got %d", store.getListCalls())
	}
}

func TestService_List_AssetErrorFailsRequest(t *testing.T) {
	store := &fakeStore{
		anchors:   []storage.Anchor{storedAnchor(anchorID1, "BrokenAnchor", "GANCHOR1")},
		assetsErr: errors.New("connection reset"),
	}
	payments := &fakePayments{}

	svc := newTestService(t, store, payments, nil, false)

	_, err := svc.List(context.Background(), 50, 0)
	if err == nil {
		t.Fatal("Expected error when asset lookup fails")
	}
}

func TestService_List_FallbackIsolatedPerAnchor(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{
			storedAnchor(anchorID1, "HealthyAnchor", "GANCHOR1"),
			storedAnchor(anchorID2, "FlakyAnchor", "GANCHOR2"),
		},
	}
	payments := &fakePayments{
		byAccount: map[string][]horizon.Payment{"GANCHOR1": livePayments(4)},
		errFor:    map[string]error{"GANCHOR2": errors.New("timeout")},
	}

	svc := newTestService(t, store, payments, nil, false)

	resp, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Anchors) != 2 {
		t.Fatalf("Expected 2 anchors, got %d", len(resp.Anchors))
	}

	// Store order is preserved
	if resp.Anchors[0].ID != anchorID1 || resp.Anchors[1].ID != anchorID2 {
		t.Errorf("Expected store order preserved, got %q then %q", resp.Anchors[0].ID, resp.Anchors[1].ID)
	}

	if resp.Anchors[0].ReliabilityScore != 100.0 {
		t.Errorf("Expected live score 100 for healthy anchor, got %v", resp.Anchors[0].ReliabilityScore)
	}
	if resp.Anchors[1].ReliabilityScore != 90.0 {
		t.Errorf("Expected stored score 90 for flaky anchor, got %v", resp.Anchors[1].ReliabilityScore)
	}
}

func TestService_List_PublishesRedAlerts(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{
			storedAnchor(anchorID1, "HealthyAnchor", "GANCHOR1"),
			storedAnchor(anchorID2, "DegradedAnchor", "GANCHOR2"),
		},
	}
	payments := &fakePayments{
		byAccount: map[string][]horizon.Payment{"GANCHOR1": livePayments(4)},
		errFor:    map[string]error{"GANCHOR2": errors.New("timeout")},
	}
	publisher := &fakePublisher{}

	svc := newTestService(t, store, payments, publisher, true)

	if _, err := svc.List(context.Background(), 50, 0); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	batches := publisher.getBatches()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 alert batch, got %d", len(batches))
	}
	if len(batches[0]) != 1 {
		t.Fatalf("Expected 1 alert in batch, got %d", len(batches[0]))
	}

	alert := batches[0][0]
	if alert.AnchorID != anchorID2 {
		t.Errorf("Expected alert for degraded anchor, got %q", alert.AnchorID)
	}
	if alert.Status != StatusRed {
		t.Errorf("Expected red alert, got %q", alert.Status)
	}
	if alert.ReliabilityScore != 90.0 {
		t.Errorf("Expected alert score 90, got %v", alert.ReliabilityScore)
	}
}

func TestService_List_NoAlertsWhenDisabled(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{storedAnchor(anchorID1, "DegradedAnchor", "GANCHOR1")},
	}
	payments := &fakePayments{
		errFor: map[string]error{"GANCHOR1": errors.New("timeout")},
	}
	publisher := &fakePublisher{}

	svc := newTestService(t, store, payments, publisher, false)

	if _, err := svc.List(context.Background(), 50, 0); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(publisher.getBatches()) != 0 {
		t.Errorf("Expected no alerts with alerting disabled, got %d batches", len(publisher.getBatches()))
	}
}

func TestService_List_MalformedAnchorIDUsesNilUUID(t *testing.T) {
	anchor := storedAnchor("not-a-uuid", "LegacyAnchor", "GANCHOR1")
	store := &fakeStore{anchors: []storage.Anchor{anchor}}
	payments := &fakePayments{}

	svc := newTestService(t, store, payments, nil, false)

	resp, err := svc.List(context.Background(), 50, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	store.mu.Lock()
	assetCalls := append([]uuid.UUID(nil), store.assetCalls...)
	store.mu.Unlock()

	if len(assetCalls) != 1 || assetCalls[0] != uuid.Nil {
		t.Errorf("Expected asset lookup with nil UUID, got %v", assetCalls)
	}
	if resp.Anchors[0].ID != "not-a-uuid" {
		t.Errorf("Expected original ID preserved in response, got %q", resp.Anchors[0].ID)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100.0, StatusGreen},
		{99.0, StatusGreen},
		{98.999, StatusYellow},
		{95.0, StatusYellow},
		{94.999, StatusRed},
		{0.0, StatusRed},
	}

	for _, tt := range tests {
		if got := statusFor(tt.score); got != tt.want {
			t.Errorf("statusFor(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestService_Warmup(t *testing.T) {
	store := &fakeStore{
		anchors: []storage.Anchor{storedAnchor(anchorID1, "WarmAnchor", "GANCHOR1")},
	}
	payments := &fakePayments{
		byAccount: map[string][]horizon.Payment{"GANCHOR1": livePayments(2)},
	}

	svc := newTestService(t, store, payments, nil, false)

	if err := svc.Warmup(context.Background()); err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}

	// The default page is now cached
	if _, err := svc.List(context.Background(), 50, 0); err != nil {
		t.Fatalf("List after warmup failed: %v", err)
	}
	if store.getListCalls() != 1 {
		t.Errorf("Expected warmed page served from cache, got %d store queries", store.getListCalls())
	}
}
