package anchors

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dinahmaccodes/stellar-insights/internal/horizon"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/cache"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
	"github.com/dinahmaccodes/stellar-insights/internal/storage"
)

// MetadataStore provides anchor metadata.
// Interfaces defined where they're consumed (Dependency Inversion Principle)
type MetadataStore interface {
	ListAnchors(ctx context.Context, limit, offset int) ([]storage.Anchor, error)
	GetAssetsByAnchor(ctx context.Context, anchorID uuid.UUID) ([]storage.Asset, error)
}

// PaymentSource provides recent payment operations for an account
type PaymentSource interface {
	FetchAccountPayments(ctx context.Context, account string, limit int) ([]horizon.Payment, error)
}

// Fallback reasons recorded when an anchor's live feed cannot be used.
const (
	fallbackFetchError = "fetch_error"
	fallbackEmptyFeed  = "empty_feed"
)

// Service computes anchor reliability metrics, blending stored counters
// with the live payment feed and serving results through the cache.
type Service struct {
	store         MetadataStore
	payments      PaymentSource
	cache         cache.Store
	publisher     AlertPublisher
	alertsEnabled bool
	logger        *observability.Logger
	metrics       *observability.Metrics
	tracer        observability.Tracer

	cacheTTL     time.Duration
	pageLimit    int
	defaultLimit int
	fetchLimiter *semaphore.Weighted
}

// ServiceConfig holds anchors service configuration
type ServiceConfig struct {
	Store          MetadataStore
	Payments       PaymentSource
	Cache          cache.Store
	Publisher      AlertPublisher
	AlertsEnabled  bool
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	Tracer         observability.Tracer
	CacheTTL       time.Duration
	PageLimit      int
	DefaultLimit   int
	MaxConcurrency int64
}

// NewService creates a new anchors service
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if cfg.Payments == nil {
		return nil, fmt.Errorf("payment source is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = 200
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 8
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoopTracer()
	}

	return &Service{
		store:         cfg.Store,
		payments:      cfg.Payments,
		cache:         cfg.Cache,
		publisher:     cfg.Publisher,
		alertsEnabled: cfg.AlertsEnabled && cfg.Publisher != nil,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		tracer:        cfg.Tracer,
		cacheTTL:      cfg.CacheTTL,
		pageLimit:     cfg.PageLimit,
		defaultLimit:  cfg.DefaultLimit,
		fetchLimiter:  semaphore.NewWeighted(cfg.MaxConcurrency),
	}, nil
}

// List returns the anchors page for (limit, offset), served from cache
// when a fresh entry exists.
func (s *Service) List(ctx context.Context, limit, offset int) (ListResponse, error) {
	key := cache.AnchorListKey(limit, offset)
	return cache.GetOrFetch(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (ListResponse, error) {
		return s.computeList(ctx, limit, offset)
	})
}

// computeList rebuilds the anchors page from the store and the live feed.
func (s *Service) computeList(ctx context.Context, limit, offset int) (_ ListResponse, err error) {
	ctx, span := s.tracer.StartSpan(ctx, "anchors.compute_list",
		observability.WithAttributes(
			attribute.Int("limit", limit),
			attribute.Int("offset", offset),
		),
	)
	start := time.Now()
	defer func() {
		if err != nil {
			span.NoticeError(err)
		}
		span.End()

		if s.metrics != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			s.metrics.RecordPipelineFetch(ctx, "anchor", status, time.Since(start))
		}
	}()

	anchors, err := s.store.ListAnchors(ctx, limit, offset)
	if err != nil {
		return ListResponse{}, fmt.Errorf("failed to list anchors: %w", err)
	}

	// Fan out per anchor; results are indexed so store order is preserved.
	results := make([]AnchorMetrics, len(anchors))

	g, gctx := errgroup.WithContext(ctx)
	for i, anchor := range anchors {
		g.Go(func() error {
			if err := s.fetchLimiter.Acquire(gctx, 1); err != nil {
				return err
			}
			defer s.fetchLimiter.Release(1)

			m, fallbackReason, err := s.computeAnchor(gctx, anchor)
			if err != nil {
				return err
			}
			if fallbackReason != "" && s.metrics != nil {
				s.metrics.RecordAnchorFallback(gctx, fallbackReason)
			}

			results[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ListResponse{}, err
	}

	s.publishRedAlerts(ctx, results)

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordAnchorsProcessed(ctx, int64(len(results)))
	}
	if s.logger != nil {
		s.logger.Info("computed anchor metrics",
			"anchors", len(results),
			"limit", limit,
			"offset", offset,
			"duration_ms", duration.Milliseconds(),
		)
	}

	return ListResponse{
		Anchors: results,
		Total:   len(results),
	}, nil
}

// computeAnchor derives one anchor's metrics. The returned fallback reason
// is empty when the live feed was used.
func (s *Service) computeAnchor(ctx context.Context, anchor storage.Anchor) (AnchorMetrics, string, error) {
	// A malformed anchor ID degrades to the nil UUID rather than failing
	// the whole page.
	anchorID, err := uuid.Parse(anchor.ID)
	if err != nil {
		anchorID = uuid.Nil
	}

	assets, err := s.store.GetAssetsByAnchor(ctx, anchorID)
	if err != nil {
		return AnchorMetrics{}, "", fmt.Errorf("failed to get assets for anchor %s: %w", anchor.ID, err)
	}

	fallbackReason := ""
	payments, err := s.payments.FetchAccountPayments(ctx, anchor.StellarAccount, s.pageLimit)
	if err != nil {
		fallbackReason = fallbackFetchError
		if s.logger != nil {
			s.logger.Warn("failed to fetch live payments, using stored counters",
				"anchor", anchor.Name,
				"account", anchor.StellarAccount,
				"error", err.Error(),
			)
		}
		payments = nil
	}

	var total, successful, failed int64
	if len(payments) > 0 {
		// Every operation in the feed made it into the ledger, so the
		// observed window counts as fully successful.
		total = int64(len(payments))
		successful = total
		failed = 0
	} else {
		if fallbackReason == "" {
			fallbackReason = fallbackEmptyFeed
		}
		total = anchor.TotalTransactions
		successful = anchor.SuccessfulTransactions
		failed = anchor.FailedTransactions
	}

	failureRate := 0.0
	if total > 0 {
		failureRate = float64(failed) / float64(total) * 100.0
	}

	// With no transactions at all, the stored score carries over.
	score := anchor.ReliabilityScore
	if total > 0 {
		score = float64(successful) / float64(total) * 100.0
	}

	return AnchorMetrics{
		ID:                     anchor.ID,
		Name:                   anchor.Name,
		StellarAccount:         anchor.StellarAccount,
		ReliabilityScore:       score,
		AssetCoverage:          len(assets),
		FailureRate:            failureRate,
		TotalTransactions:      total,
		SuccessfulTransactions: successful,
		FailedTransactions:     failed,
		Status:                 statusFor(score),
	}, fallbackReason, nil
}

// publishRedAlerts sends one alert per red anchor. Publish failures are
// logged, never surfaced to the request.
func (s *Service) publishRedAlerts(ctx context.Context, results []AnchorMetrics) {
	if !s.alertsEnabled {
		return
	}

	now := time.Now().UTC()
	var alerts []*Alert
	for _, m := range results {
		if m.Status != StatusRed {
			continue
		}
		alerts = append(alerts, &Alert{
			AnchorID:          m.ID,
			Name:              m.Name,
			StellarAccount:    m.StellarAccount,
			Status:            m.Status,
			ReliabilityScore:  m.ReliabilityScore,
			FailureRate:       m.FailureRate,
			TotalTransactions: m.TotalTransactions,
			TriggeredAt:       now,
		})
	}
	if len(alerts) == 0 {
		return
	}

	if err := s.publisher.PublishBatch(ctx, alerts); err != nil && s.logger != nil {
		s.logger.LogError(ctx, "failed to publish anchor alerts", err,
			"count", len(alerts),
		)
	}
}

// Name implements cache.WarmupProvider.
func (s *Service) Name() string {
	return "anchors"
}

// Warmup pre-computes the default anchors page so the first request after
// boot is served from cache.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.List(ctx, s.defaultLimit, 0)
	return err
}
