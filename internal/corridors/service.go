package corridors

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/dinahmaccodes/stellar-insights/internal/horizon"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/cache"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// LedgerSource provides recent network-wide payments and trades.
// Interfaces defined where they're consumed (Dependency Inversion Principle)
type LedgerSource interface {
	FetchPayments(ctx context.Context, limit int, cursor string) ([]horizon.Payment, error)
	FetchTrades(ctx context.Context, limit int, cursor string) ([]horizon.Trade, error)
}

// Bucket-side labels for payments without an issued asset.
const (
	nativeAssetCode   = "XLM"
	nativeAssetIssuer = "native"
)

// Service discovers payment corridors from the live payment stream and
// serves their aggregated metrics through the cache. Corridors are never
// persisted; every cache miss recomputes them from scratch.
type Service struct {
	ledger  LedgerSource
	cache   cache.Store
	logger  *observability.Logger
	metrics *observability.Metrics
	tracer  observability.Tracer

	cacheTTL     time.Duration
	pageLimit    int
	defaultLimit int
}

// ServiceConfig holds corridors service configuration
type ServiceConfig struct {
	Ledger       LedgerSource
	Cache        cache.Store
	Logger       *observability.Logger
	Metrics      *observability.Metrics
	Tracer       observability.Tracer
	CacheTTL     time.Duration
	PageLimit    int
	DefaultLimit int
}

// NewService creates a new corridors service
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger source is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 3 * time.Minute
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = 200
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = 50
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoopTracer()
	}

	return &Service{
		ledger:       cfg.Ledger,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		tracer:       cfg.Tracer,
		cacheTTL:     cfg.CacheTTL,
		pageLimit:    cfg.PageLimit,
		defaultLimit: cfg.DefaultLimit,
	}, nil
}

// List returns the corridors discovered from the live payment stream that
// match the filter, served from cache when a fresh entry exists. limit and
// offset participate in the cache key but do not slice the result.
func (s *Service) List(ctx context.Context, limit, offset int, filter Filter) ([]Corridor, error) {
	key := cache.CorridorListKey(limit, offset, filter.Fingerprint())
	return cache.GetOrFetch(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) ([]Corridor, error) {
		return s.computeList(ctx, filter)
	})
}

// computeList rebuilds the corridor list from the live payment stream. A
// payment-fetch failure fails open: the result is an empty list, never an
// error response.
func (s *Service) computeList(ctx context.Context, filter Filter) (_ []Corridor, err error) {
	ctx, span := s.tracer.StartSpan(ctx, "corridors.compute_list")
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
			s.metrics.RecordPipelineFetch(ctx, "corridor", status, time.Since(start))
		}
	}()

	payments, fetchErr := s.fetchLedgerData(ctx)
	if fetchErr != nil {
		if s.logger != nil {
			s.logger.LogError(ctx, "failed to fetch payments, serving empty corridor list", fetchErr)
		}
		if s.metrics != nil {
			s.metrics.RecordError(ctx, "corridor_payments_fetch")
		}
		return []Corridor{}, nil
	}

	buckets := groupPayments(payments)
	span.SetAttributes(
		attribute.Int("payments", len(payments)),
		attribute.Int("buckets", len(buckets)),
	)

	now := time.Now().UTC().Format(time.RFC3339)
	corridors := make([]Corridor, 0, len(buckets))
	for key, b := range buckets {
		c, ok := corridorFromBucket(key, b, now)
		if !ok {
			continue
		}
		if !filter.Matches(c) {
			continue
		}
		corridors = append(corridors, c)
	}

	// Map iteration order is random; keep responses stable across
	// recomputes of the same stream.
	sort.Slice(corridors, func(i, j int) bool { return corridors[i].ID < corridors[j].ID })

	if s.metrics != nil {
		s.metrics.RecordCorridorsDiscovered(ctx, int64(len(buckets)))
	}
	if s.logger != nil {
		s.logger.Info("computed corridor metrics",
			"payments", len(payments),
			"buckets", len(buckets),
			"corridors", len(corridors),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return corridors, nil
}

// fetchLedgerData pulls recent payments and trades concurrently. Only the
// payment fetch outcome decides the response. The trades fetch is the
// volume-refinement extension point: its result is not consumed yet, but
// the call stays so request cost does not silently change when it lands.
func (s *Service) fetchLedgerData(ctx context.Context) ([]horizon.Payment, error) {
	var payments []horizon.Payment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.ledger.FetchPayments(gctx, s.pageLimit, "")
		if err != nil {
			return fmt.Errorf("failed to fetch payments: %w", err)
		}
		payments = p
		return nil
	})
	g.Go(func() error {
		trades, err := s.ledger.FetchTrades(gctx, s.pageLimit, "")
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("failed to fetch trades", "error", err.Error())
			}
			return nil
		}
		if s.logger != nil {
			s.logger.Debug("fetched trades for volume refinement", "trades", len(trades))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return payments, nil
}

// bucket accumulates one corridor's statistics in a single pass over the
// payment stream.
type bucket struct {
	count     int64
	volumeUSD float64
}

// groupPayments buckets payments by corridor key and sums their parseable
// amounts. Unparsable amount strings are skipped, not counted as zero.
func groupPayments(payments []horizon.Payment) map[string]*bucket {
	buckets := make(map[string]*bucket)
	for _, p := range payments {
		key := bucketKey(p)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		if amount, err := strconv.ParseFloat(p.Amount, 64); err == nil {
			b.volumeUSD += amount
		}
	}
	return buckets
}

// bucketKey derives the corridor grouping key for a payment. The source
// side comes from the payment's asset; the destination is pinned to native
// XLM until path data exposes the real destination asset.
func bucketKey(p horizon.Payment) string {
	code := p.AssetCode
	if code == "" {
		code = nativeAssetCode
	}
	issuer := p.AssetIssuer
	if issuer == "" {
		issuer = nativeAssetIssuer
	}
	return fmt.Sprintf("%s:%s->%s:%s", code, issuer, nativeAssetCode, nativeAssetIssuer)
}

// corridorFromBucket builds the response entry for one bucket. Keys that
// do not split into exactly two asset:issuer pairs are discarded.
func corridorFromBucket(key string, b *bucket, lastUpdated string) (Corridor, bool) {
	sides := strings.Split(key, "->")
	if len(sides) != 2 {
		return Corridor{}, false
	}
	source := strings.Split(sides[0], ":")
	dest := strings.Split(sides[1], ":")
	if len(source) != 2 || len(dest) != 2 {
		return Corridor{}, false
	}

	// The stream only carries settled payments, so every attempt in a
	// bucket succeeded.
	successRate := 0.0
	if b.count > 0 {
		successRate = 100.0
	}

	latency := syntheticLatency(successRate)

	return Corridor{
		ID:                    key,
		SourceAsset:           source[0],
		DestinationAsset:      dest[0],
		SuccessRate:           successRate,
		TotalAttempts:         b.count,
		SuccessfulPayments:    b.count,
		FailedPayments:        0,
		AverageLatencyMs:      latency.Average,
		MedianLatencyMs:       latency.Median,
		P95LatencyMs:          latency.P95,
		P99LatencyMs:          latency.P99,
		LiquidityDepthUSD:     b.volumeUSD,
		LiquidityVolume24hUSD: b.volumeUSD * 0.1,
		LiquidityTrend:        liquidityTrend(b.volumeUSD),
		HealthScore:           healthScore(successRate, b.count, b.volumeUSD),
		LastUpdated:           lastUpdated,
	}, true
}

// Name implements cache.WarmupProvider.
func (s *Service) Name() string {
	return "corridors"
}

// Warmup pre-computes the unfiltered default corridor page so the first
// request after boot is served from cache.
func (s *Service) Warmup(ctx context.Context) error {
	_, err := s.List(ctx, s.defaultLimit, 0, Filter{})
	return err
}
