package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/worker"
)

const (
	defaultWarmupTimeout = 30 * time.Second
	defaultWarmupWorkers = 4
)

// WarmupProvider is implemented by services that can pre-populate their
// cache entries before the server accepts traffic.
type WarmupProvider interface {
	// Name identifies the provider in logs and results.
	Name() string

	// Warmup computes and caches the provider's hot entries. It must be
	// idempotent: warming an already-warm cache is a no-op.
	Warmup(ctx context.Context) error
}

// WarmupConfig controls how registered providers are run.
type WarmupConfig struct {
	// Timeout bounds the whole warmup pass, not individual providers.
	Timeout time.Duration

	// ContinueOnError keeps a sequential pass going after a provider
	// fails. Parallel passes always run every provider.
	ContinueOnError bool

	// Parallel runs providers through a worker pool instead of one
	// at a time.
	Parallel bool

	// Workers is the pool size when Parallel is set.
	Workers int
}

// DefaultWarmupConfig runs providers in parallel with a 30s budget and
// tolerates individual failures.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Timeout:         defaultWarmupTimeout,
		ContinueOnError: true,
		Parallel:        true,
		Workers:         defaultWarmupWorkers,
	}
}

// WarmupResult records one provider's outcome.
type WarmupResult struct {
	Provider string
	Duration time.Duration
	Err      error
}

// WarmupResults aggregates a full warmup pass.
type WarmupResults struct {
	Results   []WarmupResult
	TotalTime time.Duration
	Errors    int
}

// HasErrors reports whether any provider failed.
func (wr *WarmupResults) HasErrors() bool {
	return wr.Errors > 0
}

// Warmer runs registered WarmupProviders at startup so the first
// requests hit a warm cache instead of paying the full fetch cost.
type Warmer struct {
	providers []WarmupProvider
	logger    *observability.Logger
	config    WarmupConfig
}

// NewWarmer creates a Warmer with no providers registered.
func NewWarmer(logger *observability.Logger, config WarmupConfig) *Warmer {
	if config.Workers <= 0 {
		config.Workers = defaultWarmupWorkers
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultWarmupTimeout
	}
	return &Warmer{
		logger: logger,
		config: config,
	}
}

// RegisterProvider adds a provider to the warmup pass. Not safe to call
// concurrently with Warmup.
func (w *Warmer) RegisterProvider(provider WarmupProvider) {
	w.providers = append(w.providers, provider)
}

// Warmup runs every registered provider and returns per-provider results.
// Provider failures are recorded, never propagated: a cold cache is a
// degraded start, not a failed one.
func (w *Warmer) Warmup(ctx context.Context) *WarmupResults {
	start := time.Now()

	if len(w.providers) == 0 {
		return &WarmupResults{TotalTime: time.Since(start)}
	}

	warmCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	var results []WarmupResult
	if w.config.Parallel {
		results = w.warmParallel(warmCtx)
	} else {
		results = w.warmSequential(warmCtx)
	}

	agg := &WarmupResults{
		Results:   results,
		TotalTime: time.Since(start),
	}
	for _, r := range results {
		if r.Err != nil {
			agg.Errors++
		}
	}

	if agg.Errors > 0 {
		w.logger.LogWarn(ctx, fmt.Sprintf("Cache warmup finished in %v with %d/%d providers failing",
			agg.TotalTime, agg.Errors, len(w.providers)))
	} else {
		w.logger.LogInfo(ctx, fmt.Sprintf("Cache warmup finished in %v, %d providers warm",
			agg.TotalTime, len(w.providers)))
	}

	return agg
}

func (w *Warmer) warmParallel(ctx context.Context) []WarmupResult {
	pool := worker.NewPool(ctx, w.config.Workers, len(w.providers))
	defer pool.Close()

	jobs := make([]worker.Job, 0, len(w.providers))
	for _, provider := range w.providers {
		jobs = append(jobs, worker.Job{
			ID: provider.Name(),
			Execute: func(jobCtx context.Context) (interface{}, error) {
				return w.warmOne(jobCtx, provider), nil
			},
		})
	}

	results := make([]WarmupResult, 0, len(jobs))
	for _, pr := range pool.SubmitAndWait(jobs) {
		if r, ok := pr.Value.(WarmupResult); ok {
			results = append(results, r)
			continue
		}
		// The pool dropped the job before it produced a result, which
		// only happens when the warmup context ended.
		results = append(results, WarmupResult{Provider: pr.JobID, Err: ctx.Err()})
	}

	return results
}

func (w *Warmer) warmSequential(ctx context.Context) []WarmupResult {
	results := make([]WarmupResult, 0, len(w.providers))

	for _, provider := range w.providers {
		result := w.warmOne(ctx, provider)
		results = append(results, result)

		if result.Err != nil && !w.config.ContinueOnError {
			break
		}
	}

	return results
}

func (w *Warmer) warmOne(ctx context.Context, provider WarmupProvider) WarmupResult {
	name := provider.Name()
	start := time.Now()

	w.logger.LogDebug(ctx, fmt.Sprintf("Warming %s", name))

	err := provider.Warmup(ctx)
	elapsed := time.Since(start)

	if err != nil {
		w.logger.LogWarn(ctx, fmt.Sprintf("Warming %s failed after %v: %v", name, elapsed, err))
	} else {
		w.logger.LogDebug(ctx, fmt.Sprintf("Warmed %s in %v", name, elapsed))
	}

	return WarmupResult{
		Provider: name,
		Duration: elapsed,
		Err:      err,
	}
}
