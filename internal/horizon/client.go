package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/resilience"
)

// Client fetches payment and trade records from the Horizon API with
// rate limiting, retries, circuit breaking, and endpoint failover.
type Client struct {
	client    *http.Client
	pool      *endpointPool
	limiter   *resilience.AdaptiveLimiter
	retryCfg  resilience.RetryConfig
	cb        *resilience.CircuitBreaker
	pageLimit int
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// ClientConfig holds Horizon client configuration
type ClientConfig struct {
	Endpoints      []string
	Timeout        time.Duration
	PageLimit      int
	RateLimitRPM   int
	RateLimitBurst int
	Logger         *observability.Logger
	Metrics        *observability.Metrics
	RetryConfig    resilience.RetryConfig
	CircuitBreaker *resilience.CircuitBreaker
}

// NewClient creates a new Horizon client
func NewClient(cfg ClientConfig) (*Client, error) {
	if len(cfg.Endpoints) == 0 {
		cfg.Endpoints = []string{"https://horizon.stellar.org"}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = 200
	}
	if cfg.RateLimitRPM == 0 {
		cfg.RateLimitRPM = 3600 // Horizon allows 3600 requests/hour per IP by default tier
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 60
	}
	if cfg.RetryConfig.MaxAttempts == 0 {
		cfg.RetryConfig = resilience.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   200 * time.Millisecond,
			MaxDelay:    2 * time.Second,
			Jitter:      0.2,
		}
	}

	// The adaptive limiter halves the rate on 429s and recovers gradually,
	// floored at a tenth of the base rate.
	baseRate := float64(cfg.RateLimitRPM) / 60.0
	limiter := resilience.NewAdaptiveLimiter(resilience.AdaptiveLimiterConfig{
		BaseRate: baseRate,
		MinRate:  baseRate / 10,
		MaxRate:  baseRate * 2,
		Burst:    cfg.RateLimitBurst,
	})

	cb := cfg.CircuitBreaker
	if cb == nil {
		cb = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:             "horizon",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			OnStateChange: func(from, to resilience.State) {
				if cfg.Metrics != nil {
					cfg.Metrics.SetCircuitBreakerState(context.Background(), "horizon", int64(to))
				}
			},
		})
	}
	if cfg.Metrics != nil {
		cfg.Metrics.SetCircuitBreakerState(context.Background(), "horizon", cb.StateInt())
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}

	return &Client{
		client:    httpClient,
		pool:      newEndpointPool(cfg.Endpoints),
		limiter:   limiter,
		retryCfg:  cfg.RetryConfig,
		cb:        cb,
		pageLimit: cfg.PageLimit,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// FetchPayments fetches the most recent payment operations across the
// network. An empty cursor starts from the latest record.
func (c *Client) FetchPayments(ctx context.Context, limit int, cursor string) ([]Payment, error) {
	path := fmt.Sprintf("/payments?limit=%d&order=desc", c.clampLimit(limit))
	if cursor != "" {
		path += "&cursor=" + cursor
	}
	return fetchRecords[Payment](ctx, c, "payments", path)
}

// FetchAccountPayments fetches the most recent payment operations involving
// the given account.
func (c *Client) FetchAccountPayments(ctx context.Context, account string, limit int) ([]Payment, error) {
	path := fmt.Sprintf("/accounts/%s/payments?limit=%d&order=desc", account, c.clampLimit(limit))
	return fetchRecords[Payment](ctx, c, "account_payments", path)
}

// FetchTrades fetches the most recent trades across the network.
func (c *Client) FetchTrades(ctx context.Context, limit int, cursor string) ([]Trade, error) {
	path := fmt.Sprintf("/trades?limit=%d&order=desc", c.clampLimit(limit))
	if cursor != "" {
		path += "&cursor=" + cursor
	}
	return fetchRecords[Trade](ctx, c, "trades", path)
}

func (c *Client) clampLimit(limit int) int {
	if limit <= 0 || limit > c.pageLimit {
		return c.pageLimit
	}
	return limit
}

// fetchRecords runs one logical fetch through the circuit breaker and retry
// loop. Each attempt uses the pool's current endpoint, so a failing endpoint
// is rotated away from between attempts.
func fetchRecords[T any](ctx context.Context, c *Client, operation, path string) ([]T, error) {
	return resilience.ExecuteWithResult(c.cb, ctx, func(ctx context.Context) ([]T, error) {
		return resilience.RetryIfWithResult(ctx, c.retryCfg, resilience.IsRetryable, func(ctx context.Context) ([]T, error) {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter error: %w", err)
			}

			endpoint := c.pool.Current()
			url := endpoint + path

			start := time.Now()
			records, err := doRequest[T](ctx, c, url)
			duration := time.Since(start)

			c.recordResult(ctx, endpoint, operation, err, duration)

			return records, err
		})
	})
}

func doRequest[T any](ctx context.Context, c *Client, url string) ([]T, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/hal+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var pg page[json.RawMessage]
	if err := json.NewDecoder(resp.Body).Decode(&pg); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	// Decode record by record; one malformed entry must not cost the page.
	records := make([]T, 0, len(pg.Embedded.Records))
	dropped := 0
	for _, raw := range pg.Embedded.Records {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	if dropped > 0 && c.logger != nil {
		c.logger.Warn("dropped malformed records",
			"dropped", dropped,
			"kept", len(records),
			"url", url,
		)
	}

	return records, nil
}

// recordResult feeds the outcome of one attempt into the endpoint pool,
// the adaptive limiter, and metrics.
func (c *Client) recordResult(ctx context.Context, endpoint, operation string, err error, duration time.Duration) {
	if err == nil {
		c.pool.RecordSuccess(endpoint, duration)
		c.limiter.RecordSuccess()

		if c.metrics != nil {
			c.metrics.RecordHorizonCall(ctx, endpoint, "success", duration)
			c.metrics.SetHorizonEndpointHealth(ctx, endpoint, true)
		}
		return
	}

	healthy := c.pool.RecordFailure(endpoint, err, duration)

	if strings.Contains(err.Error(), "status code 429") {
		c.limiter.RecordRateLimitError()
		if c.logger != nil {
			c.logger.Warn("horizon rate limited, backing off",
				"endpoint", endpoint,
				"rate", c.limiter.CurrentRate(),
			)
		}
	} else {
		c.limiter.RecordError()
	}

	if c.logger != nil {
		c.logger.Warn("horizon request failed",
			"endpoint", endpoint,
			"operation", operation,
			"error", err.Error(),
			"duration_ms", duration.Milliseconds(),
		)
	}

	if c.metrics != nil {
		c.metrics.RecordHorizonCall(ctx, endpoint, "error", duration)
		c.metrics.SetHorizonEndpointHealth(ctx, endpoint, healthy)
	}
}
