package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Metrics holds all application metrics
type Metrics struct {
	meter   metric.Meter
	enabled bool

	// HTTP surface metrics
	HTTPRequests        metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram

	// Pipeline metrics (cache-aside compute path)
	PipelineFetches       metric.Int64Counter
	PipelineFetchDuration metric.Float64Histogram

	// Cache metrics
	CacheHits   metric.Int64Counter
	CacheMisses metric.Int64Counter

	// Horizon RPC metrics
	HorizonAPICalls       metric.Int64Counter
	HorizonAPIDuration    metric.Float64Histogram
	HorizonEndpointHealth metric.Int64Gauge

	// Anchor metrics
	AnchorsProcessed metric.Int64Counter
	AnchorFallbacks  metric.Int64Counter

	// Corridor metrics
	CorridorsDiscovered metric.Int64Counter

	// Alerting metrics
	AlertsPublished metric.Int64Counter

	// Circuit breaker metrics
	CircuitBreakerState metric.Int64Gauge

	// Error metrics
	Errors metric.Int64Counter

	// Prometheus exporter for HTTP handler
	exporter *prometheus.Exporter
}

// NewMetrics creates a new Metrics instance
func NewMetrics(serviceName string, enabled bool) (*Metrics, error) {
	if !enabled {
		return &Metrics{}, nil
	}

	// Create resource
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	// Create meter provider
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	// Get meter
	meter := provider.Meter(serviceName)

	m := &Metrics{
		meter:    meter,
		enabled:  true,
		exporter: exporter,
	}

	// Initialize all metrics
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return m, nil
}

// initMetrics initializes all metric instruments
func (m *Metrics) initMetrics() error {
	var err error

	// HTTP surface metrics
	m.HTTPRequests, err = m.meter.Int64Counter(
		"insights.http.requests",
		metric.WithDescription("Total HTTP requests served"),
	)
	if err != nil {
		return err
	}

	m.HTTPRequestDuration, err = m.meter.Float64Histogram(
		"insights.http.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Pipeline metrics
	m.PipelineFetches, err = m.meter.Int64Counter(
		"insights.pipeline.fetches",
		metric.WithDescription("Total cache-miss compute runs by resource"),
	)
	if err != nil {
		return err
	}

	m.PipelineFetchDuration, err = m.meter.Float64Histogram(
		"insights.pipeline.fetch.duration",
		metric.WithDescription("Cache-miss compute duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	// Cache metrics
	m.CacheHits, err = m.meter.Int64Counter(
		"insights.cache.hits",
		metric.WithDescription("Total cache hits"),
	)
	if err != nil {
		return err
	}

	m.CacheMisses, err = m.meter.Int64Counter(
		"insights.cache.misses",
		metric.WithDescription("Total cache misses"),
	)
	if err != nil {
		return err
	}

	// Horizon RPC metrics
	m.HorizonAPICalls, err = m.meter.Int64Counter(
		"insights.horizon.api.calls",
		metric.WithDescription("Total Horizon API calls"),
	)
	if err != nil {
		return err
	}

	m.HorizonAPIDuration, err = m.meter.Float64Histogram(
		"insights.horizon.api.duration",
		metric.WithDescription("Horizon API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	m.HorizonEndpointHealth, err = m.meter.Int64Gauge(
		"insights.horizon.endpoint.health",
		metric.WithDescription("Horizon endpoint health status (1=healthy, 0=unhealthy)"),
	)
	if err != nil {
		return err
	}

	// Anchor metrics
	m.AnchorsProcessed, err = m.meter.Int64Counter(
		"insights.anchors.processed",
		metric.WithDescription("Total anchors processed by the metrics orchestrator"),
	)
	if err != nil {
		return err
	}

	m.AnchorFallbacks, err = m.meter.Int64Counter(
		"insights.anchors.fallbacks",
		metric.WithDescription("Anchor computations that fell back to stored counters"),
	)
	if err != nil {
		return err
	}

	// Corridor metrics
	m.CorridorsDiscovered, err = m.meter.Int64Counter(
		"insights.corridors.discovered",
		metric.WithDescription("Corridor buckets discovered from the live payment stream"),
	)
	if err != nil {
		return err
	}

	// Alerting metrics
	m.AlertsPublished, err = m.meter.Int64Counter(
		"insights.alerts.published",
		metric.WithDescription("Anchor status alerts published"),
	)
	if err != nil {
		return err
	}

	// Circuit breaker metrics
	m.CircuitBreakerState, err = m.meter.Int64Gauge(
		"insights.circuit_breaker.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=open, 2=half-open)"),
	)
	if err != nil {
		return err
	}

	// Error metrics
	m.Errors, err = m.meter.Int64Counter(
		"insights.errors",
		metric.WithDescription("Total errors encountered"),
	)
	if err != nil {
		return err
	}

	return nil
}

// RecordHTTPRequest records a served HTTP request
func (m *Metrics) RecordHTTPRequest(ctx context.Context, route string, status int, duration time.Duration) {
	if !m.enabled {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("route", route),
		attribute.Int("status", status),
	}

	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPRequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordPipelineFetch records a cache-miss compute run
func (m *Metrics) RecordPipelineFetch(ctx context.Context, resource, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("resource", resource),
		attribute.String("status", status),
	}

	m.PipelineFetches.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.PipelineFetchDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit
func (m *Metrics) RecordCacheHit(ctx context.Context, layer string) {
	if !m.enabled {
		return
	}
	m.CacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordCacheMiss records a cache miss
func (m *Metrics) RecordCacheMiss(ctx context.Context, layer string) {
	if !m.enabled {
		return
	}
	m.CacheMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordHorizonCall records a Horizon API call
func (m *Metrics) RecordHorizonCall(ctx context.Context, endpoint, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("endpoint", endpoint),
		attribute.String("status", status),
	}

	m.HorizonAPICalls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HorizonAPIDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// SetHorizonEndpointHealth records Horizon endpoint health status
func (m *Metrics) SetHorizonEndpointHealth(ctx context.Context, url string, healthy bool) {
	if !m.enabled {
		return
	}
	val := int64(0)
	if healthy {
		val = 1
	}
	m.HorizonEndpointHealth.Record(ctx, val, metric.WithAttributes(
		attribute.String("url", url),
	))
}

// RecordAnchorsProcessed records anchors emitted by the orchestrator
func (m *Metrics) RecordAnchorsProcessed(ctx context.Context, count int64) {
	if !m.enabled {
		return
	}
	m.AnchorsProcessed.Add(ctx, count)
}

// RecordAnchorFallback records a fallback to stored anchor counters
func (m *Metrics) RecordAnchorFallback(ctx context.Context, reason string) {
	if !m.enabled {
		return
	}
	m.AnchorFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordCorridorsDiscovered records corridor buckets found in one compute run
func (m *Metrics) RecordCorridorsDiscovered(ctx context.Context, count int64) {
	if !m.enabled {
		return
	}
	m.CorridorsDiscovered.Add(ctx, count)
}

// RecordAlertPublished records an anchor status alert publish attempt
func (m *Metrics) RecordAlertPublished(ctx context.Context, status string) {
	if !m.enabled {
		return
	}
	m.AlertsPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// SetCircuitBreakerState sets circuit breaker state
// 0 = closed, 1 = open, 2 = half-open
func (m *Metrics) SetCircuitBreakerState(ctx context.Context, service string, state int64) {
	if !m.enabled {
		return
	}
	m.CircuitBreakerState.Record(ctx, state, metric.WithAttributes(attribute.String("service", service)))
}

// RecordError records an error
func (m *Metrics) RecordError(ctx context.Context, errorType string) {
	if !m.enabled {
		return
	}
	m.Errors.Add(ctx, 1, metric.WithAttributes(attribute.String("type", errorType)))
}

// Handler returns the HTTP handler for Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	// The OpenTelemetry Prometheus exporter registers with the default
	// Prometheus registry, so the standard handler serves everything.
	return promhttp.Handler()
}
