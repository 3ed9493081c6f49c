package corridors

// Corridor is one asset-pair route entry in the corridors listing. ID is
// the grouping key, "{code:issuer}->{code:issuer}", and doubles as the
// synthetic corridor identifier on the wire.
type Corridor struct {
	ID                    string  `json:"id"`
	SourceAsset           string  `json:"source_asset"`
	DestinationAsset      string  `json:"destination_asset"`
	SuccessRate           float64 `json:"success_rate"`
	TotalAttempts         int64   `json:"total_attempts"`
	SuccessfulPayments    int64   `json:"successful_payments"`
	FailedPayments        int64   `json:"failed_payments"`
	AverageLatencyMs      float64 `json:"average_latency_ms"`
	MedianLatencyMs       float64 `json:"median_latency_ms"`
	P95LatencyMs          float64 `json:"p95_latency_ms"`
	P99LatencyMs          float64 `json:"p99_latency_ms"`
	LiquidityDepthUSD     float64 `json:"liquidity_depth_usd"`
	LiquidityVolume24hUSD float64 `json:"liquidity_volume_24h_usd"`
	LiquidityTrend        string  `json:"liquidity_trend"`
	HealthScore           float64 `json:"health_score"`
	LastUpdated           string  `json:"last_updated"`
}

// Detail is the corridor detail payload. The endpoint serving it is not
// wired to RPC data yet; the types are declared so the wire format stays
// fixed for clients.
type Detail struct {
	Corridor              Corridor           `json:"corridor"`
	HistoricalSuccessRate []SuccessRatePoint `json:"historical_success_rate"`
	LatencyDistribution   []LatencyPoint     `json:"latency_distribution"`
	LiquidityTrends       []LiquidityPoint   `json:"liquidity_trends"`
	RelatedCorridors      []Corridor         `json:"related_corridors"`
}

// SuccessRatePoint is one historical success-rate sample.
type SuccessRatePoint struct {
	Timestamp   string  `json:"timestamp"`
	SuccessRate float64 `json:"success_rate"`
	Attempts    int64   `json:"attempts"`
}

// LatencyPoint is one bucket of a latency distribution histogram.
type LatencyPoint struct {
	LatencyBucketMs int     `json:"latency_bucket_ms"`
	Count           int64   `json:"count"`
	Percentage      float64 `json:"percentage"`
}

// LiquidityPoint is one liquidity snapshot over time.
type LiquidityPoint struct {
	Timestamp    string  `json:"timestamp"`
	LiquidityUSD float64 `json:"liquidity_usd"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
}
