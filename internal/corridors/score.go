package corridors

import "math"

// Liquidity trend labels derived from corridor volume.
const (
	TrendIncreasing = "increasing"
	TrendStable     = "stable"
	TrendDecreasing = "decreasing"
)

// Health score weights: success rate dominates, volume and transaction
// count contribute equally.
const (
	successWeight     = 0.6
	volumeWeight      = 0.2
	transactionWeight = 0.2
)

// healthScore blends the success rate with log-scaled volume and
// transaction-count signals. Component scores cap at 100; sub-dollar
// volume and empty corridors score 0 outright, since ln would go negative
// there and is undefined at zero.
func healthScore(successRate float64, totalAttempts int64, volumeUSD float64) float64 {
	volumeScore := 0.0
	if volumeUSD >= 1 {
		volumeScore = math.Min(math.Log(volumeUSD)/15.0*100.0, 100.0)
	}

	transactionScore := 0.0
	if totalAttempts > 0 {
		transactionScore = math.Min(math.Log(float64(totalAttempts))/10.0*100.0, 100.0)
	}

	return successRate*successWeight +
		volumeScore*volumeWeight +
		transactionScore*transactionWeight
}

// liquidityTrend buckets corridor volume: above $10M is increasing, above
// $1M is stable, everything else is decreasing.
func liquidityTrend(volumeUSD float64) string {
	switch {
	case volumeUSD > 10_000_000:
		return TrendIncreasing
	case volumeUSD > 1_000_000:
		return TrendStable
	default:
		return TrendDecreasing
	}
}

// latencyProfile is the synthetic latency quartet derived from the success
// rate. Horizon exposes no per-payment latency telemetry, so these are
// designed stand-ins; the multipliers are fixed for client compatibility.
type latencyProfile struct {
	Average float64
	Median  float64
	P95     float64
	P99     float64
}

func syntheticLatency(successRate float64) latencyProfile {
	avg := 400.0 + successRate*2.0
	return latencyProfile{
		Average: avg,
		Median:  avg * 0.75,
		P95:     avg * 2.5,
		P99:     avg * 4.0,
	}
}
