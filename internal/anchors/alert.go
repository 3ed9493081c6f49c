package anchors

import (
	"context"
	"time"
)

// Alert describes an anchor whose computed metrics crossed into red status.
type Alert struct {
	AnchorID          string    `json:"anchor_id"`
	Name              string    `json:"name"`
	StellarAccount    string    `json:"stellar_account"`
	Status            string    `json:"status"`
	ReliabilityScore  float64   `json:"reliability_score"`
	FailureRate       float64   `json:"failure_rate"`
	TotalTransactions int64     `json:"total_transactions"`
	TriggeredAt       time.Time `json:"triggered_at"`
}

// AlertPublisher publishes degraded-anchor alerts to an external channel
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *Alert) error
	PublishBatch(ctx context.Context, alerts []*Alert) error
}
