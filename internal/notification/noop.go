package notification

import (
	"context"

	"github.com/dinahmaccodes/stellar-insights/internal/anchors"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// NoOpPublisher logs alerts instead of delivering them. It stands in for
// the SNS publisher when alerting is not configured, so the anchors
// service never has to check whether alerting is on.
type NoOpPublisher struct {
	logger *observability.Logger
}

// NewNoOpPublisher creates a publisher that only logs.
func NewNoOpPublisher(logger *observability.Logger) *NoOpPublisher {
	return &NoOpPublisher{logger: logger}
}

// PublishAlert logs the alert.
// Implements anchors.AlertPublisher.
func (p *NoOpPublisher) PublishAlert(ctx context.Context, alert *anchors.Alert) error {
	if p.logger != nil {
		p.logger.Info("anchor alert (SNS disabled)",
			"anchor_id", alert.AnchorID,
			"anchor_name", alert.Name,
			"status", alert.Status,
			"reliability_score", alert.ReliabilityScore,
			"failure_rate", alert.FailureRate,
		)
	}
	return nil
}

// PublishBatch logs each alert.
// Implements anchors.AlertPublisher.
func (p *NoOpPublisher) PublishBatch(ctx context.Context, alerts []*anchors.Alert) error {
	for _, alert := range alerts {
		if err := p.PublishAlert(ctx, alert); err != nil {
			return err
		}
	}
	return nil
}
