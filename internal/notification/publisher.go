package notification

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dinahmaccodes/stellar-insights/internal/anchors"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/aws"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// Publisher sends degraded-anchor alerts to an SNS topic.
type Publisher struct {
	snsClient *aws.SNSClient
	topicARN  string
	logger    *observability.Logger
	tracer    observability.Tracer
}

// PublisherConfig holds the Publisher dependencies.
type PublisherConfig struct {
	SNSClient *aws.SNSClient
	TopicARN  string
	Logger    *observability.Logger
	Tracer    observability.Tracer
}

// NewPublisher validates cfg and builds a Publisher.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if cfg.SNSClient == nil {
		return nil, fmt.Errorf("SNS client is required")
	}
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("SNS topic ARN is required")
	}
	if cfg.Tracer == nil {
		cfg.Tracer = observability.NewNoopTracer()
	}

	return &Publisher{
		snsClient: cfg.SNSClient,
		topicARN:  cfg.TopicARN,
		logger:    cfg.Logger,
		tracer:    cfg.Tracer,
	}, nil
}

// PublishAlert sends one alert to the topic.
// Implements anchors.AlertPublisher.
func (p *Publisher) PublishAlert(ctx context.Context, alert *anchors.Alert) error {
	ctx, span := p.tracer.StartSpan(ctx, "Publisher.PublishAlert",
		observability.WithSpanKind(trace.SpanKindProducer),
		observability.WithAttributes(
			attribute.String("anchor_id", alert.AnchorID),
			attribute.String("status", alert.Status),
			attribute.String("topic_arn", p.topicARN),
		),
	)
	defer span.End()

	// Message attributes let subscribers filter by anchor or severity
	attributes := map[string]string{
		"anchor_id": alert.AnchorID,
		"status":    alert.Status,
	}

	if err := p.snsClient.Publish(ctx, p.topicARN, alert, attributes); err != nil {
		span.NoticeError(err)
		if p.logger != nil {
			p.logger.LogError(ctx, "failed to publish anchor alert", err,
				"anchor_id", alert.AnchorID,
				"topic_arn", p.topicARN,
			)
		}
		return fmt.Errorf("SNS publish failed: %w", err)
	}

	if p.logger != nil {
		p.logger.Info("published anchor alert",
			"anchor_id", alert.AnchorID,
			"anchor_name", alert.Name,
			"status", alert.Status,
			"reliability_score", alert.ReliabilityScore,
			"topic_arn", p.topicARN,
		)
	}

	return nil
}

// PublishBatch sends every alert, continuing past individual failures so
// one bad alert cannot mute the rest.
// Implements anchors.AlertPublisher.
func (p *Publisher) PublishBatch(ctx context.Context, alerts []*anchors.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx, span := p.tracer.StartSpan(ctx, "Publisher.PublishBatch",
		observability.WithSpanKind(trace.SpanKindProducer),
		observability.WithAttributes(attribute.Int("alerts", len(alerts))),
	)
	defer span.End()

	var failed int
	for _, alert := range alerts {
		if err := p.PublishAlert(ctx, alert); err != nil {
			failed++
			span.AddEvent("alert_publish_failed",
				attribute.String("anchor_id", alert.AnchorID),
			)
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))

	if p.logger != nil {
		p.logger.Info("alert batch publish completed",
			"total", len(alerts),
			"success", len(alerts)-failed,
			"errors", failed,
		)
	}

	if failed > 0 {
		err := fmt.Errorf("batch publish completed with %d errors out of %d", failed, len(alerts))
		span.NoticeError(err)
		return err
	}

	return nil
}
