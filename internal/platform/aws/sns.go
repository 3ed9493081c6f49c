package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/resilience"
)

const (
	snsFailureThreshold = 5
	snsSuccessThreshold = 2
	snsBreakerCooldown  = 30 * time.Second
)

// SNSClient publishes messages to SNS behind a retry loop and a circuit
// breaker, so a broken topic degrades alerting instead of stalling the
// services that raise alerts.
type SNSClient struct {
	client         *sns.Client
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    resilience.RetryConfig
	logger         *observability.Logger
	metrics        *observability.Metrics
}

// SNSClientConfig holds SNS client configuration.
type SNSClientConfig struct {
	AWSConfig aws.Config

	// Endpoint overrides the SNS endpoint, used to point the client at
	// LocalStack in development.
	Endpoint string

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// RetryConfig and CircuitBreaker override the defaults, mainly for
	// tests.
	RetryConfig    *resilience.RetryConfig
	CircuitBreaker *resilience.CircuitBreaker
}

// NewSNSClient creates an SNS client from cfg, filling in a default retry
// policy and circuit breaker where none are injected.
func NewSNSClient(cfg SNSClientConfig) *SNSClient {
	client := sns.NewFromConfig(cfg.AWSConfig, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	retryConfig := resilience.DefaultRetryConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}

	circuitBreaker := cfg.CircuitBreaker
	if circuitBreaker == nil {
		circuitBreaker = newSNSBreaker(cfg.Logger, cfg.Metrics)
	}

	return &SNSClient{
		client:         client,
		circuitBreaker: circuitBreaker,
		retryConfig:    retryConfig,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
	}
}

func newSNSBreaker(logger *observability.Logger, metrics *observability.Metrics) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "sns",
		FailureThreshold: snsFailureThreshold,
		SuccessThreshold: snsSuccessThreshold,
		Timeout:          snsBreakerCooldown,
		OnStateChange: func(from, to resilience.State) {
			if logger != nil {
				logger.Info("SNS circuit breaker state changed",
					"from", from.String(),
					"to", to.String(),
				)
			}
			if metrics != nil {
				metrics.SetCircuitBreakerState(context.Background(), "sns", int64(to))
			}
		},
	})
}

// Publish marshals message to JSON and sends it to the topic, retrying
// transient failures inside a single circuit breaker admission.
func (s *SNSClient) Publish(ctx context.Context, topicARN string, message interface{}, attributes map[string]string) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	start := time.Now()
	err = s.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.Retry(ctx, s.retryConfig, func(ctx context.Context) error {
			return s.publishOnce(ctx, topicARN, string(payload), attributes)
		})
	})

	status := "success"
	if err != nil {
		status = "error"
		if s.logger != nil {
			s.logger.LogError(ctx, "SNS publish failed", err,
				"topic_arn", topicARN,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		}
	}
	if s.metrics != nil {
		s.metrics.RecordAlertPublished(ctx, status)
	}

	return err
}

// publishOnce is a single publish attempt with no retry of its own.
func (s *SNSClient) publishOnce(ctx context.Context, topicARN, message string, attributes map[string]string) error {
	input := &sns.PublishInput{
		TopicArn:          aws.String(topicARN),
		Message:           aws.String(message),
		MessageAttributes: toMessageAttributes(attributes),
	}

	if _, err := s.client.Publish(ctx, input); err != nil {
		return fmt.Errorf("SNS publish failed: %w", err)
	}

	return nil
}

func toMessageAttributes(attributes map[string]string) map[string]types.MessageAttributeValue {
	if len(attributes) == 0 {
		return nil
	}

	out := make(map[string]types.MessageAttributeValue, len(attributes))
	for k, v := range attributes {
		out[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}
	return out
}
