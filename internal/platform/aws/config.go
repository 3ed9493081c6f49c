package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Config holds AWS client configuration.
type Config struct {
	Region string
}

// LoadAWSConfig resolves AWS SDK configuration through the default
// credential chain (environment, shared config, IAM role). SDK-level
// retries are capped at a single attempt; publish retry policy lives in
// the resilience layer.
func LoadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	return config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithRetryMaxAttempts(1),
	)
}
