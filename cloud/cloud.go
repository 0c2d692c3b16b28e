// Package cloud builds the shared AWS configuration and service clients.
package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidframe/config"
	"vidframe/logger"
)

// Load resolves an aws.Config for cfg.Region with the standard retryer.
// Static keys from cfg take precedence over the default credential chain.
func Load(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(cfg.MaxAttempts),
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		logger.Debug("Using static AWS credentials from configuration")
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}

// Clients bundles the SDK clients used by the workflow.
type Clients struct {
	Config aws.Config
	IAM    *iam.Client
	S3     *s3.Client
}

// NewClients loads the AWS config and builds IAM and S3 clients from it.
// MediaConvert clients are built per region by the job package, since they
// need the account endpoint first.
func NewClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	awsCfg, err := Load(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Clients{
		Config: awsCfg,
		IAM:    iam.NewFromConfig(awsCfg),
		S3:     s3.NewFromConfig(awsCfg),
	}, nil
}
