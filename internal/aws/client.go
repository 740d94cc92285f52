package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/scttfrdmn/fleet-monitor/internal/config"
	"go.uber.org/zap"
)

// Client provides the AWS service clients used by a monitoring run
type Client struct {
	logger *zap.Logger
	config *config.AWSConfig
	auth   *AuthenticationProvider
	awsCfg aws.Config
}

// NewClient resolves credentials and region for the configured authentication method
func NewClient(ctx context.Context, logger *zap.Logger, awsConfig *config.AWSConfig) (*Client, error) {
	auth := NewAuthenticationProvider(logger, awsConfig)

	awsCfg, err := auth.GetAWSConfig(ctx, awsConfig.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to configure AWS: %w", err)
	}

	logger.Debug("AWS client configured",
		zap.String("region", awsCfg.Region),
		zap.String("authentication_method", awsConfig.AuthenticationMethod))

	return &Client{
		logger: logger,
		config: awsConfig,
		auth:   auth,
		awsCfg: awsCfg,
	}, nil
}

// Region returns the resolved AWS region
func (c *Client) Region() string {
	return c.awsCfg.Region
}

// FleetSource returns an EC2-backed fleet source in the resolved region
func (c *Client) FleetSource() *FleetSource {
	return NewFleetSource(c.logger, ec2.NewFromConfig(c.awsCfg), FleetSourceOptions{
		InstanceIDs:         c.config.InstanceIDs,
		IncludeAllInstances: c.config.IncludeAllInstances,
	})
}

// EmailTransport returns an SES transport. SES may live in a different region than the fleet.
func (c *Client) EmailTransport(region, from string, to []string) *EmailTransport {
	client := sesv2.NewFromConfig(c.awsCfg, func(o *sesv2.Options) {
		if region != "" {
			o.Region = region
		}
	})
	return NewEmailTransport(c.logger, client, from, to)
}

// S3 returns an S3 client for region, defaulting to the resolved region
func (c *Client) S3(region string) *s3.Client {
	return s3.NewFromConfig(c.awsCfg, func(o *s3.Options) {
		if region != "" {
			o.Region = region
		}
	})
}

// CallerIdentity validates the configured credentials
func (c *Client) CallerIdentity(ctx context.Context) (*CredentialInfo, error) {
	return c.auth.GetCredentialInfo(ctx, c.awsCfg)
}
