package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	monitorConfig "github.com/scttfrdmn/fleet-monitor/internal/config"
	"go.uber.org/zap"
)

// FallbackRegion is used when neither configuration nor the environment names a region
const FallbackRegion = "us-east-1"

// AuthenticationMethod represents different AWS authentication approaches
type AuthenticationMethod string

const (
	AuthMethodDefault         AuthenticationMethod = "default"          // Default credential chain
	AuthMethodInstanceProfile AuthenticationMethod = "instance_profile" // EC2 instance profile
	AuthMethodProfile         AuthenticationMethod = "profile"          // Named AWS profile
	AuthMethodAssumeRole      AuthenticationMethod = "assume_role"      // STS AssumeRole
	AuthMethodAccessKeys      AuthenticationMethod = "access_keys"      // Static access keys (DISCOURAGED)
)

// AuthenticationProvider builds AWS configuration for the configured authentication method
type AuthenticationProvider struct {
	logger *zap.Logger
	config *monitorConfig.AWSConfig
}

// NewAuthenticationProvider creates a new authentication provider
func NewAuthenticationProvider(logger *zap.Logger, awsConfig *monitorConfig.AWSConfig) *AuthenticationProvider {
	return &AuthenticationProvider{
		logger: logger,
		config: awsConfig,
	}
}

// GetAWSConfig returns an AWS config for region. An empty region is resolved
// through the default provider chain, then FallbackRegion.
func (a *AuthenticationProvider) GetAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	method := AuthenticationMethod(a.config.AuthenticationMethod)

	a.logger.Debug("Configuring AWS authentication",
		zap.String("method", string(method)),
		zap.String("region", region))

	opts := a.baseOptions(region)

	switch method {
	case AuthMethodDefault, "":
	case AuthMethodInstanceProfile:
		opts = append(opts, config.WithEC2IMDSRegion())
	case AuthMethodProfile:
		profile := a.config.Profile
		if profile == "" {
			profile = "default"
		}
		opts = append(opts, config.WithSharedConfigProfile(profile))
	case AuthMethodAssumeRole:
		return a.getAssumeRoleConfig(ctx, opts)
	case AuthMethodAccessKeys:
		if a.config.AccessKeys == nil {
			return aws.Config{}, fmt.Errorf("access_keys configuration required")
		}
		a.logger.Warn("Using static access keys, prefer instance_profile or assume_role")
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			a.config.AccessKeys.AccessKeyID,
			a.config.AccessKeys.SecretAccessKey,
			a.config.AccessKeys.SessionToken,
		)))
	default:
		return aws.Config{}, fmt.Errorf("unsupported authentication method: %s", method)
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return withFallbackRegion(cfg), nil
}

func (a *AuthenticationProvider) baseOptions(region string) []func(*config.LoadOptions) error {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(a.config.RetryMaxAttempts),
		config.WithRetryMode(aws.RetryMode(a.config.RetryMode)),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if a.config.Profile != "" && AuthenticationMethod(a.config.AuthenticationMethod) != AuthMethodProfile {
		opts = append(opts, config.WithSharedConfigProfile(a.config.Profile))
	}
	return opts
}

// getAssumeRoleConfig uses STS AssumeRole on top of the base credentials
func (a *AuthenticationProvider) getAssumeRoleConfig(ctx context.Context, opts []func(*config.LoadOptions) error) (aws.Config, error) {
	if a.config.AssumeRole == nil {
		return aws.Config{}, fmt.Errorf("assume_role configuration required")
	}
	role := a.config.AssumeRole

	a.logger.Info("Using STS AssumeRole authentication",
		zap.String("role_arn", role.RoleARN),
		zap.String("session_name", role.SessionName))

	baseCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load base config: %w", err)
	}
	baseCfg = withFallbackRegion(baseCfg)

	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(baseCfg), role.RoleARN, func(options *stscreds.AssumeRoleOptions) {
		if role.SessionName != "" {
			options.RoleSessionName = role.SessionName
		}
		if role.DurationSeconds > 0 {
			options.Duration = time.Duration(role.DurationSeconds) * time.Second
		}
		if role.ExternalID != "" {
			options.ExternalID = aws.String(role.ExternalID)
		}
	})

	cfg := baseCfg.Copy()
	cfg.Credentials = aws.NewCredentialsCache(provider)
	return cfg, nil
}

func withFallbackRegion(cfg aws.Config) aws.Config {
	if cfg.Region == "" {
		cfg.Region = FallbackRegion
	}
	return cfg
}

// CredentialInfo contains information about the credentials in use
type CredentialInfo struct {
	Account string `json:"account"`
	ARN     string `json:"arn"`
	UserID  string `json:"user_id"`
	Method  string `json:"method"`
}

// GetCredentialInfo validates credentials via STS GetCallerIdentity
func (a *AuthenticationProvider) GetCredentialInfo(ctx context.Context, cfg aws.Config) (*CredentialInfo, error) {
	result, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("credential validation failed: %w", err)
	}

	return &CredentialInfo{
		Account: aws.ToString(result.Account),
		ARN:     aws.ToString(result.Arn),
		UserID:  aws.ToString(result.UserId),
		Method:  a.config.AuthenticationMethod,
	}, nil
}
