package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// EnvPrefix is the prefix for environment variable overrides
const EnvPrefix = "FLEET_MONITOR"

// Config represents the complete application configuration
type Config struct {
	AWS     AWSConfig     `mapstructure:"aws"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Portal  PortalConfig  `mapstructure:"portal"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	State   StateConfig   `mapstructure:"state"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AWSConfig contains AWS-specific configuration
type AWSConfig struct {
	Region           string `mapstructure:"region"`
	Profile          string `mapstructure:"profile"`
	RetryMaxAttempts int    `mapstructure:"retry_max_attempts"`
	RetryMode        string `mapstructure:"retry_mode"`

	AuthenticationMethod string            `mapstructure:"authentication_method"`
	AssumeRole           *AssumeRoleConfig `mapstructure:"assume_role"`
	AccessKeys           *AccessKeysConfig `mapstructure:"access_keys"`

	// InstanceIDs restricts polling to these instances; empty means all
	InstanceIDs []string `mapstructure:"instance_ids"`
	// IncludeAllInstances also reports status for instances that are not running
	IncludeAllInstances bool `mapstructure:"include_all_instances"`
}

// AssumeRoleConfig contains STS AssumeRole configuration
type AssumeRoleConfig struct {
	RoleARN         string `mapstructure:"role_arn"`
	SessionName     string `mapstructure:"session_name"`
	DurationSeconds int32  `mapstructure:"duration_seconds"`
	ExternalID      string `mapstructure:"external_id"`
}

// AccessKeysConfig contains static access key configuration (DISCOURAGED)
type AccessKeysConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
}

// MonitorConfig holds the flags that gate fleet notifications
type MonitorConfig struct {
	Email          bool `mapstructure:"email"`
	OnlyChanges    bool `mapstructure:"only_changes"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// PortalConfig configures the portal health endpoint
type PortalConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	API            string `mapstructure:"api"`
	Email          string `mapstructure:"email"`
	Password       string `mapstructure:"password"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// NotifyConfig selects and configures the notification transport
type NotifyConfig struct {
	Transport string      `mapstructure:"transport"` // "ses", "slack" or "log"
	Subject   string      `mapstructure:"subject"`
	Email     EmailConfig `mapstructure:"email"`
	Slack     SlackConfig `mapstructure:"slack"`
}

// EmailConfig configures SES delivery
type EmailConfig struct {
	From   string   `mapstructure:"from"`
	To     []string `mapstructure:"to"`
	Region string   `mapstructure:"region"`
}

// SlackConfig configures Slack webhook delivery
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// StateConfig selects where the fleet baseline is persisted
type StateConfig struct {
	Backend string        `mapstructure:"backend"` // "file" or "s3"
	Path    string        `mapstructure:"path"`
	S3      StateS3Config `mapstructure:"s3"`
}

// StateS3Config locates the baseline object in S3
type StateS3Config struct {
	Bucket string `mapstructure:"bucket"`
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// flagKeys maps CLI flag names onto configuration keys
var flagKeys = map[string]string{
	"region":       "aws.region",
	"api":          "portal.api",
	"email":        "monitor.email",
	"only-changes": "monitor.only_changes",
	"transport":    "notify.transport",
	"state-file":   "state.path",
}

// Load loads configuration from the optional file at configPath, then
// environment variables, then any flags set in flags.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Portal credentials keep the names the portal tooling already uses
	_ = v.BindEnv("portal.email", EnvPrefix+"_PORTAL_EMAIL", "FK_EMAIL")
	_ = v.BindEnv("portal.password", EnvPrefix+"_PORTAL_PASSWORD", "FK_PASSWORD")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	normalize(&config)

	return &config, nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// AWS defaults (empty region falls back to the default provider chain)
	v.SetDefault("aws.region", "")
	// A failed poll is not retried; the run simply reports no decision
	v.SetDefault("aws.retry_max_attempts", 1)
	v.SetDefault("aws.profile", "")
	v.SetDefault("aws.retry_mode", "standard")
	v.SetDefault("aws.authentication_method", "default")
	v.SetDefault("aws.include_all_instances", false)

	v.SetDefault("monitor.email", false)
	v.SetDefault("monitor.only_changes", false)
	v.SetDefault("monitor.timeout_seconds", 120)

	v.SetDefault("portal.enabled", true)
	v.SetDefault("portal.api", "https://api.fieldkit.org")
	v.SetDefault("portal.timeout_seconds", 30)

	v.SetDefault("notify.transport", "log")
	v.SetDefault("notify.subject", "FK Server Status")
	v.SetDefault("notify.email.from", "")
	v.SetDefault("notify.email.to", []string{})
	v.SetDefault("notify.email.region", "us-east-1")
	v.SetDefault("notify.slack.webhook_url", "")

	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "/tmp/monitor-state.txt")
	v.SetDefault("state.s3.bucket", "")
	v.SetDefault("state.s3.key", "fleet-monitor/state.txt")
	v.SetDefault("state.s3.region", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validate performs configuration validation
func validate(config *Config) error {
	if err := validateAWS(&config.AWS); err != nil {
		return err
	}
	if err := validatePortal(&config.Portal); err != nil {
		return err
	}
	if err := validateNotify(&config.Notify); err != nil {
		return err
	}
	if err := validateState(&config.State); err != nil {
		return err
	}
	return validateLogging(&config.Logging)
}

// validateAWS validates AWS configuration
func validateAWS(aws *AWSConfig) error {
	if aws.RetryMaxAttempts < 1 {
		return fmt.Errorf("aws.retry_max_attempts must be at least 1")
	}
	if aws.RetryMode != "standard" && aws.RetryMode != "adaptive" {
		return fmt.Errorf("aws.retry_mode must be 'standard' or 'adaptive'")
	}
	switch aws.AuthenticationMethod {
	case "default", "instance_profile", "profile":
	case "assume_role":
		if aws.AssumeRole == nil || aws.AssumeRole.RoleARN == "" {
			return fmt.Errorf("aws.assume_role.role_arn is required for assume_role authentication")
		}
	case "access_keys":
		if aws.AccessKeys == nil || aws.AccessKeys.AccessKeyID == "" || aws.AccessKeys.SecretAccessKey == "" {
			return fmt.Errorf("aws.access_keys requires access_key_id and secret_access_key")
		}
	default:
		return fmt.Errorf("aws.authentication_method '%s' is not supported", aws.AuthenticationMethod)
	}
	return nil
}

// validatePortal validates the portal endpoint
func validatePortal(portal *PortalConfig) error {
	u, err := url.Parse(portal.API)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("portal.api must be an absolute URL, got '%s'", portal.API)
	}
	if portal.TimeoutSeconds <= 0 {
		return fmt.Errorf("portal.timeout_seconds must be positive")
	}
	return nil
}

// validateNotify validates the selected transport has what it needs
func validateNotify(notify *NotifyConfig) error {
	switch notify.Transport {
	case "ses":
		if notify.Email.From == "" {
			return fmt.Errorf("notify.email.from is required for the ses transport")
		}
		if len(notify.Email.To) == 0 {
			return fmt.Errorf("notify.email.to must list at least one recipient for the ses transport")
		}
	case "slack":
		if notify.Slack.WebhookURL == "" {
			return fmt.Errorf("notify.slack.webhook_url is required for the slack transport")
		}
	case "log":
	default:
		return fmt.Errorf("notify.transport must be one of: ses, slack, log")
	}
	return nil
}

// validateState validates the baseline backend
func validateState(state *StateConfig) error {
	switch state.Backend {
	case "file":
		if state.Path == "" {
			return fmt.Errorf("state.path is required for the file backend")
		}
	case "s3":
		if state.S3.Bucket == "" {
			return fmt.Errorf("state.s3.bucket is required for the s3 backend")
		}
		if state.S3.Key == "" {
			return fmt.Errorf("state.s3.key is required for the s3 backend")
		}
	default:
		return fmt.Errorf("state.backend must be 'file' or 's3'")
	}
	return nil
}

// validateLogging validates logging configuration
func validateLogging(logging *LoggingConfig) error {
	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	for _, level := range validLogLevels {
		if logging.Level == level {
			return nil
		}
	}
	return fmt.Errorf("logging.level must be one of: %s", strings.Join(validLogLevels, ", "))
}

// normalize performs configuration normalization
func normalize(config *Config) {
	config.Portal.API = strings.TrimSuffix(config.Portal.API, "/")

	if config.State.S3.Region == "" {
		config.State.S3.Region = config.AWS.Region
	}
}

// SetupLogger creates a zap logger with the configured settings.
// verbose forces debug level regardless of the configured level.
func (c *Config) SetupLogger(verbose bool) (*zap.Logger, error) {
	level := c.Logging.Level
	if verbose {
		level = "debug"
	}

	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}

	var zapConfig zap.Config
	switch c.Logging.Format {
	case "text":
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.Encoding = "console"
	default:
		zapConfig = zap.NewProductionConfig()
	}
	zapConfig.Level = atomicLevel

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger, nil
}
