package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/scttfrdmn/fleet-monitor/internal/aws"
	"github.com/scttfrdmn/fleet-monitor/internal/config"
	"github.com/scttfrdmn/fleet-monitor/internal/monitor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	configFile string
	verbose    bool
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "fleet-monitor",
		Short: "Report EC2 fleet and portal queue health",
		Long: `Poll EC2 instance status and the portal's queue health, compare the
fleet against the last persisted baseline, and send a notification when
the fleet changed or a queue is backed up.`,
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Configuration file path (optional)")
	flags.StringP("region", "r", "", "AWS region of the fleet")
	flags.StringP("api", "a", "", "Portal API base URL")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolP("email", "e", false, "Include the fleet summary in the notification")
	flags.BoolP("only-changes", "o", false, "Only include the fleet summary when it changed since the last run")
	flags.String("transport", "", "Notification transport: ses, slack or log")
	flags.String("state-file", "", "Path of the fleet baseline file")

	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("Command failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	if logger != nil {
		_ = logger.Sync()
	}
}

// setup loads configuration and builds the package-level logger
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err = cfg.SetupLogger(verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, nil
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring cycle and notify if needed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Monitor.TimeoutSeconds)*time.Second)
			defer cancel()

			m, err := newMonitor(ctx, logger, cfg)
			if err != nil {
				return err
			}

			result, err := m.Run(ctx)
			if result != nil {
				logger.Info("Fleet check finished",
					zap.Stringer("verdict", result.Verdict),
					zap.Strings("warnings", result.Warnings),
					zap.Bool("notified", result.Sent))
			}
			return err
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current fleet summary without comparing or notifying",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Monitor.TimeoutSeconds)*time.Second)
			defer cancel()

			client, err := aws.NewClient(ctx, logger, &cfg.AWS)
			if err != nil {
				return err
			}

			m := monitor.New(logger, client.FleetSource(), nil, nil, nil, monitor.Options{})
			_, rendering, err := m.Snapshot(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rendering)
			return nil
		},
	}
}

func validateCmd() *cobra.Command {
	var checkAWS bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and optionally AWS credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			logger.Info("Configuration is valid",
				zap.String("file", configFile),
				zap.String("aws_region", cfg.AWS.Region),
				zap.String("transport", cfg.Notify.Transport),
				zap.String("state_backend", cfg.State.Backend),
				zap.Bool("portal_enabled", cfg.Portal.Enabled))

			if !checkAWS {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Monitor.TimeoutSeconds)*time.Second)
			defer cancel()

			client, err := aws.NewClient(ctx, logger, &cfg.AWS)
			if err != nil {
				return err
			}

			info, err := client.CallerIdentity(ctx)
			if err != nil {
				return err
			}

			logger.Info("AWS credentials are valid",
				zap.String("account", info.Account),
				zap.String("arn", info.ARN),
				zap.String("method", info.Method),
				zap.String("region", client.Region()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkAWS, "aws", false, "Also verify AWS credentials with STS")
	return cmd
}
