package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/scttfrdmn/fleet-monitor/internal/aws"
	"github.com/scttfrdmn/fleet-monitor/internal/config"
	"github.com/scttfrdmn/fleet-monitor/internal/monitor"
	"github.com/scttfrdmn/fleet-monitor/internal/notify"
	"github.com/scttfrdmn/fleet-monitor/internal/portal"
	"github.com/scttfrdmn/fleet-monitor/internal/state"
	"go.uber.org/zap"
)

// newMonitor builds every collaborator of a run from configuration
func newMonitor(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*monitor.Monitor, error) {
	client, err := aws.NewClient(ctx, logger, &cfg.AWS)
	if err != nil {
		return nil, err
	}

	store, err := newStore(logger, cfg, client)
	if err != nil {
		return nil, err
	}

	transport, err := newTransport(logger, cfg, client)
	if err != nil {
		return nil, err
	}

	var queueSource monitor.QueueSource
	if cfg.Portal.Enabled {
		queueSource = newPortalClient(logger, cfg)
	}

	logger.Info("Monitor configured",
		zap.String("region", client.Region()),
		zap.String("transport", transport.Name()),
		zap.String("state_backend", cfg.State.Backend),
		zap.Bool("portal", cfg.Portal.Enabled))

	return monitor.New(logger, client.FleetSource(), queueSource, store, transport, monitor.Options{
		EmailRequested: cfg.Monitor.Email,
		TrackChanges:   cfg.Monitor.OnlyChanges,
		Subject:        cfg.Notify.Subject,
	}), nil
}

// s3Provider is the part of the AWS client the S3 baseline needs
type s3Provider interface {
	S3(region string) *s3.Client
}

// emailProvider is the part of the AWS client the SES transport needs
type emailProvider interface {
	EmailTransport(region, from string, to []string) *aws.EmailTransport
}

func newStore(logger *zap.Logger, cfg *config.Config, client s3Provider) (state.Store, error) {
	switch cfg.State.Backend {
	case "file":
		return state.NewFileStore(logger, cfg.State.Path), nil
	case "s3":
		s3cfg := cfg.State.S3
		return state.NewS3Store(logger, client.S3(s3cfg.Region), s3cfg.Bucket, s3cfg.Key), nil
	default:
		return nil, fmt.Errorf("unsupported state backend: %s", cfg.State.Backend)
	}
}

func newTransport(logger *zap.Logger, cfg *config.Config, client emailProvider) (notify.Transport, error) {
	switch cfg.Notify.Transport {
	case "ses":
		email := cfg.Notify.Email
		return client.EmailTransport(email.Region, email.From, email.To), nil
	case "slack":
		return notify.NewSlackTransport(cfg.Notify.Slack.WebhookURL), nil
	case "log":
		return notify.NewLogTransport(logger), nil
	default:
		return nil, fmt.Errorf("unsupported notification transport: %s", cfg.Notify.Transport)
	}
}

func newPortalClient(logger *zap.Logger, cfg *config.Config) *portal.Client {
	return portal.NewClient(logger, cfg.Portal.API, portal.Credentials{
		Email:    cfg.Portal.Email,
		Password: cfg.Portal.Password,
	}, time.Duration(cfg.Portal.TimeoutSeconds)*time.Second)
}
