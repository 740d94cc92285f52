package main

import (
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/scttfrdmn/fleet-monitor/internal/aws"
	"github.com/scttfrdmn/fleet-monitor/internal/config"
	"github.com/scttfrdmn/fleet-monitor/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakeProvider struct {
	s3Regions    []string
	emailRegions []string
}

func (f *fakeProvider) S3(region string) *s3.Client {
	f.s3Regions = append(f.s3Regions, region)
	return s3.New(s3.Options{Region: region})
}

func (f *fakeProvider) EmailTransport(region, from string, to []string) *aws.EmailTransport {
	f.emailRegions = append(f.emailRegions, region)
	return aws.NewEmailTransport(zap.NewNop(), nil, from, to)
}

func TestNewStore(t *testing.T) {
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "state.txt")

	t.Run("file", func(t *testing.T) {
		cfg := &config.Config{State: config.StateConfig{Backend: "file", Path: path}}
		store, err := newStore(logger, cfg, &fakeProvider{})
		require.NoError(t, err)

		fileStore, ok := store.(*state.FileStore)
		require.True(t, ok)
		assert.Equal(t, path, fileStore.Path())
	})

	t.Run("s3", func(t *testing.T) {
		provider := &fakeProvider{}
		cfg := &config.Config{State: config.StateConfig{
			Backend: "s3",
			S3:      config.StateS3Config{Bucket: "fleet", Key: "state.txt", Region: "eu-west-1"},
		}}
		store, err := newStore(logger, cfg, provider)
		require.NoError(t, err)

		assert.IsType(t, &state.S3Store{}, store)
		assert.Equal(t, []string{"eu-west-1"}, provider.s3Regions)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := &config.Config{State: config.StateConfig{Backend: "etcd"}}
		_, err := newStore(logger, cfg, &fakeProvider{})
		assert.Error(t, err)
	})
}

func TestNewTransport(t *testing.T) {
	logger := zaptest.NewLogger(t)

	tests := []struct {
		name     string
		notify   config.NotifyConfig
		wantName string
		wantErr  bool
	}{
		{
			name:     "log",
			notify:   config.NotifyConfig{Transport: "log"},
			wantName: "log",
		},
		{
			name:     "slack",
			notify:   config.NotifyConfig{Transport: "slack", Slack: config.SlackConfig{WebhookURL: "https://hooks.slack.com/services/x"}},
			wantName: "slack",
		},
		{
			name: "ses",
			notify: config.NotifyConfig{Transport: "ses", Email: config.EmailConfig{
				From:   "noreply@fieldkit.org",
				To:     []string{"ops@fieldkit.org"},
				Region: "us-east-1",
			}},
			wantName: "ses",
		},
		{
			name:    "unknown",
			notify:  config.NotifyConfig{Transport: "pager"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, err := newTransport(logger, &config.Config{Notify: tt.notify}, &fakeProvider{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, transport.Name())
		})
	}
}

func TestNewPortalClient(t *testing.T) {
	cfg := &config.Config{Portal: config.PortalConfig{
		Enabled:        true,
		API:            "https://api.fieldkit.org",
		TimeoutSeconds: 5,
	}}
	assert.NotNil(t, newPortalClient(zaptest.NewLogger(t), cfg))
}
