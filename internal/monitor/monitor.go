// Package monitor runs one poll-compare-notify cycle over the fleet and the
// portal queue.
package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/scttfrdmn/fleet-monitor/internal/detector"
	"github.com/scttfrdmn/fleet-monitor/internal/notify"
	"github.com/scttfrdmn/fleet-monitor/internal/queue"
	"github.com/scttfrdmn/fleet-monitor/internal/snapshot"
	"github.com/scttfrdmn/fleet-monitor/internal/state"
	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUpstreamFetch marks a failed or malformed poll of either data source
var ErrUpstreamFetch = errors.New("upstream fetch failed")

// FleetSource supplies instance descriptions and instance status records
type FleetSource interface {
	FetchFleet(ctx context.Context) ([]types.InstanceRecord, []types.StatusRecord, error)
}

// QueueSource supplies the portal's queue depths
type QueueSource interface {
	FetchQueueHealth(ctx context.Context) (types.QueueHealth, error)
}

// Options are the run-level flags
type Options struct {
	EmailRequested bool
	TrackChanges   bool
	Subject        string
}

// Monitor wires the collaborators of a single run
type Monitor struct {
	logger    *zap.Logger
	fleet     FleetSource
	queue     QueueSource
	store     state.Store
	transport notify.Transport
	builder   *snapshot.Builder
	opts      Options
}

// Result describes what a run observed and decided
type Result struct {
	Snapshot  types.FleetSnapshot
	Rendering string
	Verdict   types.Verdict
	Warnings  []string
	Decision  types.NotificationDecision
	Sent      bool
}

// New creates a monitor. queueSource may be nil when queue health is not polled.
func New(logger *zap.Logger, fleet FleetSource, queueSource QueueSource, store state.Store, transport notify.Transport, opts Options) *Monitor {
	return &Monitor{
		logger:    logger,
		fleet:     fleet,
		queue:     queueSource,
		store:     store,
		transport: transport,
		builder:   snapshot.NewBuilder(logger),
		opts:      opts,
	}
}

type observation struct {
	instances []types.InstanceRecord
	statuses  []types.StatusRecord
	health    types.QueueHealth
}

// poll queries the fleet and the queue concurrently. Either failure aborts the run.
func (m *Monitor) poll(ctx context.Context) (*observation, error) {
	var obs observation

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		instances, statuses, err := m.fleet.FetchFleet(gctx)
		if err != nil {
			return fmt.Errorf("%w: fleet: %w", ErrUpstreamFetch, err)
		}
		obs.instances = instances
		obs.statuses = statuses
		return nil
	})

	if m.queue != nil {
		g.Go(func() error {
			health, err := m.queue.FetchQueueHealth(gctx)
			if err != nil {
				return fmt.Errorf("%w: queue health: %w", ErrUpstreamFetch, err)
			}
			obs.health = health
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &obs, nil
}

// Snapshot polls only the fleet and returns its snapshot and rendering.
// It never touches the baseline or the transport.
func (m *Monitor) Snapshot(ctx context.Context) (types.FleetSnapshot, string, error) {
	instances, statuses, err := m.fleet.FetchFleet(ctx)
	if err != nil {
		return types.FleetSnapshot{}, "", fmt.Errorf("%w: fleet: %w", ErrUpstreamFetch, err)
	}

	fleet, err := m.builder.Build(instances, statuses)
	if err != nil {
		return types.FleetSnapshot{}, "", err
	}

	return fleet, snapshot.Render(fleet), nil
}

// Run performs one monitoring cycle. A failed baseline save does not stop
// the computed notification from being dispatched; the save error is
// returned afterwards, joined with any delivery error.
func (m *Monitor) Run(ctx context.Context) (*Result, error) {
	m.logger.Info("Starting monitoring run",
		zap.Bool("email", m.opts.EmailRequested),
		zap.Bool("only_changes", m.opts.TrackChanges),
		zap.Bool("queue_health", m.queue != nil))

	obs, err := m.poll(ctx)
	if err != nil {
		return nil, err
	}

	fleet, err := m.builder.Build(obs.instances, obs.statuses)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Snapshot:  fleet,
		Rendering: snapshot.Render(fleet),
	}

	m.logger.Info("Fleet status",
		zap.Int("instances", fleet.Len()),
		zap.String("summary", result.Rendering))

	var saveErr error
	result.Verdict, saveErr = detector.New(m.logger, m.store, m.opts.TrackChanges).Detect(ctx, result.Rendering)
	if saveErr != nil {
		m.logger.Error("Failed to persist fleet baseline", zap.Error(saveErr))
	}

	result.Warnings = queue.Evaluate(obs.health)
	for _, warning := range result.Warnings {
		m.logger.Warn("Queue health warning", zap.String("warning", warning))
	}

	result.Decision = notify.Decide(notify.Options{
		EmailRequested: m.opts.EmailRequested,
		TrackChanges:   m.opts.TrackChanges,
		Subject:        m.opts.Subject,
	}, result.Rendering, result.Verdict, result.Warnings)

	sent, sendErr := notify.Dispatch(ctx, m.logger, m.transport, result.Decision)
	result.Sent = sent

	m.logger.Info("Monitoring run completed",
		zap.Stringer("verdict", result.Verdict),
		zap.Int("warnings", len(result.Warnings)),
		zap.Bool("notified", result.Sent))

	return result, errors.Join(saveErr, sendErr)
}
