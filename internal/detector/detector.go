package detector

import (
	"context"
	"fmt"

	"github.com/scttfrdmn/fleet-monitor/internal/state"
	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"go.uber.org/zap"
)

// Detector compares the current fleet rendering against the stored baseline
type Detector struct {
	logger       *zap.Logger
	store        state.Store
	trackChanges bool
}

// New creates a change detector. When trackChanges is false the store is never touched.
func New(logger *zap.Logger, store state.Store, trackChanges bool) *Detector {
	return &Detector{
		logger:       logger,
		store:        store,
		trackChanges: trackChanges,
	}
}

// Detect returns the verdict for the current rendering. A changed rendering
// is saved as the new baseline before returning; if that save fails the
// verdict is still VerdictChanged and the error is returned alongside it.
func (d *Detector) Detect(ctx context.Context, current string) (types.Verdict, error) {
	if !d.trackChanges {
		return types.VerdictNone, nil
	}

	previous, ok := d.store.Load(ctx)
	if ok && previous == current {
		d.logger.Debug("Fleet unchanged since last baseline")
		return types.VerdictUnchanged, nil
	}

	d.logger.Info("Fleet changed since last baseline", zap.Bool("had_baseline", ok))

	if err := d.store.Save(ctx, current); err != nil {
		return types.VerdictChanged, fmt.Errorf("failed to save fleet baseline: %w", err)
	}

	return types.VerdictChanged, nil
}
