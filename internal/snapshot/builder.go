package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"go.uber.org/zap"
)

var (
	// ErrMissingStatusField is returned when a correlated instance lacks a status value
	ErrMissingStatusField = errors.New("missing status field")
	// ErrMalformedRecord is returned when an upstream record has no instance id
	ErrMalformedRecord = errors.New("malformed upstream record")
)

// lineFormat renders id, name, lifecycle state, instance status and system status
const lineFormat = "%s %-20s %-20s %-20s %s"

// Builder converts raw fleet records into a FleetSnapshot
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new snapshot builder
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// Build correlates instance records with status records by instance id.
// Instances without a status record are skipped, as are status records
// without an instance. The first status record for an id wins.
func (b *Builder) Build(instances []types.InstanceRecord, statuses []types.StatusRecord) (types.FleetSnapshot, error) {
	statusByID := make(map[string]types.StatusRecord, len(statuses))
	for i, status := range statuses {
		if status.InstanceID == "" {
			return types.FleetSnapshot{}, fmt.Errorf("status record %d has no instance id: %w", i, ErrMalformedRecord)
		}
		if _, seen := statusByID[status.InstanceID]; seen {
			b.logger.Debug("Ignoring duplicate status record", zap.String("instance_id", status.InstanceID))
			continue
		}
		statusByID[status.InstanceID] = status
	}

	snapshot := types.FleetSnapshot{Instances: make([]types.InstanceSummary, 0, len(instances))}
	for i, instance := range instances {
		if instance.InstanceID == "" {
			return types.FleetSnapshot{}, fmt.Errorf("instance record %d has no instance id: %w", i, ErrMalformedRecord)
		}

		status, ok := statusByID[instance.InstanceID]
		if !ok {
			b.logger.Debug("Skipping instance without status record", zap.String("instance_id", instance.InstanceID))
			continue
		}

		if err := checkStatusFields(status); err != nil {
			return types.FleetSnapshot{}, err
		}

		snapshot.Instances = append(snapshot.Instances, types.InstanceSummary{
			ID:             instance.InstanceID,
			Name:           instance.Name(),
			LifecycleState: status.LifecycleState,
			InstanceStatus: status.InstanceStatus,
			SystemStatus:   status.SystemStatus,
		})
	}

	b.logger.Debug("Built fleet snapshot",
		zap.Int("instances", len(instances)),
		zap.Int("statuses", len(statuses)),
		zap.Int("summaries", snapshot.Len()))

	return snapshot, nil
}

func checkStatusFields(status types.StatusRecord) error {
	switch {
	case status.LifecycleState == "":
		return fmt.Errorf("instance %s: lifecycle state: %w", status.InstanceID, ErrMissingStatusField)
	case status.InstanceStatus == "":
		return fmt.Errorf("instance %s: instance status: %w", status.InstanceID, ErrMissingStatusField)
	case status.SystemStatus == "":
		return fmt.Errorf("instance %s: system status: %w", status.InstanceID, ErrMissingStatusField)
	}
	return nil
}

// RenderLine renders a single instance summary as a fixed-width line
func RenderLine(summary types.InstanceSummary) string {
	return fmt.Sprintf(lineFormat,
		summary.ID,
		summary.Name,
		summary.LifecycleState,
		summary.InstanceStatus,
		summary.SystemStatus)
}

// Render produces the canonical text of a snapshot: one line per instance
// in snapshot order, joined by newlines. This text is both the unit of
// comparison against the stored baseline and the notification content.
func Render(snapshot types.FleetSnapshot) string {
	lines := make([]string, 0, snapshot.Len())
	for _, summary := range snapshot.Instances {
		lines = append(lines, RenderLine(summary))
	}
	return strings.Join(lines, "\n")
}
