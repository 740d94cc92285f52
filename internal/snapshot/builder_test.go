package snapshot

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func healthy(id string) types.StatusRecord {
	return types.StatusRecord{
		InstanceID:     id,
		LifecycleState: types.LifecycleRunning,
		InstanceStatus: types.StatusOK,
		SystemStatus:   types.StatusOK,
	}
}

func named(id, name string) types.InstanceRecord {
	return types.InstanceRecord{
		InstanceID: id,
		Tags:       []types.Tag{{Key: "Name", Value: name}},
	}
}

func TestBuilder_Build(t *testing.T) {
	tests := []struct {
		name      string
		instances []types.InstanceRecord
		statuses  []types.StatusRecord
		expected  []types.InstanceSummary
	}{
		{
			name:      "all instances matched keep listing order",
			instances: []types.InstanceRecord{named("i-b", "web"), named("i-a", "db")},
			statuses:  []types.StatusRecord{healthy("i-a"), healthy("i-b")},
			expected: []types.InstanceSummary{
				{ID: "i-b", Name: "web", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
				{ID: "i-a", Name: "db", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
			},
		},
		{
			name:      "instance without status is dropped",
			instances: []types.InstanceRecord{named("i-a", "db"), named("i-stopped", "old")},
			statuses:  []types.StatusRecord{healthy("i-a")},
			expected: []types.InstanceSummary{
				{ID: "i-a", Name: "db", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
			},
		},
		{
			name:      "status without instance is dropped",
			instances: []types.InstanceRecord{named("i-a", "db")},
			statuses:  []types.StatusRecord{healthy("i-orphan"), healthy("i-a")},
			expected: []types.InstanceSummary{
				{ID: "i-a", Name: "db", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
			},
		},
		{
			name:      "first duplicate status wins",
			instances: []types.InstanceRecord{named("i-a", "db")},
			statuses: []types.StatusRecord{
				{InstanceID: "i-a", LifecycleState: "running", InstanceStatus: "impaired", SystemStatus: "ok"},
				healthy("i-a"),
			},
			expected: []types.InstanceSummary{
				{ID: "i-a", Name: "db", LifecycleState: "running", InstanceStatus: "impaired", SystemStatus: "ok"},
			},
		},
		{
			name: "missing and duplicate name tags",
			instances: []types.InstanceRecord{
				{InstanceID: "i-a", Tags: []types.Tag{{Key: "Env", Value: "prod"}}},
				{InstanceID: "i-b", Tags: []types.Tag{{Key: "Name", Value: "first"}, {Key: "Name", Value: "second"}}},
				{InstanceID: "i-c", Tags: []types.Tag{{Key: "name", Value: "lowercase"}}},
			},
			statuses: []types.StatusRecord{healthy("i-a"), healthy("i-b"), healthy("i-c")},
			expected: []types.InstanceSummary{
				{ID: "i-a", Name: "UNNAMED", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
				{ID: "i-b", Name: "first", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
				{ID: "i-c", Name: "UNNAMED", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
			},
		},
		{
			name:     "empty fleet",
			expected: []types.InstanceSummary{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder(zaptest.NewLogger(t))

			snapshot, err := builder.Build(tt.instances, tt.statuses)
			require.NoError(t, err)

			if diff := cmp.Diff(tt.expected, snapshot.Instances); diff != "" {
				t.Errorf("Build() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuilder_BuildErrors(t *testing.T) {
	tests := []struct {
		name      string
		instances []types.InstanceRecord
		statuses  []types.StatusRecord
		target    error
	}{
		{
			name:      "missing instance status",
			instances: []types.InstanceRecord{named("i-a", "db")},
			statuses:  []types.StatusRecord{{InstanceID: "i-a", LifecycleState: "running", SystemStatus: "ok"}},
			target:    ErrMissingStatusField,
		},
		{
			name:      "missing lifecycle state",
			instances: []types.InstanceRecord{named("i-a", "db")},
			statuses:  []types.StatusRecord{{InstanceID: "i-a", InstanceStatus: "ok", SystemStatus: "ok"}},
			target:    ErrMissingStatusField,
		},
		{
			name:      "missing system status",
			instances: []types.InstanceRecord{named("i-a", "db")},
			statuses:  []types.StatusRecord{{InstanceID: "i-a", LifecycleState: "running", InstanceStatus: "ok"}},
			target:    ErrMissingStatusField,
		},
		{
			name:      "status record without id",
			instances: []types.InstanceRecord{named("i-a", "db")},
			statuses:  []types.StatusRecord{{LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"}},
			target:    ErrMalformedRecord,
		},
		{
			name:      "instance record without id",
			instances: []types.InstanceRecord{{}},
			statuses:  []types.StatusRecord{healthy("i-a")},
			target:    ErrMalformedRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			builder := NewBuilder(zaptest.NewLogger(t))

			snapshot, err := builder.Build(tt.instances, tt.statuses)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Empty(t, snapshot.Instances)
		})
	}
}

func TestBuilder_MissingFieldOnUnmatchedInstanceIsIgnored(t *testing.T) {
	builder := NewBuilder(zaptest.NewLogger(t))

	snapshot, err := builder.Build(
		[]types.InstanceRecord{named("i-a", "db")},
		[]types.StatusRecord{healthy("i-a"), {InstanceID: "i-orphan"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Len())
}

func TestRender(t *testing.T) {
	snapshot := types.FleetSnapshot{Instances: []types.InstanceSummary{
		{ID: "i-0123", Name: "web", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
		{ID: "i-4567", Name: "UNNAMED", LifecycleState: "stopped", InstanceStatus: "not-applicable", SystemStatus: "not-applicable"},
	}}

	rendered := Render(snapshot)
	lines := strings.Split(rendered, "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "i-0123 web                  running              ok                   ok", lines[0])
	assert.Equal(t, "i-4567 UNNAMED              stopped              not-applicable       not-applicable", lines[1])
	assert.False(t, strings.HasSuffix(rendered, "\n"))

	// Rendering is deterministic
	assert.Equal(t, rendered, Render(snapshot))
}

func TestRender_Empty(t *testing.T) {
	assert.Equal(t, "", Render(types.FleetSnapshot{}))
}

func TestRender_DetectsEveryField(t *testing.T) {
	base := types.InstanceSummary{ID: "i-a", Name: "web", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"}
	baseline := RenderLine(base)

	variants := []types.InstanceSummary{
		{ID: "i-b", Name: "web", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
		{ID: "i-a", Name: "api", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "ok"},
		{ID: "i-a", Name: "web", LifecycleState: "stopping", InstanceStatus: "ok", SystemStatus: "ok"},
		{ID: "i-a", Name: "web", LifecycleState: "running", InstanceStatus: "impaired", SystemStatus: "ok"},
		{ID: "i-a", Name: "web", LifecycleState: "running", InstanceStatus: "ok", SystemStatus: "impaired"},
	}
	for _, v := range variants {
		assert.NotEqual(t, baseline, RenderLine(v))
	}
}
