package queue

import (
	"testing"

	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		health   types.QueueHealth
		expected []string
	}{
		{
			name:   "empty queues",
			health: types.QueueHealth{},
		},
		{
			name:   "pending at threshold",
			health: types.QueueHealth{Pending: 500},
		},
		{
			name:     "pending above threshold",
			health:   types.QueueHealth{Pending: 501},
			expected: []string{"WARNING: Queue length is 501"},
		},
		{
			name:   "errors at threshold",
			health: types.QueueHealth{Errors: 500},
		},
		{
			name:     "errors above threshold",
			health:   types.QueueHealth{Errors: 501},
			expected: []string{"WARNING: Error queue length is 501"},
		},
		{
			name:   "both above threshold",
			health: types.QueueHealth{Pending: 600, Errors: 600},
			expected: []string{
				"WARNING: Queue length is 600",
				"WARNING: Error queue length is 600",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Evaluate(tt.health))
		})
	}
}
