package queue

import (
	"fmt"

	"github.com/scttfrdmn/fleet-monitor/pkg/types"
)

// Fixed queue depth thresholds; a count strictly above a threshold warns
const (
	PendingThreshold int64 = 500
	ErrorThreshold   int64 = 500
)

// Evaluate returns the warnings raised by the queue health metrics,
// pending queue first, then the error queue.
func Evaluate(health types.QueueHealth) []string {
	var warnings []string

	if health.Pending > PendingThreshold {
		warnings = append(warnings, fmt.Sprintf("WARNING: Queue length is %d", health.Pending))
	}

	if health.Errors > ErrorThreshold {
		warnings = append(warnings, fmt.Sprintf("WARNING: Error queue length is %d", health.Errors))
	}

	return warnings
}
