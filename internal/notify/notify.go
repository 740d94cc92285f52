package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/scttfrdmn/fleet-monitor/pkg/types"
	"go.uber.org/zap"
)

// DefaultSubject is used when no subject is configured
const DefaultSubject = "Fleet Status"

// Transport delivers a composed notification
type Transport interface {
	// Name returns the transport identifier
	Name() string
	// Send delivers subject and body
	Send(ctx context.Context, subject, body string) error
}

// Options are the run flags that gate fleet notifications
type Options struct {
	EmailRequested bool
	TrackChanges   bool
	Subject        string
}

// includeFleet reports whether the fleet paragraph belongs in this run's notification
func (o Options) includeFleet(verdict types.Verdict) bool {
	if !o.EmailRequested {
		return false
	}
	if !o.TrackChanges {
		return true
	}
	return verdict == types.VerdictChanged
}

// Decide merges the fleet rendering and the queue warnings into one decision.
// Queue warnings are always included; the fleet paragraph only when the flags
// and verdict call for it. An empty composition is never sent.
func Decide(opts Options, fleet string, verdict types.Verdict, warnings []string) types.NotificationDecision {
	var messages []string

	if opts.includeFleet(verdict) && fleet != "" {
		messages = append(messages, fleet)
	}
	messages = append(messages, warnings...)

	if len(messages) == 0 {
		return types.NotificationDecision{}
	}

	subject := opts.Subject
	if subject == "" {
		subject = DefaultSubject
	}

	return types.NotificationDecision{
		ShouldSend: true,
		Subject:    subject,
		Body:       strings.Join(messages, "\n"),
	}
}

// Dispatch hands the decision to the transport when it calls for a send.
// It returns whether a notification was sent.
func Dispatch(ctx context.Context, logger *zap.Logger, transport Transport, decision types.NotificationDecision) (bool, error) {
	if !decision.ShouldSend {
		logger.Info("Nothing to notify")
		return false, nil
	}

	logger.Info("Sending notification",
		zap.String("transport", transport.Name()),
		zap.String("subject", decision.Subject),
		zap.Int("body_bytes", len(decision.Body)))

	if err := transport.Send(ctx, decision.Subject, decision.Body); err != nil {
		return false, fmt.Errorf("failed to deliver notification via %s: %w", transport.Name(), err)
	}

	return true, nil
}
