package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogTransport writes notifications to the log instead of delivering them
type LogTransport struct {
	logger *zap.Logger
}

// NewLogTransport creates a log-only transport
func NewLogTransport(logger *zap.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

func (l *LogTransport) Name() string { return "log" }

func (l *LogTransport) Send(_ context.Context, subject, body string) error {
	l.logger.Info("Notification",
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}

// RecordingTransport collects sent notifications in memory
type RecordingTransport struct {
	Sent []Message
	Err  error
}

// Message is one notification captured by RecordingTransport
type Message struct {
	Subject string
	Body    string
}

func (r *RecordingTransport) Name() string { return "recording" }

func (r *RecordingTransport) Send(_ context.Context, subject, body string) error {
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, Message{Subject: subject, Body: body})
	return nil
}
