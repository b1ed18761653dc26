package notification

import (
	"context"
	"log/slog"
)

const (
	// KindFaceRegistered is sent after a face credential is stored.
	KindFaceRegistered = "face_registered"
	// KindFaceAuthenticated is sent after a successful face authentication.
	KindFaceAuthenticated = "face_authenticated"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	FlowID      string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("body", message.Body),
	}
	if message.FlowID != "" {
		attrs = append(attrs, slog.String("flow_id", message.FlowID))
	}
	n.logger.Info("notification", attrs...)
	return nil
}
