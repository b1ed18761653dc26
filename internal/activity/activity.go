// Package activity records registration and authentication events shown
// on the dashboard's recent activity list.
package activity

import (
	"context"
	"time"
)

const (
	// KindRegistered is recorded when a face credential is stored.
	KindRegistered = "face_registered"
	// KindAuthenticated is recorded when an authentication attempt succeeds.
	KindAuthenticated = "face_authenticated"
	// KindRejected is recorded when an authentication attempt fails.
	KindRejected = "face_rejected"
)

// Event is one recorded action.
type Event struct {
	ID         string    `json:"id" yaml:"id"`
	Kind       string    `json:"kind" yaml:"kind"`
	FlowID     string    `json:"flow_id,omitempty" yaml:"flow_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at" yaml:"occurred_at"`
}

// Recorder persists events and lists the newest first. Latest finds the
// newest event of a kind even when it has dropped out of Recent.
type Recorder interface {
	Record(ctx context.Context, event Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
	Latest(ctx context.Context, kind string) (Event, bool, error)
}

type flowKey struct{}

// WithFlow tags ctx with the flow session an operation belongs to.
func WithFlow(ctx context.Context, flowID string) context.Context {
	return context.WithValue(ctx, flowKey{}, flowID)
}

// FlowFrom returns the flow id stored by WithFlow, or "".
func FlowFrom(ctx context.Context) string {
	id, _ := ctx.Value(flowKey{}).(string)
	return id
}

// LastOf returns the newest event of kind, if any.
func LastOf(events []Event, kind string) (Event, bool) {
	for _, e := range events {
		if e.Kind == kind {
			return e, true
		}
	}
	return Event{}, false
}
