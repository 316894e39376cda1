// Package publisher emits job lifecycle notifications.
package publisher

import "context"

// Event describes a job lifecycle transition.
type Event struct {
	Event     string `json:"event"`
	Kind      string `json:"kind"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Lifecycle event names.
const (
	EventStarted  = "job_started"
	EventFinished = "job_finished"
	EventFailed   = "job_failed"
)

// Publisher delivers events best-effort; failures are logged by callers and
// never fail the job that emitted them.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// NoOp discards every event.
type NoOp struct{}

// Publish implements Publisher.
func (NoOp) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NoOp) Close() error { return nil }
