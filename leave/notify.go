/*
notify.go - Notification sink interface

PURPOSE:
  The engine informs an external sink after every successful mutation.
  Delivery is fire-and-forget: a sink failure must never roll back or fail
  the underlying state change, so the controller ignores the returned error
  (sinks log their own failures).

SEE ALSO:
  - notify/redis.go: Redis pub/sub implementation
*/
package leave

import (
	"context"
	"time"
)

// EventKind names a lifecycle transition worth announcing.
type EventKind string

const (
	EventCreated   EventKind = "request_created"
	EventEdited    EventKind = "request_edited"
	EventCancelled EventKind = "request_cancelled"
	EventReviewed  EventKind = "request_reviewed"
)

// Event is the payload handed to the notification sink.
type Event struct {
	Kind    EventKind `json:"kind"`
	Request Request   `json:"request"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
}

// NotificationSink receives lifecycle events. Implementations own their
// retry and error-reporting behavior.
type NotificationSink interface {
	Notify(ctx context.Context, ev Event) error
}

// NopSink discards every event. Used when no sink is configured.
type NopSink struct{}

func (NopSink) Notify(ctx context.Context, ev Event) error { return nil }
