// Package events carries complaint lifecycle notifications from the services
// to interested parties: websocket subscribers, a RabbitMQ exchange and the
// Prometheus counters. Delivery is fire-and-forget; a Notifier never reports
// failure to the caller.
package events

import (
	"context"
	"time"

	"github.com/tbourn/go-complaints-backend/internal/domain"
)

// Type names a lifecycle notification. It doubles as the AMQP routing key.
type Type string

const (
	// ComplaintCreated is emitted after a submission is persisted.
	ComplaintCreated Type = "complaint.created"
	// ComplaintStatusChanged is emitted after a successful transition.
	ComplaintStatusChanged Type = "complaint.status_changed"
)

// Event is a single lifecycle notification. From and ActorID are set only for
// status changes.
type Event struct {
	Type      Type             `json:"type"`
	Complaint domain.Complaint `json:"complaint"`
	From      domain.Status    `json:"from,omitempty"`
	ActorID   string           `json:"actor_id,omitempty"`
	At        time.Time        `json:"at"`
}

// Notifier receives lifecycle events. Implementations must not block the
// caller for long and must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev Event)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Fanout delivers every event to each notifier in order. Nil entries are
// skipped.
type Fanout []Notifier

// Notify implements Notifier.
func (f Fanout) Notify(ctx context.Context, ev Event) {
	for _, n := range f {
		if n != nil {
			n.Notify(ctx, ev)
		}
	}
}

// Nop discards every event.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) {}
