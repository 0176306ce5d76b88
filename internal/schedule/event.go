package schedule

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the nature of the mutation that triggered notification.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event is an immutable record of one committed registry mutation.
// Session is the affected entry: the new value for created/updated,
// the removed value for deleted.
type Event struct {
	ID      uuid.UUID
	Kind    EventKind
	Session Session
	At      time.Time
}

// Notifier receives an Event for every committed mutation.
// Implemented by notify.Hub; the registry never learns who listens.
type Notifier interface {
	Notify(Event) error
}

func newEvent(kind EventKind, s Session) Event {
	return Event{
		ID:      uuid.New(),
		Kind:    kind,
		Session: s,
		At:      time.Now(),
	}
}
