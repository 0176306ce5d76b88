package listener

import (
	"context"
	"time"

	"siakad/internal/schedule"
	"siakad/internal/storage"
)

// Audit persists every schedule event to the configured store.
// Write failures propagate to the hub, which logs them; they never
// affect the mutation that produced the event.
type Audit struct {
	store   storage.Store
	timeout time.Duration
}

func NewAudit(store storage.Store) *Audit {
	return &Audit{store: store, timeout: 2 * time.Second}
}

func (a *Audit) HandleScheduleEvent(e schedule.Event) error {
	if a.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.store.AppendEvent(ctx, Record(e))
}

// Record converts an event to its persisted form.
func Record(e schedule.Event) storage.EventRecord {
	return storage.EventRecord{
		EventID:    e.ID.String(),
		Kind:       string(e.Kind),
		At:         e.At,
		Code:       e.Session.Code,
		CourseName: e.Session.CourseName,
		Day:        e.Session.Day.String(),
		Start:      e.Session.Start.String(),
		End:        e.Session.End.String(),
		Room:       e.Session.Room,
		Instructor: e.Session.Instructor,
		Capacity:   e.Session.Capacity,
	}
}
