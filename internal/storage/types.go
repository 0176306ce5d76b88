package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": append-only JSONL backend
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
	KeepDays    int           // prune event rows older than this; 0 keeps forever
}

// EventRecord is the persisted form of one schedule event.
// Keep it compact and schema-stable; times of day are "HH:MM" strings.
type EventRecord struct {
	EventID    string    `json:"event_id"`
	Kind       string    `json:"kind"`
	At         time.Time `json:"at"`
	Code       string    `json:"code"`
	CourseName string    `json:"course_name,omitempty"`
	Day        string    `json:"day"`
	Start      string    `json:"start"`
	End        string    `json:"end"`
	Room       string    `json:"room"`
	Instructor string    `json:"instructor"`
	Capacity   int       `json:"capacity,omitempty"`
}
