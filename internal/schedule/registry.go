package schedule

import (
	"fmt"
	"sync"
)

// Registry owns the canonical, ordered collection of sessions and
// enforces the no-double-booking invariant on every mutation.
//
// A single lock covers the whole check-then-mutate-then-emit sequence,
// so the conflict check and the mutation are atomic as a unit and
// event emission order matches mutation order. Consequence: notifier
// callbacks run while the lock is held and must not call back into
// the Registry.
//
// Rejected mutations leave the collection observably unchanged.
type Registry struct {
	mu       sync.RWMutex
	sessions []Session
	notifier Notifier
}

// NewRegistry creates an empty registry. notifier may be nil
// (mutations are then silent).
func NewRegistry(notifier Notifier) *Registry {
	return &Registry{notifier: notifier}
}

// Create adds a session after scanning the full collection for
// conflicts. The first colliding existing session, in collection
// order, determines the reported conflict kind (room is checked
// before instructor for each pair).
func (r *Registry) Create(s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if conflict := r.findConflictLocked(s, -1); conflict != nil {
		return conflict
	}
	r.sessions = append(r.sessions, s)
	r.emitLocked(EventCreated, s)
	return nil
}

// Update replaces the session identified by code wholesale. The old
// entry is excluded from the conflict check (a session never conflicts
// with its own prior state); on conflict it keeps its original
// position and no event is emitted.
func (r *Registry) Update(code string, s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(code)
	if idx < 0 {
		return fmt.Errorf("update %q: %w", code, ErrNotFound)
	}
	if conflict := r.findConflictLocked(s, idx); conflict != nil {
		return conflict
	}
	r.sessions[idx] = s
	r.emitLocked(EventUpdated, s)
	return nil
}

// Delete removes the first session matching code and emits a deleted
// event carrying the removed session.
func (r *Registry) Delete(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(code)
	if idx < 0 {
		return fmt.Errorf("delete %q: %w", code, ErrNotFound)
	}
	removed := r.sessions[idx]
	r.sessions = append(r.sessions[:idx], r.sessions[idx+1:]...)
	r.emitLocked(EventDeleted, removed)
	return nil
}

// FindConflict is a pure pre-validation query: it reports the conflict
// the candidate would cause, without mutating anything or emitting
// events. Returns nil when the candidate is admissible.
func (r *Registry) FindConflict(s Session) *ConflictError {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findConflictLocked(s, -1)
}

// Get returns a copy of the session with the given code.
func (r *Registry) Get(code string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.indexLocked(code); idx >= 0 {
		return r.sessions[idx], true
	}
	return Session{}, false
}

// Snapshot returns a copy of the collection in registration order.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Session(nil), r.sessions...)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// findConflictLocked scans in collection order, skipping the entry at
// index skip (pass -1 to check all). For each colliding pair the room
// is checked before the instructor, so a session that collides on
// both resources reports a room conflict.
func (r *Registry) findConflictLocked(candidate Session, skip int) *ConflictError {
	for i, existing := range r.sessions {
		if i == skip {
			continue
		}
		if !existing.Overlaps(candidate) {
			continue
		}
		if existing.Room == candidate.Room {
			return &ConflictError{Kind: RoomConflict, With: existing}
		}
		if existing.Instructor == candidate.Instructor {
			return &ConflictError{Kind: InstructorConflict, With: existing}
		}
	}
	return nil
}

func (r *Registry) indexLocked(code string) int {
	for i := range r.sessions {
		if r.sessions[i].Code == code {
			return i
		}
	}
	return -1
}

func (r *Registry) emitLocked(kind EventKind, s Session) {
	if r.notifier == nil {
		return
	}
	// Listener failures are handled (logged) inside the hub; a failed
	// delivery never rolls back a committed mutation.
	_ = r.notifier.Notify(newEvent(kind, s))
}
