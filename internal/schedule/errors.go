package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession is returned by NewSession/Validate when the
	// time range is inverted or the day is out of range.
	ErrInvalidSession = errors.New("invalid session")

	// ErrNotFound is returned by Update/Delete when no session has the
	// given code. Recoverable; the collection is unchanged.
	ErrNotFound = errors.New("session not found")

	// Conflict sentinels. ConflictError unwraps to one of these so
	// callers can branch with errors.Is.
	ErrRoomConflict       = errors.New("room conflict")
	ErrInstructorConflict = errors.New("instructor conflict")
)

// ConflictKind discriminates which resource collided.
type ConflictKind int

const (
	RoomConflict ConflictKind = iota
	InstructorConflict
)

func (k ConflictKind) String() string {
	switch k {
	case RoomConflict:
		return "room"
	case InstructorConflict:
		return "instructor"
	default:
		return "conflict(" + fmt.Sprint(int(k)) + ")"
	}
}

// ConflictError reports a double-booking. With is a copy of the first
// already-registered session the candidate collided with, in
// collection order.
type ConflictError struct {
	Kind ConflictKind
	With Session
}

func (e *ConflictError) Error() string {
	switch e.Kind {
	case RoomConflict:
		return fmt.Sprintf("room %s already booked by %s (%s %s-%s)",
			e.With.Room, e.With.Code, e.With.Day, e.With.Start, e.With.End)
	default:
		return fmt.Sprintf("instructor %s already teaching %s (%s %s-%s)",
			e.With.Instructor, e.With.Code, e.With.Day, e.With.Start, e.With.End)
	}
}

func (e *ConflictError) Unwrap() error {
	if e.Kind == RoomConflict {
		return ErrRoomConflict
	}
	return ErrInstructorConflict
}
