package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is the day-of-week discriminator for sessions. Conflict checks
// only compare sessions scheduled on the same Day.
type Day int

const (
	Monday Day = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

func (d Day) String() string {
	if d < Monday || d > Sunday {
		return "day(" + strconv.Itoa(int(d)) + ")"
	}
	return dayNames[d]
}

func (d Day) Valid() bool { return d >= Monday && d <= Sunday }

// ParseDay accepts full English day names, case-insensitive.
func ParseDay(raw string) (Day, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for i, name := range dayNames {
		if s == name {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("invalid day %q", raw)
}

// DayOf maps a time.Weekday onto Day.
func DayOf(w time.Weekday) Day {
	if w == time.Sunday {
		return Sunday
	}
	return Day(int(w) - 1)
}

// ClockTime is a wall-clock time of day in minutes since midnight.
// It carries no date and no timezone.
type ClockTime int

// ParseClock parses "HH:MM" (24-hour).
func ParseClock(raw string) (ClockTime, error) {
	s := strings.TrimSpace(raw)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (want HH:MM)", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return ClockTime(h*60 + m), nil
}

// MustClock is ParseClock for literals; it panics on bad input.
// Intended for tests and seed tooling.
func MustClock(raw string) ClockTime {
	c, err := ParseClock(raw)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Session is one scheduled class meeting. Code is the immutable lookup
// key; Room and Instructor are the exclusive resources; Capacity is
// informational only.
type Session struct {
	Code       string
	CourseName string
	Day        Day
	Start      ClockTime
	End        ClockTime
	Room       string
	Instructor string
	Capacity   int
}

// NewSession builds a Session and enforces Start < End. The registry
// relies on this precondition; callers validate field presence
// themselves.
func NewSession(code, courseName string, day Day, start, end ClockTime, room, instructor string, capacity int) (Session, error) {
	s := Session{
		Code:       code,
		CourseName: courseName,
		Day:        day,
		Start:      start,
		End:        end,
		Room:       room,
		Instructor: instructor,
		Capacity:   capacity,
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks the invariants NewSession enforces. Exposed so
// callers constructing Session literals (e.g. decoded from a seed
// file) can run the same checks.
func (s Session) Validate() error {
	if !s.Day.Valid() {
		return fmt.Errorf("%w: day %d out of range", ErrInvalidSession, int(s.Day))
	}
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %s not before end %s", ErrInvalidSession, s.Start, s.End)
	}
	return nil
}

// Overlaps reports half-open interval overlap on the same day.
// Sessions that merely touch at an endpoint do not overlap.
func (s Session) Overlaps(other Session) bool {
	if s.Day != other.Day {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}
