// Package schedule is the scheduling core: the Session entity, the
// conflict rules, and the Registry that owns the canonical timetable.
//
// Two sessions conflict when they fall on the same day, their
// half-open time ranges overlap, and they share a room or an
// instructor. The Registry rejects any mutation that would introduce
// a conflict and emits an Event for every mutation it commits.
package schedule
