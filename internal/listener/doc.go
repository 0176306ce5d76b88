// Package listener holds the concrete hub subscribers: per-role
// loggers that surface schedule changes to students, lecturers and
// admins, and an audit recorder that persists every event.
package listener
