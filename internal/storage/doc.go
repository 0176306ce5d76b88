// Package storage persists schedule event history.
//
// The registry's canonical collection stays in memory; this layer only
// records what happened, for audit trails and operator tooling.
//
// Backends:
//   - "file": dependency-free append-only JSON Lines
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
package storage
