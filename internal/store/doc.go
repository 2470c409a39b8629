// Package store provides SQLite-backed durable storage for ggraph boards and
// their evaluation log.
//
// A board is stored as rows of nodes and connectors that keep their board
// order through a position column. Saving a board replaces it whole inside a
// transaction. The boards table keeps a content hash (ir.BoardHash) so
// callers can tell whether a stored board changed.
//
// The evaluation log is append-only. Records are keyed by their
// content-addressed id, so appending the same record twice is a no-op.
//
// # Ordering
//
// All evaluation queries order by seq ASC, id ASC COLLATE BINARY. Seq comes
// from the engine's logical clock; wall time is never used.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
