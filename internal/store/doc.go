// Package store provides SQLite-backed build history for opgraph.
//
// Each evaluate run appends:
//   - Runs: one row per evaluate invocation (id, target, graph digest, outcome counts)
//   - Operations: one row per operation the run scheduled (state, exit code, duration)
//
// # Ordering
//
// Runs are ordered by seq, a logical clock assigned by the store inside the
// write transaction (MAX(seq)+1), never by wall time. Operation rows carry
// the scheduler's completion seq and are read back ORDER BY seq ASC,
// operation_id ASC.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
