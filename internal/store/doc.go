// Package store provides SQLite-backed persistence for product definitions
// and measurement records.
//
// Product definitions are versioned: every distinct measurement-point list
// registered for a product is kept in product_versions, and records pin the
// version they were created against.
//
// Records carry a version column. UpdateRecord only writes when the stored
// version matches the one the caller read, so two concurrent saves on the
// same record cannot both win. Callers that need several reads and writes
// to land together use WithTx.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
