// Package store provides the optional SQLite-backed run history.
//
// Every orchestrator run is appended as one row in runs, its library
// instances in instances, and one row per step outcome in steps. The log
// is audit-only: whether a patch is applied is always decided from the
// on-disk tree, never from this database.
//
// # Ordering
//
// Runs are ordered by seq, an INTEGER logical clock assigned on insert,
// never by timestamps. Instances and steps keep the order the engine
// produced them in through their idx columns.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: hooks from parallel builds wait for the lock
//   - foreign_keys=ON
package store
