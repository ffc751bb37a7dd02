// Package sqlite provides the SQLite implementation of the record store and
// the pipeline run log.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single Store implements:
//
//   - RecordStore: one table per record kind, one row per natural key
//   - RunStore: the append-only pipeline_runs log
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Upserts
//
// Every upsert is a single INSERT ... ON CONFLICT(natural_key) DO UPDATE
// statement returning the row's revision. Revision 1 means the row was
// created. ingested_at is written once; refreshed_at moves on every upsert.
//
// # Data Location
//
// By default, the database is stored at ~/.intel-ingest/data/intel.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
