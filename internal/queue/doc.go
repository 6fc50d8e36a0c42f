// Package queue persists deferred farm-record operations in SQLite and
// exposes helpers for driving their lifecycle.
//
// The Store is the single source of truth for offline work: enqueueing with
// bounded capacity (oldest-first eviction), status transitions, retry
// bookkeeping, transcription confirmation, and the conflict audit table.
// Items carry a tagged payload union; the sync processor dispatches on the
// tag to replay each operation against the farm API.
//
// The database is transient storage for in-flight work rather than a
// long-term archive, with the exception of the conflicts table, which is
// retained as an audit trail. Schema changes bump the version in schema.go;
// users clear the database to adopt the new schema.
package queue
