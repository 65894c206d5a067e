// Package sql is the gateway's only queue storage backend: a
// bun-based implementation of the internal/queue interfaces (Pusher,
// Puller, Observer, Cleaner) backing the jobs table that both
// cmd/server (push on submit) and cmd/worker (pull, complete, retry,
// kill, clean) operate against.
//
// # Overview
//
// The SQL backend provides:
//
//   - durable persistence of jobs
//   - job-id deduplication on Push (see Pusher), keyed by the
//     deterministic job id submission.Service derives from the
//     transaction id
//   - atomic state transitions
//   - visibility timeout (lease) semantics
//   - retry-safe Pull using UPDATE ... RETURNING
//
// It is compatible with SQLite, PostgreSQL and other bun-supported
// dialects, subject to their transactional guarantees. OpenSQLite and
// OpenPostgres wire up the two dialects this gateway ships with.
//
// # Concurrency Model
//
// Pull operations are implemented using a single atomic UPDATE statement
// with a subquery to avoid race conditions between selection and
// state transition.
//
// Correct behavior under high concurrency depends on:
//
//   - proper indexing
//   - database isolation guarantees
//   - write contention characteristics of the chosen backend
//
// SQLite users are strongly encouraged to enable WAL mode and
// configure an appropriate busy_timeout.
//
// # Schema
//
// The backend expects a "jobs" table corresponding to jobModel.
// InitDB (or MustInitDB) creates:
//
//   - the jobs table (if not exists)
//   - index (status, next_run_at)
//   - index (status, locked_until)
//   - index (status, updated_at)
//
// These indexes are required for efficient Pull and Clean operations.
//
// InitDB is idempotent and runs inside a transaction.
// It does not perform destructive migrations.
// Schema evolution must be handled externally.
//
// # Database Lifecycle
//
// This package does not manage connection pooling, migrations,
// or database lifecycle.
//
// The caller is responsible for:
//
//   - creating and configuring *bun.DB
//   - connection limits
//   - WAL/busy_timeout configuration (for SQLite)
//   - running InitDB before use
//
// # Limitations
//
// The SQL backend uses status + timestamp fields to implement
// lease semantics. It does not use lease tokens or optimistic
// locking versions.
//
// Exactly-once processing is not guaranteed by this package.
// Delivery semantics remain at-least-once; the exactly-once-effect
// property the gateway advertises comes from internal/protocol's
// GET-before-POST check, not from this storage layer.
package sql
