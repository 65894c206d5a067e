// Package queue is the gateway's own durable work queue: it is what
// turns "accept a transaction over HTTP" and "run the posting protocol
// against it" into two decoupled steps connected by at-least-once
// delivery, so a crashed worker or a slow downstream never loses a
// submitted transaction.
//
// # Overview
//
// The queue models explicit state transitions over a job.Job, which
// wraps a message.Message (a marshaled txn.Transaction, see
// internal/protocol) with delivery metadata. submission.Service pushes
// one job per accepted transaction; a Worker in cmd/worker pulls jobs
// and dispatches them to internal/protocol.Handler, the
// queue.MessageHandler that actually drives the GET-before-POST/POST/
// verify sequence.
//
// internal/queue/sql is the only storage backend implemented, but the
// package does not mandate it: Pusher, Puller, Observer and Cleaner
// are the seams a second backend would implement against.
//
// # Delivery Semantics
//
// The queue provides at-least-once processing guarantees.
//
// A job may be delivered more than once if:
//
//   - a worker crashes before completing it
//   - the visibility timeout expires
//   - the lease is lost due to concurrent processing
//
// Exactly-once-effect on the downstream posting service is not a
// queue property; it comes from internal/protocol's GET-before-POST
// check layered on top of this at-least-once delivery.
//
// Visibility Timeout (Lease Model)
//
// When a job is pulled, it transitions from Pending to Processing and
// receives a visibility timeout (LockedUntil). While the lease is valid,
// the job is not eligible for pulling by other workers.
//
// If the lease expires before completion, the job becomes eligible again.
//
// The Worker automatically extends the lease while a handler is running.
//
// # State Machine
//
// Jobs follow this lifecycle:
//
//	Pending    -> Processing
//	Processing -> Done
//	Processing -> Pending   (via Return)
//	Processing -> Dead
//
// Terminal states (Done, Dead) are not retried unless explicitly requeued.
// This job.Status machine is distinct from txn.Status, the machine a
// caller observes over HTTP; see job.Status's doc comment for how they
// relate.
//
// # Retry Policy
//
// The redelivery interval for a job returned with Retry is controlled
// by BackoffConfig. How many times a transaction may be retried before
// it is killed is not decided here: internal/protocol.Handler owns
// MAX_RETRIES and reports Kill directly once it is exhausted, so the
// queue always honors whatever Outcome the handler returns rather than
// keeping a second, independent retry budget that could drift out of
// sync with it.
//
// Attempts are incremented each time a job is successfully pulled.
//
// Worker
//
//	coordinates pulling, dispatching, retrying and completing jobs.
//
// It:
//
//   - periodically polls storage for eligible jobs
//   - dispatches them to a configurable worker pool
//   - extends job leases while handlers execute
//   - marks Done, reschedules, or kills a job based on the handler's Outcome
//   - supports graceful shutdown with timeout
//
// Worker does not guarantee exactly-once delivery.
//
// # Interfaces
//
// The queue package defines the following primary interfaces:
//
//	Pusher   — enqueue messages
//	Puller   — manage job lifecycle transitions
//	Observer — inspect job state
//	Cleaner  — remove terminal jobs
//
// internal/httpapi/handler's Health endpoint uses Observer to report
// queue depth by status, and internal/retention uses both Observer and
// Cleaner to enforce a count-based retention cap above and beyond the
// age-based one CleanWorker already applies.
//
// # Concurrency Model
//
// Worker uses a bounded internal queue and a fixed-size worker pool.
// Pulling and processing are decoupled to smooth load.
//
// Shutdown is graceful: in-flight handlers are allowed to finish,
// subject to a configurable timeout.
//
// # Storage Expectations
//
// Implementations of Puller must ensure atomic state transitions,
// durable persistence and correct visibility timeout handling.
// internal/queue/sql satisfies this over both SQLite and PostgreSQL via
// bun, using a unique constraint on the deterministic job id (derived
// from the transaction id) to make Push idempotent.
package queue
