// Package job defines the stateful representation of a queued
// transaction-posting attempt within the gateway's internal queue.
//
// A Job extends message.Message (whose Payload holds the marshaled
// txn.Transaction) with delivery and scheduling metadata. It is the
// row-level unit internal/queue/sql persists, distinct from the
// txn.State record the submission API reports back to callers.
//
// Unlike message.Message, Job contains state-machine fields such as Status,
// Attempts, lock information, and scheduling timestamps. These fields are
// maintained by the queue storage and worker logic.
//
// Job values are typically returned by Pull operations and passed back to
// the storage layer for state transitions (Complete, Return, Kill, etc.).
//
// Job is not intended to be constructed manually by user code.
// Its fields reflect the authoritative state stored by the queue backend.
package job
