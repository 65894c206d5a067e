package job

import (
	"time"

	"github.com/romanqed/txgate/internal/queue/message"
)

// Job is a marshaled txn.Transaction (carried in Message.Payload, see
// internal/protocol) plus the delivery and scheduling metadata the
// queue storage needs to run the posting protocol at least once per
// transaction.
//
// CreatedAt records when the job was initially enqueued.
// UpdatedAt records the last state transition or modification.
//
// Status represents the current state in the job lifecycle, distinct
// from the domain-visible txn.Status a caller polls over HTTP: a job
// can cycle Pending/Processing/Pending several times under retry while
// the transaction's own txn.Status stays Processing throughout.
// Attempts counts how many times the job has been pulled for
// execution; internal/protocol.Handler receives it directly so it can
// size the posting protocol's own verification backoff and enforce
// MAX_RETRIES.
// LockedUntil defines the visibility timeout; while set and in the future,
// the job is considered owned by a worker.
// NextRunAt specifies the earliest time the job may be pulled.
//
// Job instances should be treated as snapshots of storage state.
// Mutating fields directly does not change the underlying queue state;
// transitions must be performed through the Puller interface.
type Job struct {
	message.Message

	CreatedAt time.Time
	UpdatedAt time.Time

	Status      Status
	Attempts    uint32
	LockedUntil *time.Time
	NextRunAt   time.Time
}
