package sql

import (
	"context"
	"time"

	"github.com/romanqed/txgate/internal/queue/job"
	"github.com/romanqed/txgate/internal/queue/message"
	"github.com/uptrace/bun"
)

// Pusher implements queue.Pusher over the jobs table. submission.Service
// is its only caller: it pushes a message keyed by the job id derived
// from the transaction id (see jobID in package submission), which is what makes
// the dedup rule below observable from a client resubmitting the same
// transaction.
//
// Unlike a plain insert-only queue, Pusher enforces job-id deduplication:
// pushing a message whose id already identifies a Pending or Processing
// job is a no-op. Pushing a message whose id identifies a job that has
// already reached a terminal state (Done or Dead) resets that row back
// to Pending, which is how the queue represents "a new job under a
// previously-used id" without minting a second primary key.
type Pusher struct {
	db *bun.DB
}

// NewPusher creates a new SQL-backed Pusher.
//
// The provided *bun.DB must be properly configured and connected.
// Schema initialization must be completed before pushing jobs.
func NewPusher(db *bun.DB) *Pusher {
	return &Pusher{
		db: db,
	}
}

// Push inserts a new message into storage, or, if a job with the same
// id already exists, applies the dedup rule above.
//
// The message is scheduled for execution after the specified delay.
// Internally, delay determines the initial NextRunAt timestamp.
//
// Push respects the provided context for cancellation.
func (p *Pusher) Push(ctx context.Context, msg *message.Message, delay time.Duration) error {
	model := fromMessage(msg, delay)
	_, err := p.db.NewInsert().
		Model(model).
		Exec(ctx)
	if err == nil {
		return nil
	}
	if !isUniqueViolation(err) {
		return err
	}
	return p.resetIfTerminal(ctx, model)
}

// resetIfTerminal re-enqueues a job whose id collided with an existing
// row, but only if that row is in a terminal state. A collision with a
// Pending or Processing row is treated as the enqueue already having
// happened and is silently accepted.
func (p *Pusher) resetIfTerminal(ctx context.Context, model *jobModel) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model(model).
		Set("status = ?", job.Pending).
		Set("attempts = 0").
		Set("locked_until = NULL").
		Set("next_run_at = ?", model.NextRunAt).
		Set("updated_at = ?", now).
		Set("metadata = ?", model.Metadata).
		Set("payload = ?", model.Payload).
		Where("id = ?", model.Id).
		Where("status IN (?, ?)", job.Done, job.Dead).
		Exec(ctx)
	if err != nil {
		return err
	}
	_ = res
	return nil
}
