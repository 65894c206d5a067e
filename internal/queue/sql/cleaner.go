package sql

import (
	"context"
	"time"

	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/job"
	"github.com/uptrace/bun"
)

// Cleaner implements queue.Cleaner over the jobs table. It backs both
// CleanWorker's age-based sweep and internal/retention.CountCapper's
// count-based one: whichever of the two decides a row has aged out
// first is the one that deletes it.
//
// This implementation deletes rows directly from the jobs table
// and does not participate in visibility timeout or processing logic.
type Cleaner struct {
	db *bun.DB
}

// NewCleaner creates a new SQL-backed Cleaner.
//
// The provided *bun.DB must be properly configured and connected.
// Schema initialization must be completed before using Cleaner.
func NewCleaner(db *bun.DB) *Cleaner {
	return &Cleaner{
		db: db,
	}
}

// Clean deletes jobs matching the provided status and time filter.
//
// Only terminal states are allowed:
//
//   - job.Done
//   - job.Dead
//
// If status is job.Unknown (zero value), both Done and Dead jobs
// are eligible for deletion.
//
// If status refers to a non-terminal state (such as Pending or Processing),
// ErrBadStatus is returned.
//
// If before is non-nil, only jobs with updated_at <= *before
// are deleted. If before is nil, no time-based filtering is applied.
//
// Clean returns the number of deleted rows.
//
// Clean does not attempt to lock or coordinate with running workers.
// Deleting Processing jobs is explicitly disallowed by status checks.
func (c *Cleaner) Clean(ctx context.Context, status job.Status, before *time.Time) (int64, error) {
	if status != 0 && status != job.Dead && status != job.Done {
		return 0, queue.ErrBadStatus
	}
	query := c.db.NewDelete().Model((*jobModel)(nil))
	if status != 0 {
		query.Where("status = ?", status)
	} else {
		query.Where("status IN (?, ?)", job.Done, job.Dead)
	}
	if before != nil {
		query.Where("updated_at <= ?", before)
	}
	res, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
