// Package retention enforces the completed/failed job retention
// policy on top of the queue package's Cleaner and Observer
// contracts: CleanWorker already age-trims a single status on a
// timer, so this package adds the one thing it cannot express, a
// count cap, by reading back a count via Observer and deriving a
// cutoff time Cleaner.Clean can use.
package retention

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/job"
)

// CountCapper trims the job set of its status down to MaxCount
// entries, keeping the most recently updated ones, whenever there are
// more than MaxCount present. Jobs whose UpdatedAt equals the cutoff
// are deleted together, so ties can leave fewer than MaxCount. It runs alongside a queue.CleanWorker that
// handles the age-based half of the policy; whichever of the two
// reaches a job first deletes it.
type CountCapper struct {
	observer queue.Observer
	cleaner  queue.Cleaner
	status   job.Status
	maxCount int
	log      *slog.Logger
}

// New builds a CountCapper.
func New(observer queue.Observer, cleaner queue.Cleaner, status job.Status, maxCount int, log *slog.Logger) *CountCapper {
	return &CountCapper{observer: observer, cleaner: cleaner, status: status, maxCount: maxCount, log: log}
}

// Run performs one trim pass.
func (c *CountCapper) Run(ctx context.Context) {
	jobs, err := c.observer.List(ctx, c.status, 0)
	if err != nil {
		c.log.Error("retention: cannot list jobs", "status", c.status, "err", err)
		return
	}
	if len(jobs) <= c.maxCount {
		return
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].UpdatedAt.After(jobs[j].UpdatedAt) })
	cutoff := jobs[c.maxCount].UpdatedAt
	n, err := c.cleaner.Clean(ctx, c.status, &cutoff)
	if err != nil {
		c.log.Error("retention: cannot trim jobs", "status", c.status, "err", err)
		return
	}
	c.log.Info("retention: trimmed jobs over count cap", "status", c.status, "count", n)
}

// RunEvery runs Run on interval until ctx is canceled.
func (c *CountCapper) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Run(ctx)
		}
	}
}

