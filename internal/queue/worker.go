package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/romanqed/txgate/internal/queue/job"
	"github.com/romanqed/txgate/internal/queue/message"
)

// Outcome is the tagged result a MessageHandler hands back to Worker.
// It replaces a plain error return so the worker never has to guess,
// from an opaque error value, whether a failed posting attempt should
// be retried or is terminal.
type Outcome int

const (
	// Completed marks the job Done: the transaction was posted and
	// observed, or was already observed complete on a prior attempt.
	Completed Outcome = iota
	// Retry reschedules the job through BackoffConfig: the attempt
	// failed but the posting protocol could not rule out that a retry
	// will eventually succeed or land on a terminal verification.
	Retry
	// Kill marks the job Dead immediately, bypassing BackoffConfig:
	// the posting protocol reached a state it knows will never
	// resolve on its own (a verified terminal failure, a malformed
	// transaction, an exhausted verification budget).
	Kill
)

// MessageHandler defines the user-provided function that processes
// a message pulled from the queue.
//
// The provided context is canceled when:
//
//   - the worker is shutting down
//   - the job lease is lost
//
// attempt is the job's current Attempts count, letting the handler
// size its own verification backoff (see internal/protocol) without
// the queue having to thread attempt metadata through the message.
//
// The handler must be idempotent. The queue provides at-least-once
// delivery semantics, and a message may be dispatched more than once
// if a worker crashes or fails to complete it before the visibility
// timeout expires.
//
// The returned Outcome tells Worker how to conclude the job; a non-nil
// error is logged alongside it regardless of Outcome.
type MessageHandler func(ctx context.Context, msg *message.Message, attempt uint32) (Outcome, error)

type resultChan chan handlerResult

type handlerResult struct {
	outcome Outcome
	err     error
}

// WorkerConfig defines runtime behavior of a Worker.
//
// Concurrency specifies the number of concurrent message handlers.
//
// Queue specifies the internal buffering capacity between pulling
// jobs from storage and dispatching them to handlers.
//
// BatchSize defines the maximum number of jobs fetched in a single Pull.
//
// PullInterval defines how often the worker polls storage for new jobs.
//
// LockTimeout defines the visibility timeout (lease duration) assigned
// to each pulled job.
//
// Backoff defines the retry policy applied when a handler returns Retry.
type WorkerConfig struct {
	Concurrency  int
	Queue        int
	BatchSize    int
	PullInterval time.Duration
	LockTimeout  time.Duration
	Backoff      BackoffConfig
}

// Worker coordinates pulling, dispatching, retrying and completing jobs.
//
// Worker implements an at-least-once processing model:
//
//  1. Periodically Pull jobs from storage.
//  2. Transition them to Processing with a visibility timeout.
//  3. Dispatch them to the user-provided MessageHandler.
//  4. Extend the visibility timeout while the handler runs.
//  5. On Completed, mark the job as Done.
//  6. On Retry, reschedule the job according to BackoffConfig.
//  7. On Kill, permanently fail the job, bypassing BackoffConfig.
//
// Worker does not guarantee exactly-once delivery; that guarantee is
// built on top of it by internal/protocol, which drives the
// GET-before-POST/POST/verify sequence and turns its result into an
// Outcome. Handlers must still be idempotent.
//
// Worker has a strict lifecycle:
//   - Start may only be called once.
//   - Stop gracefully shuts down pull and worker goroutines.
//   - Stop waits until all in-flight handlers finish or the timeout expires.
type Worker struct {
	lcBase
	puller    Puller
	pullTask  timerTask
	pool      *jobPool[*job.Job]
	log       *slog.Logger
	handler   MessageHandler
	batchSize int
	interval  time.Duration
	lock      time.Duration
	halfLock  time.Duration
	backoff   backoffCounter
}

// NewWorker creates a new Worker instance.
//
// The worker is not started automatically. Call Start to begin processing.
//
// The provided Puller implementation defines storage semantics.
// The provided MessageHandler defines user processing logic.
func NewWorker(puller Puller, handler MessageHandler, config *WorkerConfig, log *slog.Logger) *Worker {
	return &Worker{
		puller:    puller,
		pool:      newJobPool[*job.Job](config.Concurrency, config.Queue, log),
		log:       log,
		handler:   handler,
		batchSize: config.BatchSize,
		interval:  config.PullInterval,
		lock:      config.LockTimeout,
		halfLock:  config.LockTimeout / 2,
		backoff:   backoffCounter{config.Backoff},
	}
}

func (w *Worker) pull(ctx context.Context) {
	jobs, err := w.puller.Pull(ctx, w.batchSize, w.lock)
	if err != nil {
		w.log.Error("pull failed", "err", err)
		return
	}
	for _, entry := range jobs {
		if !w.pool.Push(entry) {
			w.log.Debug("job push interrupted via shutdown", "id", entry.Id)
			return // pool closed, stop handle any jobs, LockUntil fix possible pull-hold
		}
	}
}

func dispatch(handler MessageHandler, ctx context.Context, msg *message.Message, attempt uint32) resultChan {
	ret := make(resultChan, 1)
	go func() {
		outcome, err := handler(ctx, msg, attempt)
		ret <- handlerResult{outcome: outcome, err: err}
	}()
	return ret
}

func (w *Worker) handleOrExtend(ctx context.Context, jb *job.Job) handlerResult {
	wrapped, cancel := context.WithCancel(ctx)
	defer cancel()
	resCh := dispatch(w.handler, wrapped, &jb.Message, jb.Attempts)
	timer := time.NewTimer(w.halfLock)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			if err := w.puller.ExtendLock(ctx, jb, w.lock); err != nil {
				cancel()
				return handlerResult{outcome: Retry, err: err}
			}
			timer.Reset(w.halfLock)
		case res := <-resCh:
			return res
		}
	}
}

func (w *Worker) handle(ctx context.Context, jb *job.Job) {
	res := w.handleOrExtend(ctx, jb)
	if res.err != nil && errors.Is(res.err, ErrLockLost) {
		w.log.Warn("job lock lost", "id", jb.Id, "err", res.err)
		return
	}
	switch res.outcome {
	case Completed:
		if res.err != nil {
			w.log.Error("handler completed job with error", "id", jb.Id, "err", res.err)
		}
		if err := w.puller.Complete(ctx, jb); err != nil {
			w.log.Error("cannot complete job", "id", jb.Id, "err", err)
		}
	case Kill:
		w.log.Error("job killed by handler", "id", jb.Id, "err", res.err)
		if err := w.puller.Kill(ctx, jb); err != nil {
			w.log.Error("cannot kill job", "id", jb.Id, "err", err)
		}
	default: // Retry
		if res.err != nil {
			w.log.Warn("job attempt failed, will retry", "id", jb.Id, "err", res.err)
		}
		backoff := w.backoff.next(jb.Attempts)
		if err := w.puller.Return(ctx, jb, backoff); err != nil {
			w.log.Error("cannot return job", "id", jb.Id, "err", err)
		}
	}
}

// Start begins background pulling and processing of jobs.
//
// Start returns ErrDoubleStarted if the worker has already been started.
//
// The provided context controls cancellation of the worker. When ctx
// is canceled, pulling stops and in-flight handlers receive a canceled
// context.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.tryStart(); err != nil {
		return err
	}
	w.pool.Start(ctx, w.handle)
	w.pullTask.Start(ctx, w.pull, w.interval)
	return nil
}

func (w *Worker) doStop() doneChan {
	first := w.pullTask.Stop()
	second := w.pool.Stop()
	return combine(first, second)
}

// Stop initiates graceful shutdown of the worker.
//
// Stop performs the following steps:
//
//  1. Stops periodic pulling of new jobs.
//  2. Cancels the internal worker pool.
//  3. Waits for all in-flight handlers to complete.
//
// If shutdown does not complete within the specified timeout,
// ErrStopTimeout is returned. In this case, background goroutines
// may still be terminating.
//
// Stop returns ErrDoubleStopped if the worker is not running.
func (w *Worker) Stop(timeout time.Duration) error {
	return w.tryStop(timeout, w.doStop)
}
