package queue_test

import (
	"context"
	"database/sql"
	"errors"

	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/job"
	"github.com/romanqed/txgate/internal/queue/message"
	gsql "github.com/romanqed/txgate/internal/queue/sql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1) // important for sqlite
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	ctx := context.Background()
	if err := gsql.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestWorkerProcessesJob(t *testing.T) {
	db := newTestDB(t)

	pusher := gsql.NewPusher(db)
	puller := gsql.NewPuller(db)
	observer := gsql.NewObserver(db)

	logger := slog.Default()

	handlerCalled := make(chan struct{}, 1)

	handler := func(ctx context.Context, msg *message.Message, attempt uint32) (queue.Outcome, error) {
		handlerCalled <- struct{}{}
		return queue.Completed, nil
	}

	cfg := &queue.WorkerConfig{
		Concurrency:  1,
		Queue:        10,
		BatchSize:    1,
		PullInterval: 20 * time.Millisecond,
		LockTimeout:  200 * time.Millisecond,
	}

	worker := queue.NewWorker(puller, handler, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		t.Fatal(err)
	}

	msg := message.NewMessage()
	if err := pusher.Push(ctx, msg, 0); err != nil {
		t.Fatal(err)
	}

	select {
	case <-handlerCalled:
	case <-time.After(time.Second):
		t.Fatal("handler not called")
	}

	time.Sleep(100 * time.Millisecond)

	j, err := observer.Get(ctx, msg.Id)
	if err != nil {
		t.Fatal(err)
	}
	if j.Status != job.Done {
		t.Fatalf("expected Done, got %v", j.Status)
	}

	if err := worker.Stop(time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestWorkerRetry(t *testing.T) {
	db := newTestDB(t)

	pusher := gsql.NewPusher(db)
	puller := gsql.NewPuller(db)
	observer := gsql.NewObserver(db)

	logger := slog.Default()

	var calls atomic.Int32

	handler := func(ctx context.Context, msg *message.Message, attempt uint32) (queue.Outcome, error) {
		if calls.Add(1) < 2 {
			return queue.Retry, errors.New("fail once")
		}
		return queue.Completed, nil
	}

	cfg := &queue.WorkerConfig{
		Concurrency:  1,
		Queue:        10,
		BatchSize:    1,
		PullInterval: 20 * time.Millisecond,
		LockTimeout:  200 * time.Millisecond,
		Backoff: queue.BackoffConfig{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     100 * time.Millisecond,
			Multiplier:      1,
		},
	}

	worker := queue.NewWorker(puller, handler, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = worker.Start(ctx)

	msg := message.NewMessage()
	_ = pusher.Push(ctx, msg, 0)

	time.Sleep(300 * time.Millisecond)

	j, _ := observer.Get(ctx, msg.Id)
	if j.Status != job.Done {
		t.Fatalf("expected Done after retry, got %v", j.Status)
	}

	_ = worker.Stop(time.Second)
}

func TestWorkerKillShortcut(t *testing.T) {
	db := newTestDB(t)

	pusher := gsql.NewPusher(db)
	puller := gsql.NewPuller(db)
	observer := gsql.NewObserver(db)

	logger := slog.Default()

	handler := func(ctx context.Context, msg *message.Message, attempt uint32) (queue.Outcome, error) {
		return queue.Kill, errors.New("malformed transaction")
	}

	cfg := &queue.WorkerConfig{
		Concurrency:  1,
		Queue:        10,
		BatchSize:    1,
		PullInterval: 20 * time.Millisecond,
		LockTimeout:  200 * time.Millisecond,
	}

	worker := queue.NewWorker(puller, handler, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = worker.Start(ctx)

	msg := message.NewMessage()
	_ = pusher.Push(ctx, msg, 0)

	time.Sleep(200 * time.Millisecond)

	j, _ := observer.Get(ctx, msg.Id)
	if j.Status != job.Dead {
		t.Fatalf("expected Dead, got %v", j.Status)
	}

	_ = worker.Stop(time.Second)
}
