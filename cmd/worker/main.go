// Command worker runs the queue consumer that executes the posting
// protocol against the downstream posting service, plus the
// background retention cleanup for terminal jobs.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/romanqed/txgate/internal/config"
	"github.com/romanqed/txgate/internal/metrics"
	"github.com/romanqed/txgate/internal/posting"
	"github.com/romanqed/txgate/internal/protocol"
	"github.com/romanqed/txgate/internal/queue"
	"github.com/romanqed/txgate/internal/queue/job"
	gsql "github.com/romanqed/txgate/internal/queue/sql"
	"github.com/romanqed/txgate/internal/retention"
	sredis "github.com/romanqed/txgate/internal/state/redis"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("cannot load config", "err", err)
		os.Exit(1)
	}

	db, err := openQueueDB(cfg.Queue)
	if err != nil {
		log.Error("cannot open queue storage", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := gsql.InitDB(context.Background(), db); err != nil {
		log.Error("cannot initialize queue schema", "err", err)
		os.Exit(1)
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Store.Addr,
		Password: cfg.Store.Password,
		DB:       cfg.Store.DB,
	})
	defer redisClient.Close()

	store := sredis.New(redisClient, sredis.Options{Prefix: cfg.Store.Prefix})
	puller := gsql.NewPuller(db)
	cleaner := gsql.NewCleaner(db)
	observer := gsql.NewObserver(db)

	postingOpts := []posting.Option{}
	if cfg.Posting.Token != "" {
		postingOpts = append(postingOpts, posting.WithAuth(bearerAuth(cfg.Posting.Token)))
	}
	client := posting.NewHTTPClient(cfg.Posting.BaseURL, cfg.Posting.Timeout, postingOpts...)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(cfg.Metrics.Path, reg)}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "err", err)
		}
	}()

	// protocol.Handler owns MAX_RETRIES and reports queue.Kill once it
	// is exhausted, so the queue's own BackoffConfig only controls the
	// redelivery interval for queue.Retry outcomes.
	handler := protocol.New(store, client, cfg.Queue.BackoffBase, cfg.Queue.MaxRetries, m, log)

	workerCfg := &queue.WorkerConfig{
		Concurrency:  cfg.Queue.Concurrency,
		Queue:        cfg.Queue.Concurrency * 2,
		BatchSize:    cfg.Queue.BatchSize,
		PullInterval: cfg.Queue.PullInterval,
		LockTimeout:  cfg.Queue.LockTimeout,
		Backoff: queue.BackoffConfig{
			InitialInterval:     cfg.Queue.BackoffBase,
			MaxInterval:         10 * cfg.Queue.BackoffBase,
			Multiplier:          2,
			RandomizationFactor: 0.2,
		},
	}
	worker := queue.NewWorker(puller, handler.Handle, workerCfg, log)

	completedWorker := queue.NewCleanWorker(cleaner, &queue.CleanConfig{
		Status:   job.Done,
		Interval: cfg.Cleanup.Interval,
		Before:   true,
		Delta:    cfg.Cleanup.CompletedMaxAge,
	}, log)
	failedWorker := queue.NewCleanWorker(cleaner, &queue.CleanConfig{
		Status:   job.Dead,
		Interval: cfg.Cleanup.Interval,
		Before:   true,
		Delta:    cfg.Cleanup.FailedMaxAge,
	}, log)
	completedCapper := retention.New(observer, cleaner, job.Done, cfg.Cleanup.CompletedMaxCount, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Start(ctx); err != nil {
		log.Error("cannot start worker", "err", err)
		os.Exit(1)
	}
	if err := completedWorker.Start(ctx); err != nil {
		log.Error("cannot start completed-job cleaner", "err", err)
		os.Exit(1)
	}
	if err := failedWorker.Start(ctx); err != nil {
		log.Error("cannot start failed-job cleaner", "err", err)
		os.Exit(1)
	}
	go completedCapper.RunEvery(ctx, cfg.Cleanup.Interval)

	log.Info("worker started")
	<-ctx.Done()
	log.Info("shutting down")

	if err := worker.Stop(cfg.Queue.LockTimeout); err != nil {
		log.Error("worker shutdown failed", "err", err)
	}
	if err := completedWorker.Stop(cfg.Cleanup.Interval); err != nil {
		log.Error("completed-job cleaner shutdown failed", "err", err)
	}
	if err := failedWorker.Stop(cfg.Cleanup.Interval); err != nil {
		log.Error("failed-job cleaner shutdown failed", "err", err)
	}
	if err := metricsSrv.Shutdown(context.Background()); err != nil {
		log.Error("metrics server shutdown failed", "err", err)
	}
}

func metricsMux(path string, reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

func openQueueDB(cfg config.QueueConfig) (*bun.DB, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	default:
		sqldb, err := sql.Open("sqlite", cfg.DSN)
		if err != nil {
			return nil, err
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	}
}

func bearerAuth(token string) func(r *http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}
