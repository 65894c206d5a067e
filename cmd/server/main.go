// Command server runs the gateway's public HTTP API: accept
// transactions and report their status.
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

	gsql "github.com/romanqed/txgate/internal/queue/sql"

	"github.com/romanqed/txgate/internal/config"
	"github.com/romanqed/txgate/internal/httpapi"
	"github.com/romanqed/txgate/internal/httpapi/handler"
	"github.com/romanqed/txgate/internal/metrics"
	sredis "github.com/romanqed/txgate/internal/state/redis"
	"github.com/romanqed/txgate/internal/submission"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadServer()
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
	pusher := gsql.NewPusher(db)
	observer := gsql.NewObserver(db)
	svc := submission.New(store, pusher)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	h := handler.New(svc, store, observer, m)
	router := httpapi.NewRouter(h, reg)

	srv := &http.Server{
		Addr:         cfg.HTTP.Host + ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting http server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}
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
