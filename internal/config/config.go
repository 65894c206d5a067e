// Package config loads gateway configuration from the environment (and
// an optional .env file for local development) into per-binary config
// structs, backed by github.com/caarlos0/env/v11 and
// github.com/joho/godotenv instead of a hand-rolled parser.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// HTTPConfig configures the public-facing API server.
type HTTPConfig struct {
	Host            string        `env:"TXGATE_HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"TXGATE_HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"TXGATE_HTTP_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"TXGATE_HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout     time.Duration `env:"TXGATE_HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"TXGATE_HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// StoreConfig configures the Redis-backed state store.
type StoreConfig struct {
	Addr     string `env:"TXGATE_REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"TXGATE_REDIS_PASSWORD"`
	DB       int    `env:"TXGATE_REDIS_DB" envDefault:"0"`
	Prefix   string `env:"TXGATE_STATE_PREFIX" envDefault:"transaction:state:"`
}

// QueueConfig configures the durable job queue backing the worker pool.
type QueueConfig struct {
	Driver       string        `env:"TXGATE_QUEUE_DRIVER" envDefault:"sqlite"` // sqlite, postgres
	DSN          string        `env:"TXGATE_QUEUE_DSN" envDefault:"file:txgate.db?cache=shared"`
	Concurrency  int           `env:"TXGATE_WORKER_CONCURRENCY" envDefault:"8"`
	BatchSize    int           `env:"TXGATE_WORKER_BATCH_SIZE" envDefault:"16"`
	PullInterval time.Duration `env:"TXGATE_WORKER_PULL_INTERVAL" envDefault:"1s"`
	LockTimeout  time.Duration `env:"TXGATE_WORKER_LOCK_TIMEOUT" envDefault:"30s"`
	MaxRetries   int           `env:"TXGATE_MAX_RETRIES" envDefault:"5"`
	BackoffBase  time.Duration `env:"TXGATE_BACKOFF_BASE" envDefault:"2s"`
}

// PostingConfig configures the client for the downstream posting service.
type PostingConfig struct {
	BaseURL string        `env:"TXGATE_POSTING_BASE_URL,required"`
	Timeout time.Duration `env:"TXGATE_POSTING_TIMEOUT" envDefault:"5s"`
	Token   string        `env:"TXGATE_POSTING_TOKEN"`
}

// CleanupConfig configures retention of terminal queue jobs.
type CleanupConfig struct {
	Interval          time.Duration `env:"TXGATE_CLEANUP_INTERVAL" envDefault:"5m"`
	CompletedMaxAge   time.Duration `env:"TXGATE_CLEANUP_COMPLETED_MAX_AGE" envDefault:"1h"`
	CompletedMaxCount int           `env:"TXGATE_CLEANUP_COMPLETED_MAX_COUNT" envDefault:"1000"`
	FailedMaxAge      time.Duration `env:"TXGATE_CLEANUP_FAILED_MAX_AGE" envDefault:"24h"`
}

// ServerConfig holds everything the API composition root needs.
type ServerConfig struct {
	HTTP    HTTPConfig
	Store   StoreConfig
	Queue   QueueConfig
	Metrics MetricsConfig
}

// WorkerConfig holds everything the worker composition root needs.
type WorkerConfig struct {
	Store   StoreConfig
	Queue   QueueConfig
	Posting PostingConfig
	Cleanup CleanupConfig
	Metrics MetricsConfig
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Addr string `env:"TXGATE_METRICS_ADDR" envDefault:":9090"`
	Path string `env:"TXGATE_METRICS_PATH" envDefault:"/metrics"`
}

// loadDotenv applies a local .env file if present. A missing file is
// not an error: production deployments rely on real environment
// variables only.
func loadDotenv() {
	_ = godotenv.Load()
}

// LoadServer loads and validates ServerConfig from the environment.
func LoadServer() (*ServerConfig, error) {
	loadDotenv()
	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// LoadWorker loads and validates WorkerConfig from the environment.
func LoadWorker() (*WorkerConfig, error) {
	loadDotenv()
	cfg := &WorkerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
