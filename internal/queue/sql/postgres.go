package sql

import (
	"database/sql"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// OpenPostgres opens a PostgreSQL-backed *bun.DB suitable for Pusher,
// Puller, Observer and Cleaner.
//
// dsn is a standard "postgres://" connection string. The caller is
// still responsible for calling InitDB before first use and for
// closing the returned DB during shutdown.
func OpenPostgres(dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, pgdialect.New()), nil
}

// OpenSQLite opens a SQLite-backed *bun.DB, the dialect used for local
// development and for the package's own tests.
//
// path is passed verbatim to the modernc.org/sqlite driver, so DSN
// query parameters such as _pragma=journal_mode(WAL) are supported.
func OpenSQLite(path string) (*bun.DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return bun.NewDB(sqlDB, sqlitedialect.New()), nil
}
