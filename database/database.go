// Package database opens the Postgres connection pool used by the
// persistent store.
package database

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Options bounds the pool. Zero values fall back to conservative defaults.
type Options struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Connect opens a bounded Postgres pool and pings it once so
// misconfiguration fails at startup rather than on first query.
func Connect(ctx context.Context, opts Options) (*bun.DB, error) {
	if opts.DSN == "" {
		return nil, goerrors.New("database DSN is required", goerrors.CategoryInternal).
			WithTextCode("CONFIGURATION_ERROR")
	}

	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(opts.DSN)))
	sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	sqldb.SetMaxIdleConns(opts.MaxIdleConns)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to reach database").
			WithTextCode("DATABASE_ERROR")
	}

	return db, nil
}
