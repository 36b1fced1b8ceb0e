package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN              string
	SQLitePath       string // used when DSN is empty; ":memory:" for a throwaway store
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open creates a pgx pool, wraps it for the ent SQL driver, and returns both.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*entsql.Driver, *pgxpool.Pool, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "road-estimator"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}

	// Wrap pool as *sql.DB for ent
	db := stdlib.OpenDBFromPool(pool)
	drv := entsql.OpenDB(dialect.Postgres, db)

	logger.Info("successfully connected to database")
	return drv, pool, nil
}

// OpenSQLite opens an embedded store. An empty path or ":memory:" gives a
// private in-memory database that lives until the driver is closed.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*entsql.Driver, error) {
	var dsn string
	if path == "" || path == ":memory:" {
		dsn = fmt.Sprintf("file:roadest-%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", time.Now().UnixNano())
	} else {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	logger.Info("opening embedded database", "dialect", dialect.SQLite, "path", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer keeps sqlite free of SQLITE_BUSY under the worker pool
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return entsql.OpenDB(dialect.SQLite, db), nil
}

// Connect opens Postgres when cfg.DSN is set and SQLite otherwise, applies
// the schema, and returns the store with a function that releases it.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, func(), error) {
	if cfg.DSN != "" {
		drv, pool, err := Open(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := Migrate(ctx, drv); err != nil {
			Close(drv, pool, logger)
			return nil, nil, err
		}
		return NewStore(drv, logger), func() { Close(drv, pool, logger) }, nil
	}
	drv, err := OpenSQLite(ctx, cfg.SQLitePath, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := Migrate(ctx, drv); err != nil {
		Close(drv, nil, logger)
		return nil, nil, err
	}
	return NewStore(drv, logger), func() { Close(drv, nil, logger) }, nil
}

// Close closes the database connections gracefully
func Close(drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("closing database connections")
	if drv != nil {
		if err := drv.Close(); err != nil {
			logger.Error("failed to close sql driver", "error", err)
		}
	}
	if pool != nil {
		pool.Close()
	}
	logger.Info("database connections closed")
}

// HealthCheck pings using database/sql to catch DSN issues early.
func HealthCheck(ctx context.Context, drv *entsql.Driver, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := drv.DB().PingContext(ctx); err != nil {
		return err
	}
	logger.Debug("database ping successful")
	return nil
}
