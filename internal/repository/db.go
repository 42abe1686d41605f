package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

type Config struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom lifts the database section of the app config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:             c.DSN,
		MaxConns:        c.MaxConns,
		MinConns:        c.MinConns,
		MaxConnLifetime: c.MaxConnLifetime,
		MaxConnIdleTime: c.MaxConnIdleTime,
		DialTimeout:     c.DialTimeout,
	}
}

// DB is an ent SQL driver plus whatever owns the underlying connections.
type DB struct {
	Driver *entsql.Driver
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Dialect is the ent dialect name of the open database.
func (db *DB) Dialect() string { return db.Driver.Dialect() }

// Open connects to Postgres (postgres:// and postgresql:// DSNs) through a pgx
// pool, or to SQLite (sqlite:// or file: DSNs) through modernc.org/sqlite.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch {
	case strings.HasPrefix(cfg.DSN, "postgres://"), strings.HasPrefix(cfg.DSN, "postgresql://"):
		return openPostgres(ctx, cfg, logger)
	case strings.HasPrefix(cfg.DSN, "sqlite://"), strings.HasPrefix(cfg.DSN, "file:"):
		return openSQLite(ctx, cfg, logger)
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unsupported database dsn scheme", common.ErrInvalidInput)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "contract-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	// Wrap pool as *sql.DB for the ent driver
	sqlDB := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{Driver: entsql.OpenDB(dialect.Postgres, sqlDB), pool: pool, logger: logger}, nil
}

func openSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := strings.TrimPrefix(cfg.DSN, "sqlite://")
	if !strings.Contains(dsn, "_pragma=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	logger.Info("connecting to database", "dialect", dialect.SQLite)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one writer; sqlite serialises anyway and this avoids SQLITE_BUSY storms
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	logger.Info("successfully connected to database")
	return &DB{Driver: entsql.OpenDB(dialect.SQLite, sqlDB), logger: logger}, nil
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.logger.Info("closing database connections")
	if err := db.Driver.Close(); err != nil {
		db.logger.Error("failed to close database driver", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if db.pool != nil {
		return db.pool.Ping(ctx)
	}
	return db.Driver.DB().PingContext(ctx)
}

// Migrate creates the extraction job table when it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	ddl := extractJobDDLSQLite
	if db.Dialect() == dialect.Postgres {
		ddl = extractJobDDLPostgres
	}
	for _, stmt := range ddl {
		if _, err := db.Driver.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

var extractJobDDLPostgres = []string{
	`CREATE TABLE IF NOT EXISTS extract_job (
		id            UUID PRIMARY KEY,
		file_name     TEXT NOT NULL,
		format        TEXT NOT NULL,
		archive_key   TEXT,
		archive_url   TEXT,
		started_at    TIMESTAMPTZ NOT NULL,
		finished_at   TIMESTAMPTZ,
		status        TEXT NOT NULL,
		error_code    TEXT,
		error_message TEXT,
		used_images   BOOLEAN NOT NULL DEFAULT FALSE,
		image_count   INTEGER NOT NULL DEFAULT 0,
		model_name    TEXT,
		schedule      JSONB,
		tasks         JSONB,
		raw_text      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS extract_job_started_at_idx ON extract_job (started_at DESC)`,
}

var extractJobDDLSQLite = []string{
	`CREATE TABLE IF NOT EXISTS extract_job (
		id            TEXT PRIMARY KEY,
		file_name     TEXT NOT NULL,
		format        TEXT NOT NULL,
		archive_key   TEXT,
		archive_url   TEXT,
		started_at    DATETIME NOT NULL,
		finished_at   DATETIME,
		status        TEXT NOT NULL,
		error_code    TEXT,
		error_message TEXT,
		used_images   BOOLEAN NOT NULL DEFAULT 0,
		image_count   INTEGER NOT NULL DEFAULT 0,
		model_name    TEXT,
		schedule      TEXT,
		tasks         TEXT,
		raw_text      TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS extract_job_started_at_idx ON extract_job (started_at DESC)`,
}
