package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

const uniqueViolation = "23505"

// Config holds the postgres connection settings
type Config struct {
	DSN          string        `mapstructure:"dsn" yaml:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxWait      time.Duration `mapstructure:"max_wait" yaml:"max_wait"`
}

// Open connects to the database and retries the ping until the instance
// responds or cfg.MaxWait elapses
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	const (
		pingTimeout    = 5 * time.Second
		initialBackoff = 500 * time.Millisecond
		maxBackoff     = 5 * time.Second
	)
	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Second
	}

	log := logger.Logger(ctx).WithField("component", "postgres")
	deadline := time.Now().Add(maxWait)
	backoff := initialBackoff
	var lastErr error

	for {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = db.PingContext(pingCtx)
		cancel()

		if lastErr == nil {
			return db, nil
		}
		if ctx.Err() != nil || time.Now().After(deadline) {
			break
		}

		log.WithError(lastErr).WithField("backoff", backoff.String()).Warn("database not ready, retrying")
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	_ = db.Close()
	return nil, fmt.Errorf("failed to ping database: %w", lastErr)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS favourite_associations (
		id BIGSERIAL PRIMARY KEY,
		user_key TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id BIGINT NOT NULL,
		sequence INTEGER NOT NULL,
		UNIQUE (user_key, entity_type, entity_id)
	)`,
	`CREATE INDEX IF NOT EXISTS favourite_associations_entity_idx
		ON favourite_associations (entity_type, entity_id)`,
	`CREATE TABLE IF NOT EXISTS shared_entities (
		entity_type TEXT NOT NULL,
		id BIGINT NOT NULL,
		owner_key TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		public BOOLEAN NOT NULL DEFAULT FALSE,
		favourite_count BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (entity_type, id)
	)`,
	`CREATE TABLE IF NOT EXISTS shared_entity_grants (
		entity_type TEXT NOT NULL,
		entity_id BIGINT NOT NULL,
		user_key TEXT NOT NULL,
		PRIMARY KEY (entity_type, entity_id, user_key),
		FOREIGN KEY (entity_type, entity_id) REFERENCES shared_entities (entity_type, id) ON DELETE CASCADE
	)`,
}

// Migrate creates the tables used by Store and EntityAccessor
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	logger.Logger(ctx).WithField("statements", len(schema)).Info("database schema is up to date")
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn in a transaction that is rolled back when fn fails
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
