// Package database provides database setup, models, and the data access
// layer (Store) for persisted users and messages.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"chatvault/migrations"

	_ "github.com/jackc/pgx/v5/stdlib" //revive:disable:blank-imports
)

// ErrNoDatabaseURL is returned when NewDB is called without a connection URL.
// There is deliberately no fallback URL at this layer; any default belongs
// to configuration loading.
var ErrNoDatabaseURL = errors.New("database URL is empty")

const (
	// Base pool of 5 connections with an overflow allowance of 10.
	maxIdleConns    = 5
	maxOpenConns    = 15
	connMaxLifetime = time.Hour
)

// NewDB establishes the process-wide connection pool, verifies liveness,
// and applies migrations. The returned *sqlx.DB is the single shared pool:
// construct it once in main and inject it into every consumer.
func NewDB(databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, ErrNoDatabaseURL
	}

	// Connect opens the pool and pings it, so an unreachable store or a
	// failed liveness probe surfaces here rather than on first use.
	db, err := sqlx.Connect("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := ApplyMigrations(db.DB); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Error closing database after migration failure", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	slog.Info("Database connected and migrations applied successfully")
	return db, nil
}

// CloseDB closes the shared connection pool.
func CloseDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("Error closing database connection", "error", err)
	} else {
		slog.Info("Database connection closed successfully.")
	}
}

// Healthy reports whether the store answers a trivial round-trip query.
// It never returns an error; callers use it for startup verification and
// degradation decisions only.
func Healthy(ctx context.Context, db *sqlx.DB) bool {
	if db == nil {
		return false
	}
	if err := db.PingContext(ctx); err != nil {
		slog.Warn("Database health check failed", "error", err)
		return false
	}
	return true
}

// ApplyMigrations runs schema migrations using the embedded SQL files.
// Migrations are create-if-absent and idempotent, never destructive.
func ApplyMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("database connection is nil, cannot apply migrations")
	}

	slog.Info("Applying database migrations...")

	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create embed source driver instance: %w", err)
	}

	dbDriver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create pgx database driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance(
		"iofs",
		sourceDriver,
		"pgx",
		dbDriver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	migrateErr := migrator.Up()
	if migrateErr != nil {
		if errors.Is(migrateErr, migrate.ErrNoChange) {
			slog.Info("No database migrations to apply.")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", migrateErr)
	}

	slog.Info("Database migrations applied successfully.")
	return nil
}
