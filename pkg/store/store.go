// Package store provides the durable, Postgres-backed state for jobs,
// advisors, and dimensional profiles, replacing the teacher's ent-based
// data layer with direct pgx queries over the same logical schema.
package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver, used only to drive migrations
)

//go:embed migrations
var migrationsFS embed.FS

// Sentinel errors surfaced to callers in pkg/queue and pkg/api.
var (
	ErrNotFound        = errors.New("not found")
	ErrNoJobsAvailable = errors.New("no jobs available")
)

// Store is the concrete durable store. It owns a pgx connection pool; all
// multi-statement operations run inside a single *pgx.Tx so their writes
// are atomic.
type Store struct {
	pool *pgxpool.Pool
}

// Config holds the connection parameters for Open.
type Config struct {
	DSN             string
	MaxConns        int32
	MigrationsTable string // defaults to golang-migrate's own default when empty
}

// Open connects to Postgres, applies pending migrations, and returns a
// ready-to-use Store. Mirrors the teacher's pkg/database/client.go
// NewClient: migrate first (via database/sql + the pgx stdlib driver),
// then hand off to the pool used for the rest of the process's lifetime.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := runMigrations(cfg.DSN, cfg.MigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for health checks.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// runMigrations applies all pending migrations using golang-migrate with
// the embedded SQL files, matching pkg/database/client.go#runMigrations.
func runMigrations(dsn, migrationsTable string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("failed to create postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("failed to close migration source: %w", err)
	}

	return nil
}
