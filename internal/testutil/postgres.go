// Package testutil starts throwaway PostgreSQL instances for integration
// tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	pg "github.com/janisto/device-profile-api/internal/platform/postgres"
)

const (
	postgresImage    = "postgres:18-alpine"
	postgresDatabase = "device_profiles_test"
	postgresUsername = "test"
	postgresPassword = "test"
)

// Database is a migrated PostgreSQL container and a pool connected to it.
type Database struct {
	Pool      *pgxpool.Pool
	Container *postgres.PostgresContainer
}

// StartPostgres runs a PostgreSQL container, applies the schema and
// returns a pool. Call Close when done.
func StartPostgres(ctx context.Context) (*Database, error) {
	container, err := postgres.Run(ctx,
		postgresImage,
		postgres.WithDatabase(postgresDatabase),
		postgres.WithUsername(postgresUsername),
		postgres.WithPassword(postgresPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("getting connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	if err := pg.Migrate(ctx, pool); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	return &Database{Pool: pool, Container: container}, nil
}

// Truncate empties every application table between tests.
func (d *Database) Truncate(ctx context.Context) error {
	_, err := d.Pool.Exec(ctx, "TRUNCATE device_profiles, templates, api_keys")
	return err
}

// Close releases the pool and stops the container.
func (d *Database) Close(ctx context.Context) error {
	d.Pool.Close()
	return d.Container.Terminate(ctx)
}

// SkipIfShort skips integration tests under -short.
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
}
