//go:build integration

// Package pgtest starts a throwaway Postgres with the schema from migrations/ applied.
package pgtest

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func migrationPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations", "000001_init.up.sql")
}

// NewPool boots postgres:16-alpine and returns a pool on it.
// The container is removed when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("rentflow"),
		postgres.WithUsername("rentflow"),
		postgres.WithPassword("rentflow"),
		postgres.WithInitScripts(migrationPath()),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

// SeedAgreement inserts an agreement row and returns its id
func SeedAgreement(t *testing.T, pool *pgxpool.Pool, landlordID, renterID int64, status string) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO agreements (booking_id, landlord_id, renter_id, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, NOW(), NOW() + INTERVAL '1 year')
		RETURNING id
	`, renterID*10, landlordID, renterID, status).Scan(&id)
	require.NoError(t, err)

	return id
}
