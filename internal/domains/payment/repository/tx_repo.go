package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentflow-backend/pkg/database"
)

// postgresTransactionManager implements TransactionManager
type postgresTransactionManager struct {
	pool *pgxpool.Pool
}

func NewPostgresTransactionManager(pool *pgxpool.Pool) TransactionManager {
	return &postgresTransactionManager{pool: pool}
}

// WithinTx uses READ COMMITTED; the services take row locks (FOR UPDATE)
// on every payment and agreement they change.
func (m *postgresTransactionManager) WithinTx(ctx context.Context, fn database.TxFunc) error {
	return database.WithTransactionOptions(ctx, m.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}
