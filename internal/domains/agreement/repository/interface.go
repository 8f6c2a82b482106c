package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"rentflow-backend/internal/domains/agreement/model"
)

// =====================================================
// AGREEMENT REPOSITORY INTERFACE
// =====================================================
type AgreementRepository interface {
	// GetByID reads an agreement outside of any transaction
	GetByID(ctx context.Context, id int64) (*model.Agreement, error)

	// GetForUpdateWithTx reads and row-locks an agreement (SELECT ... FOR UPDATE)
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Agreement, error)

	// TransitionWithTx moves the agreement from its current status to t.To and
	// appends a history row. The caller must hold the row lock.
	TransitionWithTx(ctx context.Context, tx pgx.Tx, from model.Status, t model.Transition) error

	// ListHistory returns status changes, oldest first
	ListHistory(ctx context.Context, agreementID int64) ([]model.StatusChange, error)
}
