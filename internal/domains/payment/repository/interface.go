package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/pkg/database"
)

// =====================================================
// PAYMENT REPOSITORY INTERFACE
// =====================================================
type PaymentRepository interface {
	// ============================================
	// TRANSACTION-AWARE METHODS
	// ============================================

	// CreateWithTx inserts a payment and fills ID, CreatedAt and UpdatedAt
	CreateWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error

	// GetForUpdateWithTx reads and row-locks a payment
	GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error)

	// GetCompletedByAgreementWithTx returns model.ErrNoCompleted when the agreement has no completed payment
	GetCompletedByAgreementWithTx(ctx context.Context, tx pgx.Tx, agreementID int64) (*model.Payment, error)

	// MarkCompletedWithTx sets Completed and stores the gateway codes
	MarkCompletedWithTx(ctx context.Context, tx pgx.Tx, id int64, transactionCode, referenceCode string) error

	// MarkFailedWithTx sets Failed with a reason
	MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id int64, reason string) error

	// ============================================
	// STANDALONE METHODS
	// ============================================

	GetByID(ctx context.Context, id int64) (*model.Payment, error)

	// GetLatestByAgreement returns the newest payment of an agreement
	GetLatestByAgreement(ctx context.Context, agreementID int64) (*model.Payment, error)

	// ListByAgreement returns all payments of an agreement, newest first
	ListByAgreement(ctx context.Context, agreementID int64) ([]*model.Payment, error)

	// ListStalePending returns Pending payments created before olderThan, oldest first
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Payment, error)
}

// =====================================================
// TRANSACTION MANAGER
// =====================================================

// TransactionManager runs fn in one database transaction.
// fn's error rolls the transaction back and is returned unchanged.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn database.TxFunc) error
}
