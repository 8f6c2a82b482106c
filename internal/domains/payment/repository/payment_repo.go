package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/infrastructure/database"
)

// =====================================================
// PAYMENT REPOSITORY IMPLEMENTATION
// =====================================================
type ppRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) PaymentRepository {
	return &ppRepository{pool: pool}
}

const paymentColumns = `
	id, agreement_id, renter_id, amount, status, payment_gateway,
	transaction_id, reference_id, failure_reason,
	created_at, updated_at, completed_at, failed_at
`

// =====================================================
// TRANSACTION-AWARE METHODS
// =====================================================

func (r *ppRepository) CreateWithTx(ctx context.Context, tx pgx.Tx, payment *model.Payment) error {
	query := `
		INSERT INTO payments (agreement_id, renter_id, amount, status, payment_gateway)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		payment.AgreementID,
		payment.RenterID,
		payment.Amount,
		payment.Status,
		payment.Gateway,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *ppRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	return scanPayment(tx.QueryRow(ctx, query, id))
}

func (r *ppRepository) GetCompletedByAgreementWithTx(ctx context.Context, tx pgx.Tx, agreementID int64) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE agreement_id = $1 AND status = $2
		LIMIT 1
	`

	p, err := scanPayment(tx.QueryRow(ctx, query, agreementID, model.PaymentStatusCompleted))
	if errors.Is(err, model.ErrPaymentNotFound) {
		return nil, model.ErrNoCompleted
	}
	return p, err
}

func (r *ppRepository) MarkCompletedWithTx(
	ctx context.Context,
	tx pgx.Tx,
	id int64,
	transactionCode, referenceCode string,
) error {
	query := `
		UPDATE payments
		SET status = $1,
			transaction_id = $2,
			reference_id = $3,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $4
	`

	result, err := tx.Exec(ctx, query, model.PaymentStatusCompleted, transactionCode, referenceCode, id)
	if err != nil {
		// uq_payments_one_completed_per_agreement
		if database.IsUniqueViolation(err) {
			return model.NewAlreadyPaidError(nil)
		}
		return fmt.Errorf("failed to complete payment: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

func (r *ppRepository) MarkFailedWithTx(ctx context.Context, tx pgx.Tx, id int64, reason string) error {
	query := `
		UPDATE payments
		SET status = $1,
			failure_reason = $2,
			failed_at = NOW(),
			updated_at = NOW()
		WHERE id = $3
	`

	result, err := tx.Exec(ctx, query, model.PaymentStatusFailed, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark payment as failed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.ErrPaymentNotFound
	}

	return nil
}

// =====================================================
// STANDALONE METHODS
// =====================================================

func (r *ppRepository) GetByID(ctx context.Context, id int64) (*model.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return scanPayment(r.pool.QueryRow(ctx, query, id))
}

func (r *ppRepository) GetLatestByAgreement(ctx context.Context, agreementID int64) (*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE agreement_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return scanPayment(r.pool.QueryRow(ctx, query, agreementID))
}

func (r *ppRepository) ListByAgreement(ctx context.Context, agreementID int64) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE agreement_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.pool.Query(ctx, query, agreementID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *ppRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, model.PaymentStatusPending, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// =====================================================
// SCANNING
// =====================================================

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var p model.Payment
	err := row.Scan(
		&p.ID,
		&p.AgreementID,
		&p.RenterID,
		&p.Amount,
		&p.Status,
		&p.Gateway,
		&p.TransactionID,
		&p.ReferenceID,
		&p.FailureReason,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.CompletedAt,
		&p.FailedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return &p, nil
}

func collectPayments(rows pgx.Rows) ([]*model.Payment, error) {
	payments := make([]*model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
