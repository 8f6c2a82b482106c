package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentflow-backend/internal/domains/agreement/model"
)

type pgAgreementRepository struct {
	pool *pgxpool.Pool
}

func NewAgreementRepository(pool *pgxpool.Pool) AgreementRepository {
	return &pgAgreementRepository{pool: pool}
}

const agreementColumns = `
	id, booking_id, landlord_id, renter_id, status,
	start_date, end_date, signed_at, created_at, updated_at
`

func (r *pgAgreementRepository) GetByID(ctx context.Context, id int64) (*model.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1`
	return scanAgreement(r.pool.QueryRow(ctx, query, id))
}

func (r *pgAgreementRepository) GetForUpdateWithTx(ctx context.Context, tx pgx.Tx, id int64) (*model.Agreement, error) {
	query := `SELECT ` + agreementColumns + ` FROM agreements WHERE id = $1 FOR UPDATE`
	return scanAgreement(tx.QueryRow(ctx, query, id))
}

func (r *pgAgreementRepository) TransitionWithTx(
	ctx context.Context,
	tx pgx.Tx,
	from model.Status,
	t model.Transition,
) error {
	if !from.CanTransitionTo(t.To) {
		return &model.TransitionError{AgreementID: t.AgreementID, From: from, To: t.To}
	}

	result, err := tx.Exec(ctx, `
		UPDATE agreements
		SET status = $1,
			updated_at = NOW()
		WHERE id = $2
	`, t.To, t.AgreementID)
	if err != nil {
		return fmt.Errorf("update agreement status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrAgreementNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO agreement_status_history (agreement_id, from_status, to_status, reason, payment_id)
		VALUES ($1, $2, $3, $4, $5)
	`, t.AgreementID, from, t.To, t.Reason, t.PaymentID); err != nil {
		return fmt.Errorf("insert agreement status history: %w", err)
	}

	return nil
}

func (r *pgAgreementRepository) ListHistory(ctx context.Context, agreementID int64) ([]model.StatusChange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, agreement_id, from_status, to_status, reason, payment_id, created_at
		FROM agreement_status_history
		WHERE agreement_id = $1
		ORDER BY created_at ASC, id ASC
	`, agreementID)
	if err != nil {
		return nil, fmt.Errorf("query agreement history: %w", err)
	}
	defer rows.Close()

	var changes []model.StatusChange
	for rows.Next() {
		var (
			c        model.StatusChange
			from, to string
		)
		if err := rows.Scan(&c.ID, &c.AgreementID, &from, &to, &c.Reason, &c.PaymentID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agreement history: %w", err)
		}
		c.FromStatus = model.Status(from)
		c.ToStatus = model.Status(to)
		changes = append(changes, c)
	}

	return changes, rows.Err()
}

func scanAgreement(row pgx.Row) (*model.Agreement, error) {
	var (
		a      model.Agreement
		status string
	)
	err := row.Scan(
		&a.ID,
		&a.BookingID,
		&a.LandlordID,
		&a.RenterID,
		&status,
		&a.StartDate,
		&a.EndDate,
		&a.SignedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAgreementNotFound
		}
		return nil, fmt.Errorf("scan agreement: %w", err)
	}

	a.Status, err = model.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	return &a, nil
}
