package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentflow-backend/internal/domains/notification/model"
)

// ================================================
// NOTIFICATION REPOSITORY IMPLEMENTATION
// ================================================

type notificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (
			user_id, type, title, message, data,
			reference_type, reference_id, idempotency_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id, created_at
	`

	var data []byte
	if len(n.Data) > 0 {
		data = n.Data
	}

	err := r.db.QueryRow(ctx, query,
		n.UserID, n.Type, n.Title, n.Message, data,
		n.ReferenceType, n.ReferenceID, n.IdempotencyKey,
	).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("create notification: %w", err)
	}

	return true, nil
}

func (r *notificationRepository) List(ctx context.Context, req model.ListRequest) ([]model.Notification, error) {
	req.Normalize()

	query := `
		SELECT id, user_id, type, title, message, data,
			reference_type, reference_id, is_read, read_at, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, req.UserID, req.UnreadOnly, req.Limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0)
	for rows.Next() {
		var (
			n    model.Notification
			data []byte
		)
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data,
			&n.ReferenceType, &n.ReferenceID, &n.IsRead, &n.ReadAt, &n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Data = data
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID int64) error {
	result, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}
