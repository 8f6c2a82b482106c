package repository

import (
	"context"

	"rentflow-backend/internal/domains/notification/model"
)

type NotificationRepository interface {
	// Create inserts n. A repeated idempotency key is ignored and reports created=false.
	Create(ctx context.Context, n *model.Notification) (created bool, err error)

	List(ctx context.Context, req model.ListRequest) ([]model.Notification, error)

	// MarkAsRead only touches notifications owned by userID
	MarkAsRead(ctx context.Context, id, userID int64) error
}
