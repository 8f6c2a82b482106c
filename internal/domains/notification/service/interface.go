package service

import (
	"context"

	"rentflow-backend/internal/domains/notification/model"
)

type NotificationService interface {
	// NotifyPaymentEvent writes one notification per party. Safe to call twice for the same event.
	NotifyPaymentEvent(ctx context.Context, evt PaymentEvent) (int, error)

	List(ctx context.Context, req model.ListRequest) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, id, userID int64) error
}

// PaymentEvent is what the payment worker reports
type PaymentEvent struct {
	Event       string // payment.completed | payment.failed
	PaymentID   int64
	AgreementID int64
	RenterID    int64
	LandlordID  int64
	Amount      string
	Reason      string
}
