package service

import (
	"context"
	"encoding/json"
	"fmt"

	"rentflow-backend/internal/domains/notification/model"
	"rentflow-backend/internal/domains/notification/repository"
	"rentflow-backend/pkg/logger"
)

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) NotifyPaymentEvent(ctx context.Context, evt PaymentEvent) (int, error) {
	var (
		kind          string
		renterTitle   string
		renterMsg     string
		landlordTitle string
		landlordMsg   string
	)

	switch evt.Event {
	case "payment.completed":
		kind = model.TypePaymentCompleted
		renterTitle = "Payment successful"
		renterMsg = fmt.Sprintf("Your payment of Rs. %s for agreement #%d was received. Your lease is now active.", evt.Amount, evt.AgreementID)
		landlordTitle = "Rent received"
		landlordMsg = fmt.Sprintf("The renter paid Rs. %s for agreement #%d. The lease is now active.", evt.Amount, evt.AgreementID)
	case "payment.failed":
		kind = model.TypePaymentFailed
		renterTitle = "Payment failed"
		renterMsg = fmt.Sprintf("Your payment of Rs. %s for agreement #%d did not go through. You can try again.", evt.Amount, evt.AgreementID)
		landlordTitle = "Renter payment failed"
		landlordMsg = fmt.Sprintf("A payment of Rs. %s for agreement #%d failed. The agreement is awaiting payment.", evt.Amount, evt.AgreementID)
	default:
		return 0, fmt.Errorf("unknown payment event %q", evt.Event)
	}

	data, err := json.Marshal(map[string]interface{}{
		"payment_id":   evt.PaymentID,
		"agreement_id": evt.AgreementID,
		"amount":       evt.Amount,
		"reason":       evt.Reason,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal notification data: %w", err)
	}

	refType := model.ReferencePayment
	recipients := []struct {
		userID  int64
		role    string
		title   string
		message string
	}{
		{evt.RenterID, "renter", renterTitle, renterMsg},
		{evt.LandlordID, "landlord", landlordTitle, landlordMsg},
	}

	created := 0
	for _, r := range recipients {
		if r.userID == 0 {
			continue
		}

		key := fmt.Sprintf("%s:%d:%s", evt.Event, evt.PaymentID, r.role)
		paymentID := evt.PaymentID
		n := &model.Notification{
			UserID:         r.userID,
			Type:           kind,
			Title:          r.title,
			Message:        r.message,
			Data:           data,
			ReferenceType:  &refType,
			ReferenceID:    &paymentID,
			IdempotencyKey: &key,
		}

		ok, err := s.repo.Create(ctx, n)
		if err != nil {
			return created, fmt.Errorf("notify %s: %w", r.role, err)
		}
		if !ok {
			logger.Debug("notification already exists: " + key)
			continue
		}
		created++
	}

	return created, nil
}

func (s *notificationService) List(ctx context.Context, req model.ListRequest) ([]model.Notification, error) {
	req.Normalize()
	return s.repo.List(ctx, req)
}

func (s *notificationService) MarkAsRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}
