package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	notificationService "rentflow-backend/internal/domains/notification/service"
	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/shared/utils"
	"rentflow-backend/pkg/logger"
)

// PaymentNotifier is satisfied by notification/service.NotificationService
type PaymentNotifier interface {
	NotifyPaymentEvent(ctx context.Context, evt notificationService.PaymentEvent) (int, error)
}

// NotifyHandler turns payment:notify tasks into in-app notifications
type NotifyHandler struct {
	notifier PaymentNotifier
}

func NewNotifyHandler(notifier PaymentNotifier) *NotifyHandler {
	return &NotifyHandler{notifier: notifier}
}

func (h *NotifyHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.PaymentNotifyPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	if payload.PaymentID <= 0 || payload.Event == "" {
		return fmt.Errorf("incomplete payment event %+v: %w", payload, asynq.SkipRetry)
	}

	created, err := h.notifier.NotifyPaymentEvent(ctx, notificationService.PaymentEvent{
		Event:       payload.Event,
		PaymentID:   payload.PaymentID,
		AgreementID: payload.AgreementID,
		RenterID:    payload.RenterID,
		LandlordID:  payload.LandlordID,
		Amount:      payload.Amount.String(),
		Reason:      payload.Reason,
	})
	if err != nil {
		logger.ErrorWithFields("Failed to write payment notifications", err, map[string]interface{}{
			"event":      payload.Event,
			"payment_id": payload.PaymentID,
		})
		return fmt.Errorf("notify payment event: %w", err)
	}

	logger.Info("Payment event delivered", map[string]interface{}{
		"event":      payload.Event,
		"payment_id": payload.PaymentID,
		"created":    created,
	})
	return nil
}
