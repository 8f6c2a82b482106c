package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/shared/utils"
	"rentflow-backend/pkg/logger"
)

// StaleReconciler is satisfied by service.PaymentService
type StaleReconciler interface {
	ReconcileStalePayments(ctx context.Context, timeout time.Duration, limit int) (*model.ReconcileResult, error)
}

// ExpireStaleHandler runs the scheduled stale payment sweep
type ExpireStaleHandler struct {
	reconciler     StaleReconciler
	defaultTimeout time.Duration
	defaultLimit   int
}

func NewExpireStaleHandler(reconciler StaleReconciler, defaultTimeout time.Duration, defaultLimit int) *ExpireStaleHandler {
	return &ExpireStaleHandler{
		reconciler:     reconciler,
		defaultTimeout: defaultTimeout,
		defaultLimit:   defaultLimit,
	}
}

func (h *ExpireStaleHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ExpireStalePaymentsPayload
	if len(t.Payload()) > 0 {
		if err := utils.UnmarshalTask(t, &payload); err != nil {
			return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
		}
	}

	timeout := h.defaultTimeout
	if payload.TimeoutMinutes > 0 {
		timeout = time.Duration(payload.TimeoutMinutes) * time.Minute
	}
	limit := h.defaultLimit
	if payload.Limit > 0 {
		limit = payload.Limit
	}

	logger.Info("Processing stale payment sweep", map[string]interface{}{
		"timeout": timeout.String(),
		"limit":   limit,
	})

	result, err := h.reconciler.ReconcileStalePayments(ctx, timeout, limit)
	if err != nil {
		return fmt.Errorf("reconcile stale payments: %w", err)
	}

	// per-payment errors are retried by the next scheduled run
	if result.Errors > 0 {
		logger.Warn("Stale payment sweep finished with errors", map[string]interface{}{
			"errors":  result.Errors,
			"checked": result.Checked,
		})
	}
	return nil
}
