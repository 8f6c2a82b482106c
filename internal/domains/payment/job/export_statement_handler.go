package job

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	"rentflow-backend/internal/domains/payment/model"
	"rentflow-backend/internal/shared/utils"
	"rentflow-backend/pkg/logger"
)

// StatementBuilder is satisfied by service.StatementService
type StatementBuilder interface {
	BuildStatement(ctx context.Context, payload model.ExportStatementPayload) (string, error)
}

// ExportStatementHandler renders and uploads a payment statement.
// The task result is the object key.
type ExportStatementHandler struct {
	builder StatementBuilder
}

func NewExportStatementHandler(builder StatementBuilder) *ExportStatementHandler {
	return &ExportStatementHandler{builder: builder}
}

func (h *ExportStatementHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload model.ExportStatementPayload
	if err := utils.UnmarshalTask(t, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	logger.Info("Processing payment statement export", map[string]interface{}{
		"export_id":    payload.ExportID,
		"agreement_id": payload.AgreementID,
	})

	key, err := h.builder.BuildStatement(ctx, payload)
	if err != nil {
		if errors.Is(err, agreementModel.ErrAgreementNotFound) {
			return fmt.Errorf("build statement: %w: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("build statement: %w", err)
	}

	if w := t.ResultWriter(); w != nil {
		if _, err := w.Write([]byte(key)); err != nil {
			logger.Error("Failed to write statement task result", err)
		}
	}

	logger.Info("Payment statement uploaded", map[string]interface{}{
		"export_id": payload.ExportID,
		"key":       key,
	})
	return nil
}
