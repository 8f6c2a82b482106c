package service

import (
	"context"
	"time"

	"github.com/hibiken/asynq"

	"rentflow-backend/internal/domains/payment/model"
)

// =====================================================
// PAYMENT SERVICE INTERFACE
// =====================================================
type PaymentService interface {
	// ============================================
	// CHECKOUT
	// ============================================

	// InitiateAgreementPayment creates a Pending payment, signs the eSewa
	// request and moves the agreement to PAYMENT_INITIATED
	InitiateAgreementPayment(ctx context.Context, viewer model.Viewer, req model.InitiatePaymentRequest) (*model.InitiatePaymentResponse, error)

	// CompletePayment handles the eSewa success redirect (base64 `data`)
	CompletePayment(ctx context.Context, data string) (*model.PaymentResponse, error)

	// FailPayment handles the failure callback
	FailPayment(ctx context.Context, req model.FailPaymentRequest) (*model.FailPaymentResponse, error)

	// ============================================
	// QUERIES
	// ============================================

	// GetAgreementPaymentStatus returns the latest payment of an agreement with the agreement itself
	GetAgreementPaymentStatus(ctx context.Context, viewer model.Viewer, agreementID int64) (*model.PaymentStatusResponse, error)

	// ListAgreementPayments returns every payment of an agreement, newest first
	ListAgreementPayments(ctx context.Context, viewer model.Viewer, agreementID int64) ([]*model.PaymentResponse, error)

	// ============================================
	// BACKGROUND JOBS
	// ============================================

	// ReconcileStalePayments settles Pending payments older than timeout using the eSewa status API
	ReconcileStalePayments(ctx context.Context, timeout time.Duration, limit int) (*model.ReconcileResult, error)
}

// TaskEnqueuer is satisfied by *asynq.Client
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
