package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	agreementRepo "rentflow-backend/internal/domains/agreement/repository"
	"rentflow-backend/internal/domains/payment/gateway"
	"rentflow-backend/internal/domains/payment/gateway/esewa"
	"rentflow-backend/internal/domains/payment/model"
	repo "rentflow-backend/internal/domains/payment/repository"
	"rentflow-backend/internal/shared"
	"rentflow-backend/internal/shared/utils"
	"rentflow-backend/pkg/cache"
	"rentflow-backend/pkg/logger"
)

// =====================================================
// PAYMENT SERVICE IMPLEMENTATION
// =====================================================
type paymentService struct {
	paymentRepo   repo.PaymentRepository
	agreementRepo agreementRepo.AgreementRepository
	txManager     repo.TransactionManager

	// Gateway integration
	esewa gateway.EsewaGateway

	locker cache.Locker
	queue  TaskEnqueuer // nil disables payment events

	now func() time.Time
}

func NewPaymentService(
	paymentRepo repo.PaymentRepository,
	agreementRepo agreementRepo.AgreementRepository,
	txManager repo.TransactionManager,
	esewaGateway gateway.EsewaGateway,
	locker cache.Locker,
	queue TaskEnqueuer,
) PaymentService {
	if locker == nil {
		locker = cache.NoopLocker{}
	}
	return &paymentService{
		paymentRepo:   paymentRepo,
		agreementRepo: agreementRepo,
		txManager:     txManager,
		esewa:         esewaGateway,
		locker:        locker,
		queue:         queue,
		now:           time.Now,
	}
}

// =====================================================
// INITIATE PAYMENT
// =====================================================

// InitiateAgreementPayment starts an eSewa checkout for an agreement
//
// Business Logic Flow:
// 1. Validate request
// 2. Take the per-agreement initiation lock (best effort)
// 3. In one transaction:
//   - lock the agreement, it must accept a payment (APPROVED or PENDING_PAYMENT)
//   - refuse if a Completed payment already exists
//   - insert the Pending payment
//   - sign total_amount/transaction_uuid/product_code
//   - move the agreement to PAYMENT_INITIATED
//
// 4. Return the signed form
func (s *paymentService) InitiateAgreementPayment(
	ctx context.Context,
	viewer model.Viewer,
	req model.InitiatePaymentRequest,
) (*model.InitiatePaymentResponse, error) {
	// Step 1: Validate request
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidRequestError(err)
	}

	// Step 2: Initiation lock
	release, err := s.acquireInitiationLock(ctx, req.AgreementID)
	if err != nil {
		return nil, err
	}
	defer release()

	// Step 3: Transaction
	var (
		payment *model.Payment
		form    *esewa.FormFields
	)
	err = s.txManager.WithinTx(ctx, func(tx pgx.Tx) error {
		agreement, err := s.agreementRepo.GetForUpdateWithTx(ctx, tx, req.AgreementID)
		if err != nil {
			if errors.Is(err, agreementModel.ErrAgreementNotFound) {
				return model.NewAgreementNotPayableError(req.AgreementID, err)
			}
			return fmt.Errorf("load agreement: %w", err)
		}

		if !viewer.CanPay(agreement) {
			return model.NewForbiddenError()
		}

		if !agreement.Status.AcceptsPayment() {
			return model.NewAgreementNotPayableError(req.AgreementID, fmt.Errorf("status %s", agreement.Status))
		}

		existing, err := s.paymentRepo.GetCompletedByAgreementWithTx(ctx, tx, agreement.ID)
		switch {
		case err == nil:
			return model.NewAlreadyPaidError(existing)
		case !errors.Is(err, model.ErrNoCompleted):
			return fmt.Errorf("check completed payment: %w", err)
		}

		payment = &model.Payment{
			AgreementID: agreement.ID,
			RenterID:    agreement.RenterID,
			Amount:      req.Amount,
			Status:      model.PaymentStatusPending,
			Gateway:     model.GatewayEsewa,
		}
		if err := s.paymentRepo.CreateWithTx(ctx, tx, payment); err != nil {
			return err
		}

		form, err = s.esewa.Checkout(payment.Amount, payment.GatewayRef())
		if err != nil {
			return fmt.Errorf("sign payment request: %w", err)
		}

		paymentID := payment.ID
		return s.agreementRepo.TransitionWithTx(ctx, tx, agreement.Status, agreementModel.Transition{
			AgreementID: agreement.ID,
			To:          agreementModel.StatusPaymentInitiated,
			Reason:      "payment initiated",
			PaymentID:   &paymentID,
		})
	})
	if err != nil {
		return nil, toPaymentError(err)
	}

	logger.Info("Agreement payment initiated", map[string]interface{}{
		"agreement_id": payment.AgreementID,
		"payment_id":   payment.ID,
		"amount":       payment.Amount.String(),
	})

	// Step 4: Build response
	return &model.InitiatePaymentResponse{
		Payment: esewa.SignedPayload{
			Signature:        form.Signature,
			SignedFieldNames: form.SignedFieldNames,
		},
		PaymentData: model.PaymentData{
			PaymentResponse: model.ToPaymentResponse(payment),
			Form:            form,
		},
		PaymentParams: model.PaymentParams{
			Amt: form.TotalAmount,
			Pid: payment.GatewayRef(),
			Scd: s.esewa.ProductCode(),
		},
	}, nil
}

func (s *paymentService) acquireInitiationLock(ctx context.Context, agreementID int64) (func(), error) {
	key := model.InitiationLockKey(agreementID)

	token, ok, err := s.locker.Acquire(ctx, key, model.InitiationLockSeconds*time.Second)
	if err != nil {
		// the row lock inside the transaction still serialises initiations
		logger.Warn("Initiation lock unavailable, continuing without it", map[string]interface{}{
			"agreement_id": agreementID,
			"error":        err.Error(),
		})
		return func() {}, nil
	}
	if !ok {
		return nil, model.NewInitiationInFlightError(agreementID)
	}

	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
			logger.Warn("Failed to release initiation lock", map[string]interface{}{
				"agreement_id": agreementID,
				"error":        err.Error(),
			})
		}
	}, nil
}

// =====================================================
// COMPLETE PAYMENT (eSewa success redirect)
// =====================================================

// CompletePayment verifies the gateway callback and settles the payment
//
// Business Logic Flow:
// 1. Decode base64 JSON
// 2. Recompute the signature and compare in constant time
// 3. Gateway status must be COMPLETE
// 4. transaction_uuid must be a payment id
// 5. In one transaction: payment Pending -> Completed, agreement -> ACTIVE
// 6. Publish payment.completed
func (s *paymentService) CompletePayment(ctx context.Context, data string) (*model.PaymentResponse, error) {
	// Step 1: Decode
	if strings.TrimSpace(data) == "" {
		return nil, model.NewPaymentDataRequiredError()
	}

	cb, err := esewa.DecodeCallback(data)
	if err != nil {
		return nil, model.NewInvalidPaymentDataError(err)
	}

	// Step 2: Verify signature
	expected, err := s.esewa.ExpectedSignature(*cb)
	if err != nil {
		return nil, model.NewInternalError(err)
	}
	if !esewa.Equal(expected, cb.Signature) {
		logger.Warn("eSewa callback signature mismatch", map[string]interface{}{
			"transaction_uuid": cb.TransactionUUID.String(),
			"transaction_code": cb.TransactionCode,
		})
		return nil, model.NewInvalidSignatureError()
	}

	// Step 3: Gateway status
	if cb.Status != esewa.StatusComplete {
		return nil, model.NewGatewayStatusError(cb.Status)
	}

	// Step 4: Identify payment
	paymentID, err := utils.ParseID(cb.TransactionUUID.String())
	if err != nil {
		return nil, model.NewInvalidPaymentDataError(err)
	}

	amount, err := decimal.NewFromString(cb.TotalAmount.String())
	if err != nil {
		return nil, model.NewInvalidPaymentDataError(fmt.Errorf("total_amount %q: %w", cb.TotalAmount, err))
	}

	// Step 5: Settle
	payment, agreement, err := s.settleCompleted(ctx, paymentID, &amount, cb.TransactionCode, cb.TransactionCode)
	if err != nil {
		return nil, err
	}

	// Step 6: Publish
	s.publish(ctx, model.EventPaymentCompleted, payment, agreement, "")

	return model.ToPaymentResponse(payment), nil
}

// settleCompleted moves a Pending payment to Completed and its agreement to ACTIVE.
// amount is compared with the stored amount when given.
func (s *paymentService) settleCompleted(
	ctx context.Context,
	paymentID int64,
	amount *decimal.Decimal,
	transactionCode, referenceCode string,
) (*model.Payment, *agreementModel.Agreement, error) {
	var (
		payment   *model.Payment
		agreement *agreementModel.Agreement
	)

	err := s.txManager.WithinTx(ctx, func(tx pgx.Tx) error {
		var err error

		payment, err = s.paymentRepo.GetForUpdateWithTx(ctx, tx, paymentID)
		if err != nil {
			if errors.Is(err, model.ErrPaymentNotFound) {
				return model.NewPaymentNotFoundError(paymentID)
			}
			return fmt.Errorf("load payment: %w", err)
		}

		switch {
		case payment.IsCompleted():
			return model.NewAlreadyCompletedError(paymentID)
		case payment.IsFailed():
			return model.NewAlreadyFailedError(paymentID)
		}

		if amount != nil && !amount.Equal(payment.Amount) {
			return model.NewAmountMismatchError(payment.Amount.String(), amount.String())
		}

		agreement, err = s.agreementRepo.GetForUpdateWithTx(ctx, tx, payment.AgreementID)
		if err != nil {
			if errors.Is(err, agreementModel.ErrAgreementNotFound) {
				return model.NewAgreementNotFoundError(payment.AgreementID)
			}
			return fmt.Errorf("load agreement: %w", err)
		}

		existing, err := s.paymentRepo.GetCompletedByAgreementWithTx(ctx, tx, agreement.ID)
		switch {
		case err == nil:
			return model.NewAlreadyPaidError(existing)
		case !errors.Is(err, model.ErrNoCompleted):
			return fmt.Errorf("check completed payment: %w", err)
		}

		if err := s.paymentRepo.MarkCompletedWithTx(ctx, tx, payment.ID, transactionCode, referenceCode); err != nil {
			return err
		}

		if err := s.agreementRepo.TransitionWithTx(ctx, tx, agreement.Status, agreementModel.Transition{
			AgreementID: agreement.ID,
			To:          agreementModel.StatusActive,
			Reason:      "payment completed",
			PaymentID:   &payment.ID,
		}); err != nil {
			return err
		}

		now := s.now()
		payment.Status = model.PaymentStatusCompleted
		payment.TransactionID = &transactionCode
		payment.ReferenceID = &referenceCode
		payment.CompletedAt = &now
		payment.UpdatedAt = now
		agreement.Status = agreementModel.StatusActive
		return nil
	})
	if err != nil {
		return nil, nil, toPaymentError(err)
	}

	logger.Info("Agreement payment completed", map[string]interface{}{
		"payment_id":       payment.ID,
		"agreement_id":     agreement.ID,
		"transaction_code": transactionCode,
	})

	return payment, agreement, nil
}

// =====================================================
// FAIL PAYMENT
// =====================================================

// FailPayment marks a Pending payment Failed and puts the agreement back to PENDING_PAYMENT
func (s *paymentService) FailPayment(ctx context.Context, req model.FailPaymentRequest) (*model.FailPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewInvalidRequestError(err)
	}

	payment, agreement, err := s.settleFailed(ctx, req.PaymentID, model.ReasonExplicitFailure)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, model.EventPaymentFailed, payment, agreement, model.ReasonExplicitFailure)

	return &model.FailPaymentResponse{
		Payment:   model.ToPaymentResponse(payment),
		Agreement: model.ToAgreementResponse(agreement),
	}, nil
}

func (s *paymentService) settleFailed(
	ctx context.Context,
	paymentID int64,
	reason string,
) (*model.Payment, *agreementModel.Agreement, error) {
	var (
		payment   *model.Payment
		agreement *agreementModel.Agreement
	)

	err := s.txManager.WithinTx(ctx, func(tx pgx.Tx) error {
		var err error

		payment, err = s.paymentRepo.GetForUpdateWithTx(ctx, tx, paymentID)
		if err != nil {
			if errors.Is(err, model.ErrPaymentNotFound) {
				return model.NewPaymentNotFoundError(paymentID)
			}
			return fmt.Errorf("load payment: %w", err)
		}

		switch {
		case payment.IsCompleted():
			return model.NewAlreadyCompletedError(paymentID)
		case payment.IsFailed():
			return model.NewAlreadyFailedError(paymentID)
		}

		agreement, err = s.agreementRepo.GetForUpdateWithTx(ctx, tx, payment.AgreementID)
		if err != nil {
			if errors.Is(err, agreementModel.ErrAgreementNotFound) {
				return model.NewAgreementNotFoundError(payment.AgreementID)
			}
			return fmt.Errorf("load agreement: %w", err)
		}

		if err := s.paymentRepo.MarkFailedWithTx(ctx, tx, payment.ID, reason); err != nil {
			return err
		}

		// a newer attempt may already have failed the agreement back
		if agreement.Status != agreementModel.StatusPendingPayment {
			if err := s.agreementRepo.TransitionWithTx(ctx, tx, agreement.Status, agreementModel.Transition{
				AgreementID: agreement.ID,
				To:          agreementModel.StatusPendingPayment,
				Reason:      "payment failed: " + reason,
				PaymentID:   &payment.ID,
			}); err != nil {
				return err
			}
		}

		now := s.now()
		payment.Status = model.PaymentStatusFailed
		payment.FailureReason = &reason
		payment.FailedAt = &now
		payment.UpdatedAt = now
		agreement.Status = agreementModel.StatusPendingPayment
		return nil
	})
	if err != nil {
		return nil, nil, toPaymentError(err)
	}

	logger.Info("Agreement payment failed", map[string]interface{}{
		"payment_id":   payment.ID,
		"agreement_id": agreement.ID,
		"reason":       reason,
	})

	return payment, agreement, nil
}

// =====================================================
// QUERIES
// =====================================================

func (s *paymentService) GetAgreementPaymentStatus(
	ctx context.Context,
	viewer model.Viewer,
	agreementID int64,
) (*model.PaymentStatusResponse, error) {
	agreement, err := s.loadVisibleAgreement(ctx, viewer, agreementID)
	if err != nil {
		return nil, err
	}

	payment, err := s.paymentRepo.GetLatestByAgreement(ctx, agreementID)
	if err != nil {
		if errors.Is(err, model.ErrPaymentNotFound) {
			return nil, model.NewNoPaymentForAgreementError(agreementID)
		}
		return nil, model.NewInternalError(err)
	}

	return &model.PaymentStatusResponse{
		Payment:   model.ToPaymentResponse(payment),
		Agreement: model.ToAgreementResponse(agreement),
	}, nil
}

func (s *paymentService) ListAgreementPayments(
	ctx context.Context,
	viewer model.Viewer,
	agreementID int64,
) ([]*model.PaymentResponse, error) {
	if _, err := s.loadVisibleAgreement(ctx, viewer, agreementID); err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.ListByAgreement(ctx, agreementID)
	if err != nil {
		return nil, model.NewInternalError(err)
	}

	out := make([]*model.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, model.ToPaymentResponse(p))
	}
	return out, nil
}

func (s *paymentService) loadVisibleAgreement(
	ctx context.Context,
	viewer model.Viewer,
	agreementID int64,
) (*agreementModel.Agreement, error) {
	if agreementID <= 0 {
		return nil, model.NewInvalidRequestError(fmt.Errorf("invalid agreement id %d", agreementID))
	}

	agreement, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		if errors.Is(err, agreementModel.ErrAgreementNotFound) {
			return nil, model.NewAgreementNotFoundError(agreementID)
		}
		return nil, model.NewInternalError(err)
	}

	if !viewer.CanAccess(agreement) {
		return nil, model.NewForbiddenError()
	}

	return agreement, nil
}

// =====================================================
// STALE PAYMENT RECONCILIATION
// =====================================================

// ReconcileStalePayments asks eSewa about Pending payments older than timeout.
// COMPLETE settles them, PENDING/AMBIGUOUS leaves them for the next run and
// any other answer fails them. Gateway errors are counted and retried next run.
func (s *paymentService) ReconcileStalePayments(
	ctx context.Context,
	timeout time.Duration,
	limit int,
) (*model.ReconcileResult, error) {
	if limit <= 0 {
		limit = 100
	}

	cutoff := s.now().Add(-timeout)
	payments, err := s.paymentRepo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale payments: %w", err)
	}

	result := &model.ReconcileResult{}
	for _, p := range payments {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		status, err := s.esewa.CheckStatus(ctx, p.GatewayRef(), p.Amount)
		if err != nil {
			result.Errors++
			logger.ErrorWithFields("eSewa status check failed", err, map[string]interface{}{
				"payment_id": p.ID,
			})
			continue
		}

		switch {
		case status.Status == esewa.StatusComplete:
			ref := p.GatewayRef()
			if status.RefID != nil && *status.RefID != "" {
				ref = *status.RefID
			}
			payment, agreement, err := s.settleCompleted(ctx, p.ID, nil, ref, ref)
			if err != nil {
				s.countReconcileError(result, p.ID, err)
				continue
			}
			result.Completed++
			s.publish(ctx, model.EventPaymentCompleted, payment, agreement, "")

		case esewa.IsUnsettled(status.Status):
			result.Unsettled++

		default:
			reason := model.ReasonGatewayReported + status.Status
			payment, agreement, err := s.settleFailed(ctx, p.ID, reason)
			if err != nil {
				s.countReconcileError(result, p.ID, err)
				continue
			}
			result.Failed++
			s.publish(ctx, model.EventPaymentFailed, payment, agreement, reason)
		}
	}

	logger.Info("Stale payment reconciliation finished", map[string]interface{}{
		"checked":   result.Checked,
		"completed": result.Completed,
		"failed":    result.Failed,
		"unsettled": result.Unsettled,
		"errors":    result.Errors,
	})

	return result, nil
}

// countReconcileError ignores payments a callback settled while the sweep was running
func (s *paymentService) countReconcileError(result *model.ReconcileResult, paymentID int64, err error) {
	var pe *model.PaymentError
	if errors.As(err, &pe) && (pe.Code == model.ErrCodeAlreadyCompleted || pe.Code == model.ErrCodeAlreadyFailed) {
		logger.Debug(fmt.Sprintf("payment %d settled concurrently: %s", paymentID, pe.Code))
		return
	}

	result.Errors++
	logger.ErrorWithFields("Failed to settle stale payment", err, map[string]interface{}{
		"payment_id": paymentID,
	})
}

// =====================================================
// EVENTS
// =====================================================

// publish enqueues payment:notify after commit. Failures are logged only:
// the payment state is already durable.
func (s *paymentService) publish(
	ctx context.Context,
	event string,
	payment *model.Payment,
	agreement *agreementModel.Agreement,
	reason string,
) {
	if s.queue == nil {
		return
	}

	payload, err := json.Marshal(model.PaymentNotifyPayload{
		Event:       event,
		PaymentID:   payment.ID,
		AgreementID: agreement.ID,
		RenterID:    agreement.RenterID,
		LandlordID:  agreement.LandlordID,
		Amount:      payment.Amount,
		Reason:      reason,
	})
	if err != nil {
		logger.Error("Failed to marshal payment event", err)
		return
	}

	task := asynq.NewTask(shared.TypePaymentNotify, payload)
	_, err = s.queue.EnqueueContext(
		context.WithoutCancel(ctx),
		task,
		asynq.Queue(shared.QueueHigh),
		asynq.MaxRetry(5),
		asynq.TaskID(fmt.Sprintf("%s:%d", event, payment.ID)),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.ErrorWithFields("Failed to enqueue payment event", err, map[string]interface{}{
			"event":      event,
			"payment_id": payment.ID,
		})
	}
}

// =====================================================
// HELPERS
// =====================================================

// toPaymentError keeps coded errors and classifies the rest
func toPaymentError(err error) error {
	var pe *model.PaymentError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, agreementModel.ErrInvalidTransition) {
		return model.NewInvalidTransitionError(err)
	}
	return model.NewInternalError(err)
}
