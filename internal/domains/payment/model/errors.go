package model

import (
	"errors"
	"fmt"
)

// =====================================================
// PREDEFINED ERRORS
// =====================================================

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrNoCompleted     = errors.New("no completed payment")
	ErrLockHeld        = errors.New("payment initiation already in progress")
)

// =====================================================
// CUSTOM PAYMENT ERROR
// =====================================================

type PaymentError struct {
	Code    string
	Message string
	Err     error

	// Payment is returned to the client with some conflicts
	Payment *PaymentResponse
}

func (e *PaymentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new payment error
func NewPaymentError(code, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =====================================================
// ERROR CONSTRUCTORS
// =====================================================

func NewInvalidRequestError(err error) *PaymentError {
	return NewPaymentError(ErrCodeInvalidRequest, "Please provide all required fields", err)
}

func NewPaymentDataRequiredError() *PaymentError {
	return NewPaymentError(ErrCodePaymentDataRequired, "Payment data is required", nil)
}

func NewInvalidPaymentDataError(err error) *PaymentError {
	return NewPaymentError(ErrCodeInvalidPaymentData, "Invalid payment data", err)
}

func NewAgreementNotPayableError(agreementID int64, err error) *PaymentError {
	return NewPaymentError(
		ErrCodeAgreementNotPayable,
		"Agreement not found or payment not required",
		fmt.Errorf("agreement %d: %w", agreementID, err),
	)
}

func NewAgreementNotFoundError(agreementID int64) *PaymentError {
	return NewPaymentError(ErrCodeAgreementNotFound, "Agreement not found", fmt.Errorf("agreement %d", agreementID))
}

func NewPaymentNotFoundError(paymentID int64) *PaymentError {
	return NewPaymentError(ErrCodePaymentNotFound, "Payment not found", fmt.Errorf("payment %d: %w", paymentID, ErrPaymentNotFound))
}

func NewNoPaymentForAgreementError(agreementID int64) *PaymentError {
	return NewPaymentError(ErrCodePaymentNotFound, "No payment found for this agreement", fmt.Errorf("agreement %d: %w", agreementID, ErrPaymentNotFound))
}

func NewAlreadyPaidError(existing *Payment) *PaymentError {
	e := NewPaymentError(ErrCodeAlreadyPaid, "Payment already completed for this agreement", nil)
	if existing != nil {
		e.Payment = ToPaymentResponse(existing)
	}
	return e
}

func NewAlreadyCompletedError(paymentID int64) *PaymentError {
	return NewPaymentError(ErrCodeAlreadyCompleted, "Payment already completed", fmt.Errorf("payment %d", paymentID))
}

func NewAlreadyFailedError(paymentID int64) *PaymentError {
	return NewPaymentError(ErrCodeAlreadyFailed, "Payment already marked as failed", fmt.Errorf("payment %d", paymentID))
}

func NewInvalidTransitionError(err error) *PaymentError {
	return NewPaymentError(ErrCodeInvalidTransition, "Agreement is not in a state that allows this operation", err)
}

func NewInitiationInFlightError(agreementID int64) *PaymentError {
	return NewPaymentError(ErrCodeInitiationInFlight, "A payment for this agreement is already being initiated", fmt.Errorf("agreement %d: %w", agreementID, ErrLockHeld))
}

func NewInvalidSignatureError() *PaymentError {
	return NewPaymentError(ErrCodeInvalidSignature, "Invalid info", nil)
}

func NewGatewayStatusError(status string) *PaymentError {
	return NewPaymentError(ErrCodeGatewayStatus, "Payment was not completed by the gateway", fmt.Errorf("gateway status %q", status))
}

func NewAmountMismatchError(expected, received string) *PaymentError {
	return NewPaymentError(ErrCodeAmountMismatch, "Paid amount does not match the payment", fmt.Errorf("expected %s, received %s", expected, received))
}

func NewForbiddenError() *PaymentError {
	return NewPaymentError(ErrCodeForbidden, "You are not a party to this agreement", nil)
}

func NewInternalError(err error) *PaymentError {
	return NewPaymentError(ErrCodeInternalError, "Internal server error", err)
}

func NewStatementNotFoundError(exportID string) *PaymentError {
	return NewPaymentError(ErrCodeStatementNotFound, "Statement not found or not ready yet", fmt.Errorf("export %s", exportID))
}
