package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	agreementModel "rentflow-backend/internal/domains/agreement/model"
	"rentflow-backend/internal/domains/payment/gateway/esewa"
	"rentflow-backend/pkg/jwt"
)

// =====================================================
// CALLER
// =====================================================

// Viewer is the authenticated caller of a payment endpoint
type Viewer struct {
	UserID int64
	Role   string
}

// CanAccess reports whether the viewer may read or pay for the agreement
func (v Viewer) CanAccess(a *agreementModel.Agreement) bool {
	return v.Role == jwt.RoleAdmin || a.IsParty(v.UserID)
}

// CanPay reports whether the viewer may start a payment for the agreement
func (v Viewer) CanPay(a *agreementModel.Agreement) bool {
	return v.Role == jwt.RoleAdmin || a.RenterID == v.UserID
}

// =====================================================
// INITIATE PAYMENT
// =====================================================

type InitiatePaymentRequest struct {
	AgreementID int64           `json:"agreementId"`
	Amount      decimal.Decimal `json:"amount"`
}

func (r InitiatePaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AgreementID,
			validation.Required.Error("agreementId is required"),
			validation.Min(int64(1)).Error("agreementId must be positive"),
		),
		validation.Field(&r.Amount, validation.By(positiveAmount)),
	)
}

// positiveAmount also caps the scale at the NUMERIC(14,2) column's two places,
// so the signed total_amount is exactly what gets stored.
func positiveAmount(value interface{}) error {
	amount, _ := value.(decimal.Decimal)
	if !amount.IsPositive() {
		return errors.New("amount must be greater than 0")
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return errors.New("amount must have at most 2 decimal places")
	}
	return nil
}

// PaymentParams is the legacy (v1) parameter set: amt, pid, scd
type PaymentParams struct {
	Amt string `json:"amt"`
	Pid string `json:"pid"`
	Scd string `json:"scd"`
}

// PaymentData is the created payment together with the form to post
type PaymentData struct {
	*PaymentResponse
	Form *esewa.FormFields `json:"esewaForm"`
}

type InitiatePaymentResponse struct {
	Payment       esewa.SignedPayload `json:"payment"`
	PaymentData   PaymentData         `json:"paymentData"`
	PaymentParams PaymentParams       `json:"paymentParams"`
}

// =====================================================
// FAIL PAYMENT
// =====================================================

type FailPaymentRequest struct {
	PaymentID int64 `json:"paymentId"`
}

func (r FailPaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PaymentID,
			validation.Required.Error("paymentId is required"),
			validation.Min(int64(1)).Error("paymentId must be positive"),
		),
	)
}

type FailPaymentResponse struct {
	Payment   *PaymentResponse   `json:"payment"`
	Agreement *AgreementResponse `json:"agreement"`
}

// =====================================================
// VIEWS
// =====================================================

type PaymentResponse struct {
	ID             int64           `json:"id"`
	AgreementID    int64           `json:"agreementId"`
	RenterID       int64           `json:"renterId"`
	Amount         decimal.Decimal `json:"amount"`
	Status         string          `json:"status"`
	PaymentGateway string          `json:"paymentGateway"`
	TransactionID  *string         `json:"transactionId,omitempty"`
	ReferenceID    *string         `json:"referenceId,omitempty"`
	FailureReason  *string         `json:"failureReason,omitempty"`
	PaymentDate    time.Time       `json:"paymentDate"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	FailedAt       *time.Time      `json:"failedAt,omitempty"`
}

func ToPaymentResponse(p *Payment) *PaymentResponse {
	if p == nil {
		return nil
	}
	return &PaymentResponse{
		ID:             p.ID,
		AgreementID:    p.AgreementID,
		RenterID:       p.RenterID,
		Amount:         p.Amount,
		Status:         p.Status,
		PaymentGateway: p.Gateway,
		TransactionID:  p.TransactionID,
		ReferenceID:    p.ReferenceID,
		FailureReason:  p.FailureReason,
		PaymentDate:    p.CreatedAt,
		CompletedAt:    p.CompletedAt,
		FailedAt:       p.FailedAt,
	}
}

type AgreementResponse struct {
	ID        int64                 `json:"id"`
	BookingID int64                 `json:"bookingId"`
	Status    agreementModel.Status `json:"status"`
	StartDate *time.Time            `json:"startDate,omitempty"`
	EndDate   *time.Time            `json:"endDate,omitempty"`
	SignedAt  *time.Time            `json:"signedAt,omitempty"`
}

func ToAgreementResponse(a *agreementModel.Agreement) *AgreementResponse {
	if a == nil {
		return nil
	}
	return &AgreementResponse{
		ID:        a.ID,
		BookingID: a.BookingID,
		Status:    a.Status,
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
		SignedAt:  a.SignedAt,
	}
}

type PaymentStatusResponse struct {
	Payment   *PaymentResponse   `json:"payment"`
	Agreement *AgreementResponse `json:"agreement"`
}

// =====================================================
// RECONCILIATION
// =====================================================

// ReconcileResult summarises one stale-payment sweep
type ReconcileResult struct {
	Checked   int `json:"checked"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Unsettled int `json:"unsettled"`
	Errors    int `json:"errors"`
}

// =====================================================
// STATEMENT EXPORT
// =====================================================

type StatementRequestResponse struct {
	ExportID  string `json:"exportId"`
	ObjectKey string `json:"objectKey"`
}

type StatementURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
