package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =====================================================
// PAYMENT ENTITY
// =====================================================

// Payment is one attempt to pay an agreement. Its ID doubles as the
// eSewa transaction_uuid.
type Payment struct {
	ID            int64           `json:"id"`
	AgreementID   int64           `json:"agreement_id"`
	RenterID      int64           `json:"renter_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Gateway       string          `json:"gateway"`
	TransactionID *string         `json:"transaction_id,omitempty"` // gateway transaction code
	ReferenceID   *string         `json:"reference_id,omitempty"`   // gateway reference code
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
}

func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

func (p *Payment) IsFailed() bool {
	return p.Status == PaymentStatusFailed
}

// GatewayRef is the transaction_uuid sent to eSewa
func (p *Payment) GatewayRef() string {
	return itoa(p.ID)
}

// IsStale reports whether a pending payment has outlived timeout
func (p *Payment) IsStale(now time.Time, timeout time.Duration) bool {
	return p.IsPending() && now.Sub(p.CreatedAt) > timeout
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
