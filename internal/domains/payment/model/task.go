package model

import "github.com/shopspring/decimal"

// Payment events published to the worker
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
)

// PaymentNotifyPayload is the body of a payment:notify task
type PaymentNotifyPayload struct {
	Event       string          `json:"event"`
	PaymentID   int64           `json:"payment_id"`
	AgreementID int64           `json:"agreement_id"`
	RenterID    int64           `json:"renter_id"`
	LandlordID  int64           `json:"landlord_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
}

// ExpireStalePaymentsPayload is the body of the scheduled sweep
type ExpireStalePaymentsPayload struct {
	TimeoutMinutes int `json:"timeout_minutes"`
	Limit          int `json:"limit"`
}

// ExportStatementPayload is the body of a payment:export_statement task
type ExportStatementPayload struct {
	ExportID    string `json:"export_id"`
	AgreementID int64  `json:"agreement_id"`
	ObjectKey   string `json:"object_key"`
	RequestedBy int64  `json:"requested_by"`
}
