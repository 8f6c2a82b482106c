package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"rentflow-backend/internal/domains/payment/gateway/esewa"
)

// =====================================================
// GATEWAY INTERFACES
// =====================================================

// EsewaGateway is the eSewa integration used by the payment service
type EsewaGateway interface {
	// ProductCode is the merchant code every signature is bound to
	ProductCode() string

	// Checkout signs the amount and transaction id and returns the form fields
	Checkout(amount decimal.Decimal, transactionID string) (*esewa.FormFields, error)

	// ExpectedSignature recomputes the signature of a redirect callback
	ExpectedSignature(cb esewa.Callback) (string, error)

	// CheckStatus queries the transaction status API
	CheckStatus(ctx context.Context, transactionID string, amount decimal.Decimal) (*esewa.StatusResult, error)
}

var _ EsewaGateway = (*esewa.Client)(nil)
