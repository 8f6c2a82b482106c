package model

// =====================================================
// PAYMENT GATEWAYS
// =====================================================
const (
	GatewayEsewa = "eSewa"
)

// =====================================================
// PAYMENT STATUS
// =====================================================
const (
	PaymentStatusPending   = "Pending"
	PaymentStatusCompleted = "Completed"
	PaymentStatusFailed    = "Failed"
)

// AmountScale is the number of decimal places payments.amount keeps
const AmountScale = 2

var ValidPaymentStatuses = []string{
	PaymentStatusPending,
	PaymentStatusCompleted,
	PaymentStatusFailed,
}

// =====================================================
// INTERNAL ERROR CODES
// =====================================================
const (
	// Request errors
	ErrCodeInvalidRequest      = "PAY001"
	ErrCodePaymentDataRequired = "PAY002"
	ErrCodeInvalidPaymentData  = "PAY003"

	// Lookup errors
	ErrCodeAgreementNotPayable = "PAY004"
	ErrCodePaymentNotFound     = "PAY005"
	ErrCodeAgreementNotFound   = "PAY006"

	// State errors
	ErrCodeAlreadyPaid        = "PAY007"
	ErrCodeAlreadyCompleted   = "PAY008"
	ErrCodeAlreadyFailed      = "PAY009"
	ErrCodeInvalidTransition  = "PAY010"
	ErrCodeInitiationInFlight = "PAY011"

	// Gateway errors
	ErrCodeInvalidSignature = "PAY012"
	ErrCodeGatewayStatus    = "PAY013"
	ErrCodeAmountMismatch   = "PAY014"

	// System errors
	ErrCodeForbidden     = "PAY021"
	ErrCodeInternalError = "PAY024"
)

// =====================================================
// PAYMENT CONFIGURATION
// =====================================================
const (
	// How long an initiation holds the per-agreement redis lock
	InitiationLockSeconds = 30

	// failure_reason values
	ReasonGatewayReported = "gateway reported "
	ReasonExplicitFailure = "failure callback"
)

// InitiationLockKey is the redis key guarding concurrent initiations
func InitiationLockKey(agreementID int64) string {
	return "payment:init:" + itoa(agreementID)
}

// Statement export
const (
	ErrCodeStatementNotFound = "PAY015"

	StatementContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)
