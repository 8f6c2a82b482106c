package shared

// Task types handled by cmd/worker
const (
	TypePaymentNotify          = "payment:notify"
	TypeExpireStalePayments    = "payment:expire_stale"
	TypeExportPaymentStatement = "payment:export_statement"
)

// Queue names, highest priority first
const (
	QueueHigh    = "high"
	QueueDefault = "default"
	QueueLow     = "low"
)

// Context keys set by middleware
const (
	CtxUserID    = "userID"
	CtxRole      = "role"
	CtxRequestID = "request_id"
)
