package esewa

import (
	"errors"
	"time"
)

// =====================================================
// ESEWA CONFIGURATION
// =====================================================

const (
	DefaultFormURL   = "https://rc-epay.esewa.com.np/api/epay/main/v2/form"
	DefaultStatusURL = "https://rc.esewa.com.np"

	statusPath = "/api/epay/transaction/status/"
)

var (
	ErrMissingSecretKey   = errors.New("esewa: secret key is not configured")
	ErrMissingProductCode = errors.New("esewa: product code is not configured")
)

type Config struct {
	ProductCode string // merchant code, "EPAYTEST" in the sandbox
	SecretKey   string // HMAC-SHA256 key
	FormURL     string
	StatusURL   string
	SuccessURL  string
	FailureURL  string
	Timeout     time.Duration
}

func (c Config) Validate() error {
	if c.SecretKey == "" {
		return ErrMissingSecretKey
	}
	if c.ProductCode == "" {
		return ErrMissingProductCode
	}
	return nil
}

// StatusCheckURL returns the transaction status endpoint
func (c Config) StatusCheckURL() string {
	base := c.StatusURL
	if base == "" {
		base = DefaultStatusURL
	}
	return trimSlash(base) + statusPath
}

func (c Config) formURL() string {
	if c.FormURL == "" {
		return DefaultFormURL
	}
	return c.FormURL
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// =====================================================
// ESEWA TRANSACTION STATUSES
// =====================================================

const (
	StatusComplete      = "COMPLETE"
	StatusPending       = "PENDING"
	StatusAmbiguous     = "AMBIGUOUS"
	StatusNotFound      = "NOT_FOUND"
	StatusCanceled      = "CANCELED"
	StatusFullRefund    = "FULL_REFUND"
	StatusPartialRefund = "PARTIAL_REFUND"
)

// IsUnsettled reports whether the gateway has not reached a final answer yet
func IsUnsettled(status string) bool {
	return status == StatusPending || status == StatusAmbiguous
}
