package esewa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// =====================================================
// ESEWA CLIENT IMPLEMENTATION
// =====================================================

type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient fails when the HMAC key or product code is missing
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *Client) ProductCode() string {
	return c.config.ProductCode
}

// =====================================================
// CHECKOUT
// =====================================================

// FormFields are posted by the browser to the eSewa v2 form endpoint
type FormFields struct {
	Amount                string `json:"amount"`
	TaxAmount             string `json:"tax_amount"`
	TotalAmount           string `json:"total_amount"`
	TransactionUUID       string `json:"transaction_uuid"`
	ProductCode           string `json:"product_code"`
	ProductServiceCharge  string `json:"product_service_charge"`
	ProductDeliveryCharge string `json:"product_delivery_charge"`
	SuccessURL            string `json:"success_url"`
	FailureURL            string `json:"failure_url"`
	SignedFieldNames      string `json:"signed_field_names"`
	Signature             string `json:"signature"`
	FormURL               string `json:"form_url"`
}

// Checkout signs amount and transactionID and returns the form to post
func (c *Client) Checkout(amount decimal.Decimal, transactionID string) (*FormFields, error) {
	total := FormatAmount(amount)

	signed, err := Sign(total, transactionID, c.config.ProductCode, c.config.SecretKey)
	if err != nil {
		return nil, err
	}

	return &FormFields{
		Amount:                total,
		TaxAmount:             "0",
		TotalAmount:           total,
		TransactionUUID:       transactionID,
		ProductCode:           c.config.ProductCode,
		ProductServiceCharge:  "0",
		ProductDeliveryCharge: "0",
		SuccessURL:            c.config.SuccessURL,
		FailureURL:            c.config.FailureURL,
		SignedFieldNames:      signed.SignedFieldNames,
		Signature:             signed.Signature,
		FormURL:               c.config.formURL(),
	}, nil
}

// =====================================================
// CALLBACK
// =====================================================

// ExpectedSignature recomputes the signature of a decoded callback
func (c *Client) ExpectedSignature(cb Callback) (string, error) {
	return Verify(cb, c.config.ProductCode, c.config.SecretKey)
}

// =====================================================
// STATUS CHECK
// =====================================================

// StatusResult is the body of the transaction status API
type StatusResult struct {
	ProductCode     string   `json:"product_code"`
	TransactionUUID string   `json:"transaction_uuid"`
	TotalAmount     RawValue `json:"total_amount"`
	Status          string   `json:"status"`
	RefID           *string  `json:"ref_id"`
	Code            *int     `json:"code,omitempty"`
	ErrorMessage    *string  `json:"error_message,omitempty"`
}

// CheckStatus asks eSewa for the state of a transaction
func (c *Client) CheckStatus(ctx context.Context, transactionID string, amount decimal.Decimal) (*StatusResult, error) {
	q := url.Values{}
	q.Set("product_code", c.config.ProductCode)
	q.Set("total_amount", FormatAmount(amount))
	q.Set("transaction_uuid", transactionID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.StatusCheckURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call eSewa status API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("eSewa status API returned %d", resp.StatusCode)
	}

	var result StatusResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response (HTTP %d): %w", resp.StatusCode, err)
	}

	// 4xx bodies carry code/error_message and no status
	if result.Status == "" {
		msg := "unknown error"
		if result.ErrorMessage != nil {
			msg = *result.ErrorMessage
		}
		return nil, fmt.Errorf("eSewa status API error (HTTP %d): %s", resp.StatusCode, msg)
	}

	return &result, nil
}
