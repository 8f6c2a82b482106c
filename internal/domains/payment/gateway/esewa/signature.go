package esewa

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =====================================================
// ESEWA SIGNATURE GENERATION & VERIFICATION
// =====================================================

// SignedFieldNames is the field order of a checkout request signature
const SignedFieldNames = "total_amount,transaction_uuid,product_code"

// CallbackSignedFieldNames is the field order of a redirect callback signature
const CallbackSignedFieldNames = "transaction_code,status,total_amount,transaction_uuid,product_code,signed_field_names"

var ErrMalformedCallback = errors.New("esewa: malformed callback data")

// SignedPayload is what the checkout form needs besides the plain fields
type SignedPayload struct {
	Signature        string `json:"signature"`
	SignedFieldNames string `json:"signed_field_names"`
}

// Callback is the decoded `data` query parameter of the success redirect
type Callback struct {
	TransactionCode  string   `json:"transaction_code"`
	Status           string   `json:"status"`
	TotalAmount      RawValue `json:"total_amount"`
	TransactionUUID  RawValue `json:"transaction_uuid"`
	ProductCode      string   `json:"product_code"`
	SignedFieldNames string   `json:"signed_field_names"`
	Signature        string   `json:"signature"`
}

// RawValue keeps a JSON string or number exactly as the gateway sent it.
// The signature covers the textual form ("15000.0" and "15000" sign differently).
type RawValue string

func (v *RawValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = RawValue(n.String())
	return nil
}

func (v RawValue) String() string {
	return string(v)
}

// Sign computes the checkout signature over
// total_amount=<amount>,transaction_uuid=<id>,product_code=<code>.
func Sign(amount, transactionID, productCode, secretKey string) (SignedPayload, error) {
	if secretKey == "" {
		return SignedPayload{}, ErrMissingSecretKey
	}

	message := fmt.Sprintf(
		"total_amount=%s,transaction_uuid=%s,product_code=%s",
		amount, transactionID, productCode,
	)

	return SignedPayload{
		Signature:        compute(message, secretKey),
		SignedFieldNames: SignedFieldNames,
	}, nil
}

// Verify recomputes the signature a genuine callback must carry.
// Comparing it with cb.Signature is left to the caller (see Equal).
func Verify(cb Callback, productCode, secretKey string) (string, error) {
	if secretKey == "" {
		return "", ErrMissingSecretKey
	}

	message := fmt.Sprintf(
		"transaction_code=%s,status=%s,total_amount=%s,transaction_uuid=%s,product_code=%s,signed_field_names=%s",
		cb.TransactionCode,
		cb.Status,
		cb.TotalAmount,
		cb.TransactionUUID,
		productCode,
		cb.SignedFieldNames,
	)

	return compute(message, secretKey), nil
}

// Equal compares two base64 signatures in constant time
func Equal(expected, received string) bool {
	if expected == "" || received == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(received)))
}

// DecodeCallback decodes base64 -> UTF-8 JSON -> Callback
func DecodeCallback(data string) (*Callback, error) {
	// an unescaped '+' in the query string arrives as a space
	data = strings.ReplaceAll(strings.TrimSpace(data), " ", "+")
	if data == "" {
		return nil, ErrMalformedCallback
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		// some browsers hand the param back URL-safe encoded
		raw, err = base64.URLEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
		}
	}

	var cb Callback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	return &cb, nil
}

// EncodeCallback is the inverse of DecodeCallback
func EncodeCallback(cb Callback) (string, error) {
	raw, err := json.Marshal(cb)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// FormatAmount renders an amount the way it is signed and posted to the form
func FormatAmount(amount decimal.Decimal) string {
	return amount.String()
}

func compute(message, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
