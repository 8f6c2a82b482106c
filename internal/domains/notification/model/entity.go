package model

import (
	"encoding/json"
	"errors"
	"time"
)

// ================================================
// NOTIFICATION ENTITY
// ================================================

// Notification is an in-app message shown to one user
type Notification struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Type           string          `json:"type"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	Data           json.RawMessage `json:"data,omitempty"`
	ReferenceType  *string         `json:"reference_type,omitempty"`
	ReferenceID    *int64          `json:"reference_id,omitempty"`
	IdempotencyKey *string         `json:"-"`
	IsRead         bool            `json:"is_read"`
	ReadAt         *time.Time      `json:"read_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Notification types
const (
	TypePaymentCompleted = "payment_completed"
	TypePaymentFailed    = "payment_failed"
)

// Reference types
const (
	ReferencePayment = "payment"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ListRequest pages a user's notifications, newest first
type ListRequest struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
	Offset     int
}

func (r *ListRequest) Normalize() {
	if r.Limit <= 0 || r.Limit > 100 {
		r.Limit = 20
	}
	if r.Offset < 0 {
		r.Offset = 0
	}
}
