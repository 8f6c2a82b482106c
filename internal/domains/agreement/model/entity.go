package model

import "time"

// Agreement is a lease between a landlord and a renter for one booking
type Agreement struct {
	ID         int64      `json:"id"`
	BookingID  int64      `json:"booking_id"`
	LandlordID int64      `json:"landlord_id"`
	RenterID   int64      `json:"renter_id"`
	Status     Status     `json:"status"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	SignedAt   *time.Time `json:"signed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsParty reports whether userID is the landlord or the renter
func (a *Agreement) IsParty(userID int64) bool {
	return a.LandlordID == userID || a.RenterID == userID
}

// StatusChange is one row of agreement_status_history
type StatusChange struct {
	ID          int64     `json:"id"`
	AgreementID int64     `json:"agreement_id"`
	FromStatus  Status    `json:"from_status"`
	ToStatus    Status    `json:"to_status"`
	Reason      string    `json:"reason"`
	PaymentID   *int64    `json:"payment_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Transition describes a requested status change
type Transition struct {
	AgreementID int64
	To          Status
	Reason      string
	PaymentID   *int64
}
