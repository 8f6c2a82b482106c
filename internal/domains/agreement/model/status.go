package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a lease agreement.
type Status string

const (
	StatusApproved         Status = "APPROVED"
	StatusPaymentInitiated Status = "PAYMENT_INITIATED"
	StatusActive           Status = "ACTIVE"
	StatusPendingPayment   Status = "PENDING_PAYMENT"
	StatusRejected         Status = "REJECTED"
	StatusExpired          Status = "EXPIRED"
	StatusTerminated       Status = "TERMINATED"
)

var AllStatuses = []Status{
	StatusApproved,
	StatusPaymentInitiated,
	StatusActive,
	StatusPendingPayment,
	StatusRejected,
	StatusExpired,
	StatusTerminated,
}

// transitions lists the allowed next states for every state.
// APPROVED is the hand-off from the booking workflow: the agreement is drafted and awaits its first payment.
// PENDING_PAYMENT means the last payment attempt failed and a new one may be initiated.
var transitions = map[Status][]Status{
	StatusApproved:         {StatusPaymentInitiated, StatusRejected},
	StatusPendingPayment:   {StatusPaymentInitiated},
	StatusPaymentInitiated: {StatusActive, StatusPendingPayment},
	StatusActive:           {StatusExpired, StatusTerminated},
}

// ParseStatus accepts the canonical values plus the legacy spellings
// still found in older rows ("Approved", "Pending", "Rejected", ...).
func ParseStatus(raw string) (Status, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "PENDING" {
		return StatusPendingPayment, nil
	}
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, raw)
}

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsPayment reports whether a new payment may be initiated
func (s Status) AcceptsPayment() bool {
	return s.CanTransitionTo(StatusPaymentInitiated)
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}
