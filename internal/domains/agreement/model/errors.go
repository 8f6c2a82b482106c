package model

import (
	"errors"
	"fmt"
)

var (
	ErrAgreementNotFound = errors.New("agreement not found")
	ErrUnknownStatus     = errors.New("unknown agreement status")
	ErrInvalidTransition = errors.New("invalid agreement status transition")
)

// TransitionError carries the rejected pair of statuses
type TransitionError struct {
	AgreementID int64
	From        Status
	To          Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("agreement %d: cannot move from %s to %s", e.AgreementID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
