package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange         = errors.New("check-in date must be before check-out date")
	ErrCapacityExceeded     = errors.New("party size exceeds unit capacity")
	ErrUnitUnavailable      = errors.New("unit is not available for the requested dates")
	ErrNoPricingRule        = errors.New("no pricing rule in effect for the requested check-in")
	ErrRefundExceedsPayment = errors.New("refund amount exceeds the original payment")
	ErrUnknownTransaction   = errors.New("no payment matches the transaction reference")
	ErrAuthenticityFailed   = errors.New("callback signature verification failed")
	ErrGatewayUnavailable   = errors.New("payment gateway is unreachable")
	ErrInsufficientCash     = errors.New("received cash is less than the amount due")
	ErrDatesLocked          = errors.New("booking dates can only change while pending or confirmed")
	ErrNotFound             = errors.New("not found")
)

// InvalidTransitionError names both sides of a rejected booking transition.
type InvalidTransitionError struct {
	Reference string
	From      BookingStatus
	To        BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking %s: invalid transition %s -> %s", e.Reference, e.From, e.To)
}

// ReconciliationConflictError is returned when a gateway callback contradicts
// the terminal status already recorded for its payment.
type ReconciliationConflictError struct {
	ExternalRef string
	Status      PaymentStatus
	Outcome     PaymentOutcome
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("payment %s is already %s, conflicting outcome %q rejected", e.ExternalRef, e.Status, e.Outcome)
}
