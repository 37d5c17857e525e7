package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// Terminal reports whether no further gateway outcome may be applied to a
// payment in this status.
func (s PaymentStatus) Terminal() bool {
	return s != PaymentStatusPending
}

type PaymentMethod string

const (
	PaymentMethodCard          PaymentMethod = "CARD"
	PaymentMethodDigitalWallet PaymentMethod = "DIGITAL_WALLET"
	PaymentMethodMobileMoney   PaymentMethod = "MOBILE_MONEY"
	PaymentMethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash          PaymentMethod = "CASH"
)

// Synchronous reports whether the method settles inside the initiating
// request instead of via a gateway callback.
func (m PaymentMethod) Synchronous() bool {
	return m == PaymentMethodCash
}

type PaymentOutcome string

const (
	PaymentOutcomeSucceeded PaymentOutcome = "succeeded"
	PaymentOutcomeFailed    PaymentOutcome = "failed"
)

// Payment is one attempt to collect (or, with a negative amount, return)
// funds for a booking. A booking's paid state is derived by summing its
// COMPLETED rows, never from a flag.
type Payment struct {
	ID          int64
	BookingID   int64
	AmountCents int64
	Method      PaymentMethod
	Status      PaymentStatus
	ExternalRef string
	RefundOf    int64 // source payment id for refund rows, 0 otherwise
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
