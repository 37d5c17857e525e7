package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/gateway"
	"github.com/Domenick1991/hotelops/internal/kafka"
	"github.com/Domenick1991/hotelops/internal/repository"
	"github.com/google/uuid"
)

type PaymentUseCase interface {
	Initiate(ctx context.Context, input InitiateInput) (*domain.Payment, error)
	Reconcile(ctx context.Context, externalRef string, outcome domain.PaymentOutcome, signature string, rawPayload []byte) (*domain.Payment, error)
	Refund(ctx context.Context, paymentID int64, amountCents int64, reason string) (*domain.Payment, error)
	PaidState(ctx context.Context, bookingReference string) (*PaidState, error)
	ListPayments(ctx context.Context, bookingReference string) ([]domain.Payment, error)
}

// Bookings is the slice of the booking state machine the reconciliation
// engine drives. Confirmation goes through the state machine so its
// transition rules stay authoritative.
type Bookings interface {
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
	GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error)
}

type Gateways interface {
	For(method domain.PaymentMethod) (gateway.Adapter, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type InitiateInput struct {
	BookingReference string
	AmountCents      int64
	Method           domain.PaymentMethod
	ReceivedCents    int64 // cash tendered, CASH only
	Metadata         map[string]string
}

// PaidState is derived per request by summing completed rows, never cached.
type PaidState struct {
	BookingReference string `json:"booking_reference"`
	TotalCents       int64  `json:"total_cents"`
	PaidCents        int64  `json:"paid_cents"`
	BalanceCents     int64  `json:"balance_cents"`
	Settled          bool   `json:"settled"`
}

type PaymentService struct {
	payments           repository.PaymentRepository
	bookings           Bookings
	gateways           Gateways
	producer           Producer
	paymentTopic       string
	notificationsTopic string
	webhookSecret      string
	currency           string
}

type PaymentServiceOption func(*PaymentService)

func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

func NewPaymentService(
	payments repository.PaymentRepository,
	bookings Bookings,
	gateways Gateways,
	producer Producer,
	paymentTopic string,
	webhookSecret string,
	currency string,
	opts ...PaymentServiceOption,
) *PaymentService {
	service := &PaymentService{
		payments:      payments,
		bookings:      bookings,
		gateways:      gateways,
		producer:      producer,
		paymentTopic:  paymentTopic,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *PaymentService) Initiate(ctx context.Context, input InitiateInput) (*domain.Payment, error) {
	if input.AmountCents <= 0 {
		return nil, errors.New("payment amount must be positive")
	}

	booking, err := s.bookings.GetBooking(ctx, input.BookingReference)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusPending && booking.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("booking %s is %s: it no longer accepts payments", booking.Reference, booking.Status)
	}

	if input.Method.Synchronous() {
		return s.initiateCash(ctx, booking, input)
	}
	return s.initiateAsync(ctx, booking, input)
}

// initiateCash settles in one step: cash has no gateway and no callback.
func (s *PaymentService) initiateCash(ctx context.Context, booking *domain.Booking, input InitiateInput) (*domain.Payment, error) {
	if input.ReceivedCents < input.AmountCents {
		return nil, fmt.Errorf("received %d of %d: %w", input.ReceivedCents, input.AmountCents, domain.ErrInsufficientCash)
	}

	payment := &domain.Payment{
		BookingID:   booking.ID,
		AmountCents: input.AmountCents,
		Method:      input.Method,
		Status:      domain.PaymentStatusCompleted,
		ExternalRef: uuid.NewString(),
		Metadata:    input.Metadata,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	if err := s.confirmIfPaid(ctx, booking); err != nil {
		log.Printf("WARNING: cash payment %s recorded but booking %s not confirmed: %v", payment.ExternalRef, booking.Reference, err)
	}

	s.publish(ctx, "payment_completed", booking.Reference, payment)
	return payment, nil
}

// initiateAsync records a pending row, then opens the external transaction.
// A gateway transport failure leaves the row pending and is surfaced as
// retryable; an unreachable gateway is not evidence of payment failure.
func (s *PaymentService) initiateAsync(ctx context.Context, booking *domain.Booking, input InitiateInput) (*domain.Payment, error) {
	adapter, err := s.gateways.For(input.Method)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		BookingID:   booking.ID,
		AmountCents: input.AmountCents,
		Method:      input.Method,
		Status:      domain.PaymentStatusPending,
		ExternalRef: uuid.NewString(),
		Metadata:    input.Metadata,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	gatewayRef, err := adapter.Begin(ctx, gateway.BeginRequest{
		Reference:   payment.ExternalRef,
		AmountCents: payment.AmountCents,
		Currency:    s.currency,
		Metadata:    input.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("payment %s stays pending: %w", payment.ExternalRef, err)
	}

	if err := s.payments.SetExternalRef(ctx, payment.ID, gatewayRef); err != nil {
		return nil, err
	}
	payment.ExternalRef = gatewayRef

	s.publish(ctx, "payment_initiated", booking.Reference, payment)
	return payment, nil
}

// Reconcile applies a gateway callback exactly once. Repeat callbacks with
// the outcome already recorded are no-ops; callbacks contradicting a
// terminal status are rejected, the stored status stays authoritative.
func (s *PaymentService) Reconcile(ctx context.Context, externalRef string, outcome domain.PaymentOutcome, signature string, rawPayload []byte) (*domain.Payment, error) {
	if err := gateway.VerifySignature(s.webhookSecret, signature, rawPayload); err != nil {
		log.Printf("ALERT: rejected callback for %s: %v", externalRef, err)
		return nil, err
	}

	target, err := targetStatus(outcome)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.GetByExternalRef(ctx, externalRef)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", externalRef, domain.ErrUnknownTransaction)
		}
		return nil, err
	}
	if payment.Status.Terminal() {
		return s.resolveTerminal(ctx, payment, outcome)
	}

	settled, applied, err := s.payments.Settle(ctx, externalRef, target)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race against a duplicate callback; the stored terminal
		// status decides.
		payment, err = s.payments.GetByExternalRef(ctx, externalRef)
		if err != nil {
			return nil, err
		}
		return s.resolveTerminal(ctx, payment, outcome)
	}

	booking, err := s.bookings.GetBookingByID(ctx, settled.BookingID)
	if err != nil {
		return nil, err
	}
	if target == domain.PaymentStatusCompleted {
		if err := s.confirmIfPaid(ctx, booking); err != nil {
			return nil, err
		}
		s.publish(ctx, "payment_completed", booking.Reference, settled)
	} else {
		// The booking stays pending and may accept a new attempt.
		s.publish(ctx, "payment_failed", booking.Reference, settled)
	}
	return settled, nil
}

func (s *PaymentService) Refund(ctx context.Context, paymentID int64, amountCents int64, reason string) (*domain.Payment, error) {
	if amountCents <= 0 {
		return nil, errors.New("refund amount must be positive")
	}

	source, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if source.Status != domain.PaymentStatusCompleted {
		return nil, fmt.Errorf("payment id %d is %s: only completed payments can be refunded", paymentID, source.Status)
	}
	if amountCents > source.AmountCents {
		return nil, fmt.Errorf("refund %d against payment of %d: %w", amountCents, source.AmountCents, domain.ErrRefundExceedsPayment)
	}

	refund := &domain.Payment{
		BookingID:   source.BookingID,
		AmountCents: -amountCents,
		Method:      source.Method,
		Status:      domain.PaymentStatusCompleted,
		ExternalRef: uuid.NewString(),
		RefundOf:    source.ID,
		Metadata:    map[string]string{"reason": reason},
	}
	// The cumulative cap check and the insert run as one serialized unit on
	// the source payment row; concurrent refunds queue there instead of
	// racing past the cap.
	if err := s.payments.CreateRefund(ctx, source.ID, refund); err != nil {
		return nil, err
	}

	if booking, err := s.bookings.GetBookingByID(ctx, source.BookingID); err == nil {
		s.publish(ctx, "payment_refunded", booking.Reference, refund)
	}
	return refund, nil
}

func (s *PaymentService) PaidState(ctx context.Context, bookingReference string) (*PaidState, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingReference)
	if err != nil {
		return nil, err
	}
	paid, err := s.payments.CompletedTotal(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return &PaidState{
		BookingReference: booking.Reference,
		TotalCents:       booking.TotalCents,
		PaidCents:        paid,
		BalanceCents:     booking.TotalCents - paid,
		Settled:          paid >= booking.TotalCents,
	}, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, bookingReference string) ([]domain.Payment, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingReference)
	if err != nil {
		return nil, err
	}
	return s.payments.ListByBooking(ctx, booking.ID)
}

func (s *PaymentService) confirmIfPaid(ctx context.Context, booking *domain.Booking) error {
	if booking.Status != domain.BookingStatusPending {
		return nil
	}
	paid, err := s.payments.CompletedTotal(ctx, booking.ID)
	if err != nil {
		return err
	}
	if paid < booking.TotalCents {
		return nil
	}
	_, err = s.bookings.ConfirmBooking(ctx, booking.Reference)
	return err
}

func (s *PaymentService) resolveTerminal(ctx context.Context, payment *domain.Payment, outcome domain.PaymentOutcome) (*domain.Payment, error) {
	if sameOutcome(payment.Status, outcome) {
		// The settlement may have landed while the follow-up confirmation
		// did not; the gateway's retry of the same callback is the recovery
		// path, so re-derive the booking's paid state here. confirmIfPaid
		// no-ops unless the booking is still pending.
		if payment.Status == domain.PaymentStatusCompleted {
			booking, err := s.bookings.GetBookingByID(ctx, payment.BookingID)
			if err != nil {
				return nil, err
			}
			if err := s.confirmIfPaid(ctx, booking); err != nil {
				return nil, err
			}
		}
		return payment, nil
	}
	conflict := &domain.ReconciliationConflictError{
		ExternalRef: payment.ExternalRef,
		Status:      payment.Status,
		Outcome:     outcome,
	}
	log.Printf("WARNING: %v", conflict)
	return nil, conflict
}

func sameOutcome(status domain.PaymentStatus, outcome domain.PaymentOutcome) bool {
	switch status {
	case domain.PaymentStatusCompleted, domain.PaymentStatusRefunded:
		return outcome == domain.PaymentOutcomeSucceeded
	case domain.PaymentStatusFailed:
		return outcome == domain.PaymentOutcomeFailed
	}
	return false
}

func targetStatus(outcome domain.PaymentOutcome) (domain.PaymentStatus, error) {
	switch outcome {
	case domain.PaymentOutcomeSucceeded:
		return domain.PaymentStatusCompleted, nil
	case domain.PaymentOutcomeFailed:
		return domain.PaymentStatusFailed, nil
	default:
		return "", fmt.Errorf("unknown gateway outcome %q", outcome)
	}
}

func (s *PaymentService) publish(ctx context.Context, eventType, bookingReference string, payment *domain.Payment) {
	if s.producer == nil || s.paymentTopic == "" {
		return
	}
	event := kafka.PaymentEvent{
		Type:             eventType,
		BookingReference: bookingReference,
		ExternalRef:      payment.ExternalRef,
		Method:           string(payment.Method),
		Status:           string(payment.Status),
		AmountCents:      payment.AmountCents,
	}
	if err := s.producer.Publish(ctx, s.paymentTopic, payment.ExternalRef, event); err != nil {
		log.Printf("WARNING: failed to publish %s for %s: %v", eventType, payment.ExternalRef, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, payment.ExternalRef, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for %s: %v", eventType, payment.ExternalRef, err)
		}
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
