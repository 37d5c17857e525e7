package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SetExternalRef(ctx context.Context, id int64, externalRef string) error {
	args := m.Called(ctx, id, externalRef)
	return args.Error(0)
}

func (m *MockPaymentRepository) Settle(ctx context.Context, externalRef string, to domain.PaymentStatus) (*domain.Payment, bool, error) {
	args := m.Called(ctx, externalRef, to)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*domain.Payment), args.Bool(1), args.Error(2)
}

func (m *MockPaymentRepository) CreateRefund(ctx context.Context, sourceID int64, refund *domain.Payment) error {
	args := m.Called(ctx, sourceID, refund)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Payment, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CompletedTotal(ctx context.Context, bookingID int64) (int64, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(int64), args.Error(1)
}

type MockBookings struct {
	mock.Mock
}

func (m *MockBookings) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookings) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookings) ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockGateways struct {
	mock.Mock
}

func (m *MockGateways) For(method domain.PaymentMethod) (gateway.Adapter, error) {
	args := m.Called(method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gateway.Adapter), args.Error(1)
}

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Begin(ctx context.Context, req gateway.BeginRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

const testSecret = "test-secret"

func newTestService(payments *MockPaymentRepository, bookings *MockBookings, gateways *MockGateways, producer *MockProducer) *PaymentService {
	service := &PaymentService{
		payments:      payments,
		bookings:      bookings,
		paymentTopic:  "payment_topic",
		webhookSecret: testSecret,
		currency:      "USD",
	}
	// Typed nils must not reach the interface fields; the service treats a
	// nil producer as disabled.
	if gateways != nil {
		service.gateways = gateways
	}
	if producer != nil {
		service.producer = producer
	}
	return service
}

func pendingBooking(totalCents int64) *domain.Booking {
	return &domain.Booking{
		ID:         42,
		Reference:  "ref-1",
		UnitID:     1,
		TotalCents: totalCents,
		Status:     domain.BookingStatusPending,
	}
}

func TestPaymentService_Initiate_CashConfirmsWhenSettled(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}
	mockProducer := &MockProducer{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, mockProducer)

	ctx := context.Background()
	booking := pendingBooking(24000)

	mockBookings.On("GetBooking", ctx, "ref-1").Return(booking, nil).Once()
	mockPaymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Payment)
			p.ID = 7
			assert.Equal(t, domain.PaymentStatusCompleted, p.Status)
		}).Return(nil).Once()
	mockPaymentRepo.On("CompletedTotal", ctx, int64(42)).Return(int64(24000), nil).Once()
	mockBookings.On("ConfirmBooking", ctx, "ref-1").
		Return(&domain.Booking{ID: 42, Reference: "ref-1", Status: domain.BookingStatusConfirmed}, nil).Once()
	mockProducer.On("Publish", ctx, "payment_topic", mock.Anything, mock.Anything).Return(nil).Once()

	payment, err := service.Initiate(ctx, InitiateInput{
		BookingReference: "ref-1",
		AmountCents:      24000,
		Method:           domain.PaymentMethodCash,
		ReceivedCents:    25000,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, int64(24000), payment.AmountCents)
	mockPaymentRepo.AssertExpectations(t)
	mockBookings.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestPaymentService_Initiate_CashInsufficient(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	mockBookings.On("GetBooking", ctx, "ref-1").Return(pendingBooking(24000), nil).Once()

	payment, err := service.Initiate(ctx, InitiateInput{
		BookingReference: "ref-1",
		AmountCents:      24000,
		Method:           domain.PaymentMethodCash,
		ReceivedCents:    20000,
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientCash)
	assert.Nil(t, payment)
	mockPaymentRepo.AssertNotCalled(t, "Create")
}

func TestPaymentService_Initiate_AsyncPendingUntilCallback(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}
	mockGateways := &MockGateways{}
	mockAdapter := &MockAdapter{}
	mockProducer := &MockProducer{}

	service := newTestService(mockPaymentRepo, mockBookings, mockGateways, mockProducer)

	ctx := context.Background()
	mockBookings.On("GetBooking", ctx, "ref-1").Return(pendingBooking(24000), nil).Once()
	mockGateways.On("For", domain.PaymentMethodCard).Return(mockAdapter, nil).Once()
	mockPaymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Payment)
			p.ID = 7
			assert.Equal(t, domain.PaymentStatusPending, p.Status)
		}).Return(nil).Once()
	mockAdapter.On("Begin", ctx, mock.AnythingOfType("gateway.BeginRequest")).Return("gw-123", nil).Once()
	mockPaymentRepo.On("SetExternalRef", ctx, int64(7), "gw-123").Return(nil).Once()
	mockProducer.On("Publish", ctx, "payment_topic", "gw-123", mock.Anything).Return(nil).Once()

	payment, err := service.Initiate(ctx, InitiateInput{
		BookingReference: "ref-1",
		AmountCents:      24000,
		Method:           domain.PaymentMethodCard,
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, "gw-123", payment.ExternalRef)
	mockBookings.AssertNotCalled(t, "ConfirmBooking")
	mockPaymentRepo.AssertExpectations(t)
	mockAdapter.AssertExpectations(t)
}

func TestPaymentService_Initiate_GatewayDownLeavesPending(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}
	mockGateways := &MockGateways{}
	mockAdapter := &MockAdapter{}

	service := newTestService(mockPaymentRepo, mockBookings, mockGateways, nil)

	ctx := context.Background()
	mockBookings.On("GetBooking", ctx, "ref-1").Return(pendingBooking(24000), nil).Once()
	mockGateways.On("For", domain.PaymentMethodCard).Return(mockAdapter, nil).Once()
	mockPaymentRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	mockAdapter.On("Begin", ctx, mock.Anything).
		Return("", domain.ErrGatewayUnavailable).Once()

	payment, err := service.Initiate(ctx, InitiateInput{
		BookingReference: "ref-1",
		AmountCents:      24000,
		Method:           domain.PaymentMethodCard,
	})

	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
	assert.Contains(t, err.Error(), "stays pending")
	assert.Nil(t, payment)
	mockPaymentRepo.AssertNotCalled(t, "SetExternalRef")
}

func TestPaymentService_Initiate_BookingNoLongerAcceptsPayments(t *testing.T) {
	mockBookings := &MockBookings{}

	service := newTestService(&MockPaymentRepository{}, mockBookings, nil, nil)

	ctx := context.Background()
	cancelled := pendingBooking(24000)
	cancelled.Status = domain.BookingStatusCancelled
	mockBookings.On("GetBooking", ctx, "ref-1").Return(cancelled, nil).Once()

	payment, err := service.Initiate(ctx, InitiateInput{
		BookingReference: "ref-1",
		AmountCents:      24000,
		Method:           domain.PaymentMethodCard,
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no longer accepts payments")
	assert.Nil(t, payment)
}

func signedPayload(body string) (string, []byte) {
	raw := []byte(body)
	return gateway.Sign(testSecret, raw), raw
}

func TestPaymentService_Reconcile_SucceededConfirmsBooking(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}
	mockProducer := &MockProducer{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, mockProducer)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-123","outcome":"succeeded"}`)

	pending := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, ExternalRef: "gw-123", Status: domain.PaymentStatusPending}
	settled := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, ExternalRef: "gw-123", Status: domain.PaymentStatusCompleted}

	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(pending, nil).Once()
	mockPaymentRepo.On("Settle", ctx, "gw-123", domain.PaymentStatusCompleted).Return(settled, true, nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).Return(pendingBooking(24000), nil).Once()
	mockPaymentRepo.On("CompletedTotal", ctx, int64(42)).Return(int64(24000), nil).Once()
	mockBookings.On("ConfirmBooking", ctx, "ref-1").
		Return(&domain.Booking{ID: 42, Reference: "ref-1", Status: domain.BookingStatusConfirmed}, nil).Once()
	mockProducer.On("Publish", ctx, "payment_topic", "gw-123", mock.Anything).Return(nil).Once()

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeSucceeded, signature, raw)

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, result.Status)
	mockPaymentRepo.AssertExpectations(t)
	mockBookings.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestPaymentService_Reconcile_DuplicateCallbackIsNoOp(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-123","outcome":"succeeded"}`)

	completed := &domain.Payment{ID: 7, BookingID: 42, ExternalRef: "gw-123", Status: domain.PaymentStatusCompleted}
	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(completed, nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).
		Return(&domain.Booking{ID: 42, Reference: "ref-1", TotalCents: 24000, Status: domain.BookingStatusConfirmed}, nil).Once()

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeSucceeded, signature, raw)

	assert.NoError(t, err)
	assert.Equal(t, completed, result)
	mockPaymentRepo.AssertNotCalled(t, "Settle")
	mockBookings.AssertNotCalled(t, "ConfirmBooking")
}

func TestPaymentService_Reconcile_RetryConfirmsAfterTransientFailure(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-123","outcome":"succeeded"}`)

	pending := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, ExternalRef: "gw-123", Status: domain.PaymentStatusPending}
	settled := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, ExternalRef: "gw-123", Status: domain.PaymentStatusCompleted}

	// The first callback settles the payment but the confirmation step
	// fails transiently after the status is already terminal.
	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(pending, nil).Once()
	mockPaymentRepo.On("Settle", ctx, "gw-123", domain.PaymentStatusCompleted).Return(settled, true, nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).Return(pendingBooking(24000), nil).Once()
	mockPaymentRepo.On("CompletedTotal", ctx, int64(42)).Return(int64(24000), nil).Once()
	mockBookings.On("ConfirmBooking", ctx, "ref-1").Return(nil, errors.New("transition store unavailable")).Once()

	_, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeSucceeded, signature, raw)
	assert.Error(t, err)

	// The gateway retries the identical callback; the terminal no-op path
	// must still drive the booking to confirmed.
	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(settled, nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).Return(pendingBooking(24000), nil).Once()
	mockPaymentRepo.On("CompletedTotal", ctx, int64(42)).Return(int64(24000), nil).Once()
	mockBookings.On("ConfirmBooking", ctx, "ref-1").
		Return(&domain.Booking{ID: 42, Reference: "ref-1", Status: domain.BookingStatusConfirmed}, nil).Once()

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeSucceeded, signature, raw)

	assert.NoError(t, err)
	assert.Equal(t, settled, result)
	mockPaymentRepo.AssertExpectations(t)
	mockBookings.AssertExpectations(t)
}

func TestPaymentService_Reconcile_ConflictingOutcome(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}

	service := newTestService(mockPaymentRepo, &MockBookings{}, nil, nil)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-123","outcome":"failed"}`)

	completed := &domain.Payment{ID: 7, BookingID: 42, ExternalRef: "gw-123", Status: domain.PaymentStatusCompleted}
	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(completed, nil).Once()

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeFailed, signature, raw)

	assert.Nil(t, result)
	var conflict *domain.ReconciliationConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, "gw-123", conflict.ExternalRef)
	assert.Equal(t, domain.PaymentStatusCompleted, conflict.Status)
	assert.Equal(t, domain.PaymentOutcomeFailed, conflict.Outcome)
	mockPaymentRepo.AssertNotCalled(t, "Settle")
}

func TestPaymentService_Reconcile_UnknownTransaction(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}

	service := newTestService(mockPaymentRepo, &MockBookings{}, nil, nil)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-404","outcome":"succeeded"}`)

	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-404").Return(nil, domain.ErrNotFound).Once()

	result, err := service.Reconcile(ctx, "gw-404", domain.PaymentOutcomeSucceeded, signature, raw)

	assert.ErrorIs(t, err, domain.ErrUnknownTransaction)
	assert.Nil(t, result)
}

func TestPaymentService_Reconcile_BadSignature(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}

	service := newTestService(mockPaymentRepo, &MockBookings{}, nil, nil)

	ctx := context.Background()
	raw := []byte(`{"transaction_ref":"gw-123","outcome":"succeeded"}`)

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeSucceeded, "deadbeef", raw)

	assert.ErrorIs(t, err, domain.ErrAuthenticityFailed)
	assert.Nil(t, result)
	mockPaymentRepo.AssertNotCalled(t, "GetByExternalRef")
}

func TestPaymentService_Reconcile_FailedLeavesBookingPending(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}
	mockProducer := &MockProducer{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, mockProducer)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-123","outcome":"failed"}`)

	pending := &domain.Payment{ID: 7, BookingID: 42, ExternalRef: "gw-123", Status: domain.PaymentStatusPending}
	failed := &domain.Payment{ID: 7, BookingID: 42, ExternalRef: "gw-123", Status: domain.PaymentStatusFailed}

	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(pending, nil).Once()
	mockPaymentRepo.On("Settle", ctx, "gw-123", domain.PaymentStatusFailed).Return(failed, true, nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).Return(pendingBooking(24000), nil).Once()
	mockProducer.On("Publish", ctx, "payment_topic", "gw-123", mock.Anything).Return(nil).Once()

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeFailed, signature, raw)

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, result.Status)
	mockBookings.AssertNotCalled(t, "ConfirmBooking")
	mockProducer.AssertExpectations(t)
}

func TestPaymentService_Reconcile_LostRaceResolvesFromStoredStatus(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	signature, raw := signedPayload(`{"transaction_ref":"gw-123","outcome":"succeeded"}`)

	pending := &domain.Payment{ID: 7, BookingID: 42, ExternalRef: "gw-123", Status: domain.PaymentStatusPending}
	completed := &domain.Payment{ID: 7, BookingID: 42, ExternalRef: "gw-123", Status: domain.PaymentStatusCompleted}

	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(pending, nil).Once()
	mockPaymentRepo.On("Settle", ctx, "gw-123", domain.PaymentStatusCompleted).Return(nil, false, nil).Once()
	mockPaymentRepo.On("GetByExternalRef", ctx, "gw-123").Return(completed, nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).
		Return(&domain.Booking{ID: 42, Reference: "ref-1", TotalCents: 24000, Status: domain.BookingStatusConfirmed}, nil).Once()

	result, err := service.Reconcile(ctx, "gw-123", domain.PaymentOutcomeSucceeded, signature, raw)

	assert.NoError(t, err)
	assert.Equal(t, completed, result)
	mockBookings.AssertNotCalled(t, "ConfirmBooking")
}

func TestPaymentService_Refund_Partial(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	source := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, Method: domain.PaymentMethodCard, Status: domain.PaymentStatusCompleted}

	mockPaymentRepo.On("GetByID", ctx, int64(7)).Return(source, nil).Once()
	mockPaymentRepo.On("CreateRefund", ctx, int64(7), mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			refund := args.Get(2).(*domain.Payment)
			assert.Equal(t, int64(-10000), refund.AmountCents)
			assert.Equal(t, int64(7), refund.RefundOf)
			assert.Equal(t, domain.PaymentStatusCompleted, refund.Status)
			assert.Equal(t, "guest request", refund.Metadata["reason"])
		}).Return(nil).Once()
	mockBookings.On("GetBookingByID", ctx, int64(42)).Return(pendingBooking(24000), nil).Once()

	refund, err := service.Refund(ctx, 7, 10000, "guest request")

	assert.NoError(t, err)
	assert.Equal(t, int64(-10000), refund.AmountCents)
	mockPaymentRepo.AssertExpectations(t)
}

func TestPaymentService_Refund_SingleExceedsPayment(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	service := newTestService(mockPaymentRepo, &MockBookings{}, nil, nil)

	ctx := context.Background()
	source := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, Status: domain.PaymentStatusCompleted}
	mockPaymentRepo.On("GetByID", ctx, int64(7)).Return(source, nil).Once()

	refund, err := service.Refund(ctx, 7, 30000, "test")

	assert.ErrorIs(t, err, domain.ErrRefundExceedsPayment)
	assert.Nil(t, refund)
	mockPaymentRepo.AssertNotCalled(t, "CreateRefund")
}

func TestPaymentService_Refund_CumulativeCapRejected(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}
	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	source := &domain.Payment{ID: 7, BookingID: 42, AmountCents: 24000, Status: domain.PaymentStatusCompleted}
	mockPaymentRepo.On("GetByID", ctx, int64(7)).Return(source, nil).Once()

	// The repository holds the row lock while it sums prior refunds, so a
	// request that raced past the service-level read still fails here.
	mockPaymentRepo.On("CreateRefund", ctx, int64(7), mock.Anything).
		Return(domain.ErrRefundExceedsPayment).Once()

	refund, err := service.Refund(ctx, 7, 10000, "test")

	assert.ErrorIs(t, err, domain.ErrRefundExceedsPayment)
	assert.Nil(t, refund)
	mockBookings.AssertNotCalled(t, "GetBookingByID")
}

func TestPaymentService_Refund_SourceNotCompleted(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}

	service := newTestService(mockPaymentRepo, &MockBookings{}, nil, nil)

	ctx := context.Background()
	mockPaymentRepo.On("GetByID", ctx, int64(7)).
		Return(&domain.Payment{ID: 7, Status: domain.PaymentStatusPending}, nil).Once()

	refund, err := service.Refund(ctx, 7, 10000, "test")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "only completed payments can be refunded")
	assert.Nil(t, refund)
	mockPaymentRepo.AssertNotCalled(t, "CreateRefund")
}

func TestPaymentService_PaidState(t *testing.T) {
	mockPaymentRepo := &MockPaymentRepository{}
	mockBookings := &MockBookings{}

	service := newTestService(mockPaymentRepo, mockBookings, nil, nil)

	ctx := context.Background()
	mockBookings.On("GetBooking", ctx, "ref-1").Return(pendingBooking(24000), nil).Once()
	mockPaymentRepo.On("CompletedTotal", ctx, int64(42)).Return(int64(14000), nil).Once()

	state, err := service.PaidState(ctx, "ref-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(24000), state.TotalCents)
	assert.Equal(t, int64(14000), state.PaidCents)
	assert.Equal(t, int64(10000), state.BalanceCents)
	assert.False(t, state.Settled)
}

func TestPaymentService_PaidState_BookingNotFound(t *testing.T) {
	mockBookings := &MockBookings{}

	service := newTestService(&MockPaymentRepository{}, mockBookings, nil, nil)

	ctx := context.Background()
	mockBookings.On("GetBooking", ctx, "missing").Return(nil, domain.ErrNotFound).Once()

	state, err := service.PaidState(ctx, "missing")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Nil(t, state)
}
