package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/kafka"
	"github.com/Domenick1991/hotelops/internal/repository"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, reference string) (*domain.Booking, error)
	UpdateDates(ctx context.Context, reference string, checkIn, checkOut time.Time) (*domain.Booking, error)
	Transition(ctx context.Context, reference string, target domain.BookingStatus) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, reference string) (*domain.Booking, error)
	ExpireUnpaidBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	AcquireUnitLock(ctx context.Context, unitID int64, ttl time.Duration) (bool, error)
	ReleaseUnitLock(ctx context.Context, unitID int64) error
	InvalidateUnits(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Availability is the checker consulted before any state that claims the
// unit. The repository re-verifies under the unit row lock; this check is
// the fast path.
type Availability interface {
	IsAvailable(ctx context.Context, unitID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error)
}

type Pricer interface {
	Quote(ctx context.Context, unitType string, checkIn, checkOut time.Time) (*domain.PriceQuote, error)
}

// transitions is the booking state graph. CONFIRMED is driven by the
// payment engine (or a manual override through the same path); CANCELLED is
// unreachable once the guest has checked in.
var transitions = map[domain.BookingStatus][]domain.BookingStatus{
	domain.BookingStatusPending:   {domain.BookingStatusConfirmed, domain.BookingStatusCancelled},
	domain.BookingStatusConfirmed: {domain.BookingStatusCheckedIn, domain.BookingStatusCancelled},
	domain.BookingStatusCheckedIn: {domain.BookingStatusCheckedOut},
}

func transitionAllowed(from, to domain.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type BookingService struct {
	bookings           repository.BookingRepository
	units              repository.UnitRepository
	availability       Availability
	pricer             Pricer
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	lockTTL            time.Duration
	holdTTL            time.Duration
}

type CreateBookingInput struct {
	GuestID   int64     `json:"guest_id"`
	UnitID    int64     `json:"unit_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Adults    int       `json:"adults"`
	Children  int       `json:"children"`
	CreatedBy int64     `json:"created_by"`
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	units repository.UnitRepository,
	availability Availability,
	pricer Pricer,
	cache Cache,
	producer Producer,
	bookingTopic string,
	lockTTL, holdTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		units:        units,
		availability: availability,
		pricer:       pricer,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		lockTTL:      lockTTL,
		holdTTL:      holdTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if !input.CheckIn.Before(input.CheckOut) {
		return nil, fmt.Errorf("unit %d range [%s, %s): %w", input.UnitID,
			input.CheckIn.Format("2006-01-02"), input.CheckOut.Format("2006-01-02"), domain.ErrInvalidRange)
	}
	if input.Adults < 1 {
		return nil, errors.New("at least one adult is required")
	}
	if input.Children < 0 {
		return nil, errors.New("children count cannot be negative")
	}

	unit, err := s.units.GetByID(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	if input.Adults+input.Children > unit.Capacity {
		return nil, fmt.Errorf("unit %d holds %d, requested %d: %w",
			unit.ID, unit.Capacity, input.Adults+input.Children, domain.ErrCapacityExceeded)
	}

	// Pricing is pure computation and runs before the unit lock.
	quote, err := s.pricer.Quote(ctx, unit.UnitType, input.CheckIn, input.CheckOut)
	if err != nil {
		return nil, err
	}

	locked, err := s.lockUnit(ctx, input.UnitID)
	if err != nil {
		return nil, err
	}
	if locked {
		defer s.unlockUnit(ctx, input.UnitID)
	}

	available, err := s.availability.IsAvailable(ctx, input.UnitID, input.CheckIn, input.CheckOut, 0)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("unit %d over [%s, %s): %w", input.UnitID,
			input.CheckIn.Format("2006-01-02"), input.CheckOut.Format("2006-01-02"), domain.ErrUnitUnavailable)
	}

	booking := &domain.Booking{
		Reference:  uuid.NewString(),
		GuestID:    input.GuestID,
		UnitID:     input.UnitID,
		CheckIn:    input.CheckIn,
		CheckOut:   input.CheckOut,
		Adults:     input.Adults,
		Children:   input.Children,
		TotalCents: quote.TotalCents,
		CreatedBy:  input.CreatedBy,
	}

	if err := s.bookings.CreatePending(ctx, booking); err != nil {
		return nil, err
	}

	if err := s.publish(ctx, "booking_created", booking); err != nil {
		log.Printf("WARNING: failed to publish booking_created for %s: %v", booking.Reference, err)
	}
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	return s.bookings.GetByReference(ctx, reference)
}

func (s *BookingService) GetBookingByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) UpdateDates(ctx context.Context, reference string, checkIn, checkOut time.Time) (*domain.Booking, error) {
	if !checkIn.Before(checkOut) {
		return nil, fmt.Errorf("booking %s range [%s, %s): %w", reference,
			checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), domain.ErrInvalidRange)
	}

	current, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.BookingStatusPending && current.Status != domain.BookingStatusConfirmed {
		return nil, fmt.Errorf("booking %s is %s: %w", reference, current.Status, domain.ErrDatesLocked)
	}

	unit, err := s.units.GetByID(ctx, current.UnitID)
	if err != nil {
		return nil, err
	}
	quote, err := s.pricer.Quote(ctx, unit.UnitType, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	locked, err := s.lockUnit(ctx, current.UnitID)
	if err != nil {
		return nil, err
	}
	if locked {
		defer s.unlockUnit(ctx, current.UnitID)
	}

	// The booking's own interval is excluded; it is being replaced.
	available, err := s.availability.IsAvailable(ctx, current.UnitID, checkIn, checkOut, current.ID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("unit %d over [%s, %s): %w", current.UnitID,
			checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), domain.ErrUnitUnavailable)
	}

	updated, err := s.bookings.UpdateDates(ctx, current.ID, checkIn, checkOut, quote.TotalCents)
	if err != nil {
		return nil, err
	}

	if err := s.publish(ctx, "booking_updated", updated); err != nil {
		log.Printf("WARNING: failed to publish booking_updated for %s: %v", updated.Reference, err)
	}
	return updated, nil
}

func (s *BookingService) Transition(ctx context.Context, reference string, target domain.BookingStatus) (*domain.Booking, error) {
	current, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(current.Status, target) {
		return nil, &domain.InvalidTransitionError{Reference: reference, From: current.Status, To: target}
	}

	// Cancellation releases the interval; serialize it against concurrent
	// availability checks for the freed slot.
	if target == domain.BookingStatusCancelled {
		locked, err := s.lockUnit(ctx, current.UnitID)
		if err != nil {
			return nil, err
		}
		if locked {
			defer s.unlockUnit(ctx, current.UnitID)
		}
	}

	updated, err := s.bookings.UpdateStatus(ctx, reference, current.Status, target)
	if err != nil {
		return nil, err
	}

	switch target {
	case domain.BookingStatusCheckedIn:
		if err := s.setUnitStatus(ctx, updated.UnitID, domain.UnitStatusOccupied); err != nil {
			log.Printf("WARNING: failed to mark unit %d occupied: %v", updated.UnitID, err)
		}
	case domain.BookingStatusCheckedOut:
		// The interval row is retained for history; its status alone stops
		// it from claiming the unit.
		if err := s.setUnitStatus(ctx, updated.UnitID, domain.UnitStatusAvailable); err != nil {
			log.Printf("WARNING: failed to mark unit %d available: %v", updated.UnitID, err)
		}
	}

	if err := s.publish(ctx, eventType(target), updated); err != nil {
		log.Printf("WARNING: failed to publish %s for %s: %v", eventType(target), updated.Reference, err)
	}
	return updated, nil
}

func (s *BookingService) ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	return s.Transition(ctx, reference, domain.BookingStatusConfirmed)
}

func (s *BookingService) CancelBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	current, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	return s.Transition(ctx, reference, domain.BookingStatusCancelled)
}

// ExpireUnpaidBookings cancels pending bookings older than the hold TTL
// with no completed payment. Run by the worker on a ticker.
func (s *BookingService) ExpireUnpaidBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := time.Now().Add(-s.holdTTL)
	expired, err := s.bookings.ExpireUnpaidBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}
	for _, b := range expired {
		if err := s.publish(ctx, "booking_expired", &b); err != nil {
			log.Printf("WARNING: failed to publish booking_expired for %s: %v", b.Reference, err)
		}
	}
	return expired, nil
}

func (s *BookingService) lockUnit(ctx context.Context, unitID int64) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	ok, err := s.cache.AcquireUnitLock(ctx, unitID, s.lockTTL)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("unit %d is being booked by a concurrent request: %w", unitID, domain.ErrUnitUnavailable)
	}
	return true, nil
}

func (s *BookingService) unlockUnit(ctx context.Context, unitID int64) {
	_ = s.cache.ReleaseUnitLock(ctx, unitID)
}

func (s *BookingService) setUnitStatus(ctx context.Context, unitID int64, status domain.UnitStatus) error {
	if err := s.units.UpdateStatus(ctx, unitID, status); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateUnits(ctx)
	}
	return nil
}

func eventType(target domain.BookingStatus) string {
	switch target {
	case domain.BookingStatusConfirmed:
		return "booking_confirmed"
	case domain.BookingStatusCheckedIn:
		return "booking_checked_in"
	case domain.BookingStatusCheckedOut:
		return "booking_checked_out"
	case domain.BookingStatusCancelled:
		return "booking_cancelled"
	default:
		return "booking_updated"
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) error {
	if s.producer == nil || s.bookingTopic == "" {
		return nil
	}
	event := kafka.BookingEvent{
		Type:       eventType,
		Reference:  booking.Reference,
		UnitID:     booking.UnitID,
		GuestID:    booking.GuestID,
		Status:     string(booking.Status),
		CheckIn:    booking.CheckIn,
		CheckOut:   booking.CheckOut,
		TotalCents: booking.TotalCents,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Reference, event); err != nil {
		return err
	}
	if s.notificationsTopic != "" {
		return s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event)
	}
	return nil
}

var _ BookingUseCase = (*BookingService)(nil)
