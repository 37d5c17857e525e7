package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/interval"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `id, reference, guest_id, unit_id, check_in, check_out, adults, children, total_cents, status, created_by, created_at, updated_at`

type BookingRepository interface {
	CreatePending(ctx context.Context, booking *domain.Booking) error
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	UpdateDates(ctx context.Context, id int64, checkIn, checkOut time.Time, totalCents int64) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, reference string, from, to domain.BookingStatus) (*domain.Booking, error)
	ClaimingIntervals(ctx context.Context, unitID int64) ([]interval.Interval, error)
	ExpireUnpaidBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

// CreatePending is the serialized check-then-claim critical section: the
// unit row is locked for the duration of the transaction, the overlap check
// runs against claiming statuses under that lock, and the insert claims the
// interval. Concurrent requests for other units are not serialized.
func (r *PGBookingRepository) CreatePending(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var unitID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM units WHERE id=$1 FOR UPDATE`, booking.UnitID).Scan(&unitID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("unit %d: %w", booking.UnitID, domain.ErrNotFound)
		}
		return err
	}

	overlapping, err := r.overlapCount(ctx, tx, booking.UnitID, booking.CheckIn, booking.CheckOut, 0)
	if err != nil {
		return err
	}
	if overlapping > 0 {
		return fmt.Errorf("unit %d over [%s, %s): %w", booking.UnitID,
			booking.CheckIn.Format("2006-01-02"), booking.CheckOut.Format("2006-01-02"), domain.ErrUnitUnavailable)
	}

	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (reference, guest_id, unit_id, check_in, check_out, adults, children, total_cents, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.GuestID, booking.UnitID, booking.CheckIn, booking.CheckOut,
		booking.Adults, booking.Children, booking.TotalCents, booking.Status, booking.CreatedBy).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1`, reference)
	return scanBooking(row, reference)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBooking(row, fmt.Sprintf("id %d", id))
}

// UpdateDates moves a booking's interval under the same unit-row lock used
// by CreatePending, excluding the booking's own current interval from the
// overlap check.
func (r *PGBookingRepository) UpdateDates(ctx context.Context, id int64, checkIn, checkOut time.Time, totalCents int64) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var unitID int64
	if err := tx.QueryRow(ctx, `SELECT unit_id FROM bookings WHERE id=$1`, id).Scan(&unitID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking id %d: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	if _, err := tx.Exec(ctx, `SELECT id FROM units WHERE id=$1 FOR UPDATE`, unitID); err != nil {
		return nil, err
	}

	overlapping, err := r.overlapCount(ctx, tx, unitID, checkIn, checkOut, id)
	if err != nil {
		return nil, err
	}
	if overlapping > 0 {
		return nil, fmt.Errorf("unit %d over [%s, %s): %w", unitID,
			checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), domain.ErrUnitUnavailable)
	}

	row := tx.QueryRow(ctx, `UPDATE bookings SET check_in=$1, check_out=$2, total_cents=$3, updated_at=now() WHERE id=$4
		RETURNING `+bookingColumns, checkIn, checkOut, totalCents, id)
	booking, err := scanBooking(row, fmt.Sprintf("id %d", id))
	if err != nil {
		return nil, err
	}
	return booking, tx.Commit(ctx)
}

// UpdateStatus flips a booking's status only if it still holds the expected
// current status, so concurrent transitions cannot race past the state
// machine's validation.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, reference string, from, to domain.BookingStatus) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE reference=$2 AND status=$3
		RETURNING `+bookingColumns, to, reference, from)
	booking, err := scanBooking(row, reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.InvalidTransitionError{Reference: reference, From: from, To: to}
		}
		return nil, err
	}
	return booking, nil
}

func (r *PGBookingRepository) ClaimingIntervals(ctx context.Context, unitID int64) ([]interval.Interval, error) {
	rows, err := r.db.Query(ctx, `SELECT id, check_in, check_out, status FROM bookings
		WHERE unit_id=$1 AND status = ANY($2) ORDER BY check_in`, unitID, claimingStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []interval.Interval
	for rows.Next() {
		iv := interval.Interval{UnitID: unitID}
		if err := rows.Scan(&iv.BookingID, &iv.Start, &iv.End, &iv.Status); err != nil {
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// ExpireUnpaidBefore cancels PENDING bookings created before the deadline
// that have no completed payment, releasing their intervals for rebooking.
func (r *PGBookingRepository) ExpireUnpaidBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE status=$2 AND created_at <= $3
		AND NOT EXISTS (SELECT 1 FROM payments p WHERE p.booking_id = bookings.id AND p.status = $4)
		RETURNING `+bookingColumns,
		domain.BookingStatusCancelled, domain.BookingStatusPending, deadline, domain.PaymentStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.Booking
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.Reference, &b.GuestID, &b.UnitID, &b.CheckIn, &b.CheckOut, &b.Adults, &b.Children, &b.TotalCents, &b.Status, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		expired = append(expired, b)
	}
	return expired, rows.Err()
}

func (r *PGBookingRepository) overlapCount(ctx context.Context, tx pgx.Tx, unitID int64, checkIn, checkOut time.Time, excludeID int64) (int, error) {
	var count int
	err := tx.QueryRow(ctx, `SELECT count(*) FROM bookings
		WHERE unit_id=$1 AND id <> $2 AND status = ANY($3) AND check_in < $4 AND $5 < check_out`,
		unitID, excludeID, claimingStatuses(), checkOut, checkIn).Scan(&count)
	return count, err
}

func claimingStatuses() []string {
	return []string{
		string(domain.BookingStatusPending),
		string(domain.BookingStatusConfirmed),
		string(domain.BookingStatusCheckedIn),
	}
}

func scanBooking(row pgx.Row, ident string) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.GuestID, &b.UnitID, &b.CheckIn, &b.CheckOut, &b.Adults, &b.Children, &b.TotalCents, &b.Status, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking %s: %w", ident, domain.ErrNotFound)
		}
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
var _ interval.Source = (*PGBookingRepository)(nil)
