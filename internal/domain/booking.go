package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"
	BookingStatusCheckedOut BookingStatus = "CHECKED_OUT"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

// Claiming reports whether a booking in this status occupies its unit and
// blocks other bookings over the same dates.
func (s BookingStatus) Claiming() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCheckedIn:
		return true
	}
	return false
}

// Booking occupies one unit for the half-open date range [CheckIn, CheckOut).
type Booking struct {
	ID         int64
	Reference  string
	GuestID    int64
	UnitID     int64
	CheckIn    time.Time
	CheckOut   time.Time
	Adults     int
	Children   int
	TotalCents int64
	Status     BookingStatus
	CreatedBy  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}
