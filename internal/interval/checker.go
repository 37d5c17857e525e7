package interval

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
)

// Checker answers whether a candidate date range is free on a unit. The
// answer is only authoritative while the caller holds the unit's lock; see
// the booking service for the serialized check-then-claim sequence.
type Checker struct {
	source Source
}

func NewChecker(source Source) *Checker {
	return &Checker{source: source}
}

// IsAvailable reports whether no claiming interval on the unit overlaps
// [checkIn, checkOut). excludeBookingID skips the caller's own interval when
// re-checking a date change; pass 0 otherwise.
func (c *Checker) IsAvailable(ctx context.Context, unitID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, fmt.Errorf("unit %d range [%s, %s): %w",
			unitID, checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), domain.ErrInvalidRange)
	}

	claims, err := c.source.ClaimingIntervals(ctx, unitID)
	if err != nil {
		return false, err
	}
	for _, iv := range claims {
		if iv.BookingID == excludeBookingID {
			continue
		}
		if Overlaps(iv.Start, iv.End, checkIn, checkOut) {
			return false, nil
		}
	}
	return true, nil
}
