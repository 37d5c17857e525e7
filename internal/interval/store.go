package interval

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
)

// Interval is one booking's claim on a unit over the half-open date range
// [Start, End).
type Interval struct {
	UnitID    int64
	BookingID int64
	Start     time.Time
	End       time.Time
	Status    domain.BookingStatus
}

// Overlaps reports whether the half-open ranges [a1,a2) and [b1,b2)
// intersect. Touching ranges (checkout day = check-in day) do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// Source yields the intervals currently claiming a unit, ordered by start.
// The pg booking repository implements it in production; MemoryStore backs
// tests and single-instance deployments.
type Source interface {
	ClaimingIntervals(ctx context.Context, unitID int64) ([]Interval, error)
}

// MemoryStore keeps per-unit interval lists sorted by start date. It does
// not police overlap itself; callers serialize check-then-insert per unit.
type MemoryStore struct {
	mu      sync.RWMutex
	byUnit  map[int64][]Interval
	booking map[int64]int64 // bookingID -> unitID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUnit:  make(map[int64][]Interval),
		booking: make(map[int64]int64),
	}
}

func (s *MemoryStore) ClaimingIntervals(ctx context.Context, unitID int64) ([]Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Interval
	for _, iv := range s.byUnit[unitID] {
		if iv.Status.Claiming() {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (s *MemoryStore) Insert(ctx context.Context, iv Interval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.byUnit[iv.UnitID]
	idx := sort.Search(len(list), func(i int) bool { return !list[i].Start.Before(iv.Start) })
	list = append(list, Interval{})
	copy(list[idx+1:], list[idx:])
	list[idx] = iv
	s.byUnit[iv.UnitID] = list
	s.booking[iv.BookingID] = iv.UnitID
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, bookingID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unitID, ok := s.booking[bookingID]
	if !ok {
		return domain.ErrNotFound
	}
	list := s.byUnit[unitID]
	for i, iv := range list {
		if iv.BookingID == bookingID {
			s.byUnit[unitID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(s.booking, bookingID)
	return nil
}

// SetStatus flips a stored interval's booking status. Flipping to a
// non-claiming status is how an interval leaves the claiming set while its
// history is retained.
func (s *MemoryStore) SetStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unitID, ok := s.booking[bookingID]
	if !ok {
		return domain.ErrNotFound
	}
	list := s.byUnit[unitID]
	for i := range list {
		if list[i].BookingID == bookingID {
			list[i].Status = status
			return nil
		}
	}
	return domain.ErrNotFound
}

// SetDates moves a booking's interval to a new range, keeping the per-unit
// list sorted.
func (s *MemoryStore) SetDates(ctx context.Context, bookingID int64, start, end time.Time) error {
	s.mu.Lock()
	unitID, ok := s.booking[bookingID]
	var status domain.BookingStatus
	if ok {
		for _, iv := range s.byUnit[unitID] {
			if iv.BookingID == bookingID {
				status = iv.Status
				break
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	if err := s.Remove(ctx, bookingID); err != nil {
		return err
	}
	return s.Insert(ctx, Interval{UnitID: unitID, BookingID: bookingID, Start: start, End: end, Status: status})
}

var _ Source = (*MemoryStore)(nil)
