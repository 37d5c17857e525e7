package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
)

// RuleSource resolves the pricing rule in effect for a unit type on a date.
// Implemented by the pg pricing repository and by RuleIndex.
type RuleSource interface {
	LatestRule(ctx context.Context, unitType string, onOrBefore time.Time) (*domain.PricingRule, error)
}

// HolidayCalendar is the external holiday lookup. A nil calendar means no
// date is ever a holiday.
type HolidayCalendar interface {
	IsHoliday(date time.Time) bool
}

// Calculator produces deterministic per-night price schedules. All
// applicable multipliers compound multiplicatively; each night is rounded to
// a whole cent before the total is summed so repeated quotes never drift.
type Calculator struct {
	rules    RuleSource
	holidays HolidayCalendar
}

func NewCalculator(rules RuleSource, holidays HolidayCalendar) *Calculator {
	return &Calculator{rules: rules, holidays: holidays}
}

func (c *Calculator) Quote(ctx context.Context, unitType string, checkIn, checkOut time.Time) (*domain.PriceQuote, error) {
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if nights <= 0 {
		return nil, fmt.Errorf("stay [%s, %s): %w",
			checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), domain.ErrInvalidRange)
	}

	rule, err := c.rules.LatestRule(ctx, unitType, checkIn)
	if err != nil {
		return nil, err
	}

	quote := &domain.PriceQuote{
		Nights:       nights,
		NightlyCents: make([]int64, 0, nights),
	}
	for night := checkIn; night.Before(checkOut); night = night.AddDate(0, 0, 1) {
		cents := c.nightPrice(rule, night)
		quote.NightlyCents = append(quote.NightlyCents, cents)
		quote.TotalCents += cents
	}
	return quote, nil
}

func (c *Calculator) nightPrice(rule *domain.PricingRule, night time.Time) int64 {
	price := float64(rule.BasePriceCents)
	if isWeekend(night) {
		price *= rule.WeekendMultiplier
	}
	if c.holidays != nil && c.holidays.IsHoliday(night) {
		price *= rule.HolidayMultiplier
	}
	price *= rule.SeasonalMultiplier
	price *= rule.DemandMultiplier
	return int64(math.Round(price))
}

// Weekend nights are Friday and Saturday: the nights guests stay over the
// weekend, not the calendar weekend days.
func isWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Friday || wd == time.Saturday
}
