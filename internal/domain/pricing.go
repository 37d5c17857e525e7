package domain

import "time"

// PricingRule is one versioned row of multipliers for a unit type. The rule
// with the latest EffectiveFrom on or before a stay's check-in date applies.
type PricingRule struct {
	ID                 int64
	UnitType           string
	BasePriceCents     int64
	SeasonalMultiplier float64
	WeekendMultiplier  float64
	HolidayMultiplier  float64
	DemandMultiplier   float64
	EffectiveFrom      time.Time
}

// PriceQuote is a derived per-night schedule. Each night is rounded to a
// whole cent before summing, so TotalCents is always the exact sum of
// NightlyCents.
type PriceQuote struct {
	Nights       int
	NightlyCents []int64
	TotalCents   int64
}
