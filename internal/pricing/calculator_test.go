package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func flatRule(baseCents int64) domain.PricingRule {
	return domain.PricingRule{
		UnitType:           "standard",
		BasePriceCents:     baseCents,
		SeasonalMultiplier: 1.0,
		WeekendMultiplier:  1.0,
		HolidayMultiplier:  1.0,
		DemandMultiplier:   1.0,
		EffectiveFrom:      date(2024, 1, 1),
	}
}

func TestCalculator_WeekendNights(t *testing.T) {
	index := NewRuleIndex()
	rule := flatRule(10000)
	rule.WeekendMultiplier = 1.20
	index.Add(rule)

	calc := NewCalculator(index, nil)

	// 2024-06-07 is a Friday; Fri and Sat nights are both weekend-priced
	quote, err := calc.Quote(context.Background(), "standard", date(2024, 6, 7), date(2024, 6, 9))
	assert.NoError(t, err)
	assert.Equal(t, 2, quote.Nights)
	assert.Equal(t, []int64{12000, 12000}, quote.NightlyCents)
	assert.Equal(t, int64(24000), quote.TotalCents)
}

func TestCalculator_MultipliersCompound(t *testing.T) {
	index := NewRuleIndex()
	rule := flatRule(10000)
	rule.WeekendMultiplier = 1.20
	rule.SeasonalMultiplier = 1.10
	rule.DemandMultiplier = 1.05
	rule.HolidayMultiplier = 1.50
	index.Add(rule)

	holidays := NewDateSet([]time.Time{date(2024, 6, 7)})
	calc := NewCalculator(index, holidays)

	quote, err := calc.Quote(context.Background(), "standard", date(2024, 6, 6), date(2024, 6, 9))
	assert.NoError(t, err)
	assert.Equal(t, 3, quote.Nights)

	// Thu: base * seasonal * demand = 10000 * 1.10 * 1.05 = 11550
	// Fri (weekend + holiday): 10000 * 1.20 * 1.50 * 1.10 * 1.05 = 20790
	// Sat (weekend): 10000 * 1.20 * 1.10 * 1.05 = 13860
	assert.Equal(t, []int64{11550, 20790, 13860}, quote.NightlyCents)
	assert.Equal(t, int64(11550+20790+13860), quote.TotalCents)
}

func TestCalculator_PerNightRounding(t *testing.T) {
	index := NewRuleIndex()
	rule := flatRule(9999)
	rule.SeasonalMultiplier = 1.013
	index.Add(rule)

	calc := NewCalculator(index, nil)

	quote, err := calc.Quote(context.Background(), "standard", date(2024, 6, 3), date(2024, 6, 6))
	assert.NoError(t, err)

	// 9999 * 1.013 = 10128.987, rounded per night before summing
	var sum int64
	for _, night := range quote.NightlyCents {
		assert.Equal(t, int64(10129), night)
		sum += night
	}
	assert.Equal(t, sum, quote.TotalCents, "total is the sum of rounded nights")
}

func TestCalculator_Deterministic(t *testing.T) {
	index := NewRuleIndex()
	rule := flatRule(12345)
	rule.WeekendMultiplier = 1.17
	rule.SeasonalMultiplier = 0.93
	rule.DemandMultiplier = 1.31
	index.Add(rule)

	calc := NewCalculator(index, nil)
	ctx := context.Background()

	first, err := calc.Quote(ctx, "standard", date(2024, 6, 1), date(2024, 6, 11))
	assert.NoError(t, err)
	second, err := calc.Quote(ctx, "standard", date(2024, 6, 1), date(2024, 6, 11))
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculator_InvalidRange(t *testing.T) {
	index := NewRuleIndex()
	index.Add(flatRule(10000))
	calc := NewCalculator(index, nil)

	_, err := calc.Quote(context.Background(), "standard", date(2024, 6, 5), date(2024, 6, 5))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)

	_, err = calc.Quote(context.Background(), "standard", date(2024, 6, 6), date(2024, 6, 5))
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestCalculator_NoPricingRule(t *testing.T) {
	calc := NewCalculator(NewRuleIndex(), nil)

	_, err := calc.Quote(context.Background(), "standard", date(2024, 6, 5), date(2024, 6, 7))
	assert.ErrorIs(t, err, domain.ErrNoPricingRule)
}

func TestRuleIndex_LatestApplicableRuleWins(t *testing.T) {
	index := NewRuleIndex()

	january := flatRule(10000)
	january.EffectiveFrom = date(2024, 1, 1)
	index.Add(january)

	june := flatRule(15000)
	june.EffectiveFrom = date(2024, 6, 1)
	index.Add(june)

	ctx := context.Background()

	rule, err := index.LatestRule(ctx, "standard", date(2024, 5, 31))
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), rule.BasePriceCents)

	rule, err = index.LatestRule(ctx, "standard", date(2024, 6, 1))
	assert.NoError(t, err)
	assert.Equal(t, int64(15000), rule.BasePriceCents, "rule effective on check-in applies")

	rule, err = index.LatestRule(ctx, "standard", date(2024, 12, 25))
	assert.NoError(t, err)
	assert.Equal(t, int64(15000), rule.BasePriceCents)

	_, err = index.LatestRule(ctx, "standard", date(2023, 12, 31))
	assert.ErrorIs(t, err, domain.ErrNoPricingRule)

	_, err = index.LatestRule(ctx, "suite", date(2024, 6, 1))
	assert.ErrorIs(t, err, domain.ErrNoPricingRule, "rules are per unit type")
}
