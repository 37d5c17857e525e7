package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/pricing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PricingRuleRepository interface {
	pricing.RuleSource
	ListByUnitType(ctx context.Context, unitType string) ([]domain.PricingRule, error)
}

type PGPricingRuleRepository struct {
	db *pgxpool.Pool
}

func NewPricingRuleRepository(db *pgxpool.Pool) PricingRuleRepository {
	return &PGPricingRuleRepository{db: db}
}

func (r *PGPricingRuleRepository) LatestRule(ctx context.Context, unitType string, onOrBefore time.Time) (*domain.PricingRule, error) {
	row := r.db.QueryRow(ctx, `SELECT id, unit_type, base_price_cents, seasonal_multiplier, weekend_multiplier, holiday_multiplier, demand_multiplier, effective_from
		FROM pricing_rules WHERE unit_type=$1 AND effective_from <= $2
		ORDER BY effective_from DESC LIMIT 1`, unitType, onOrBefore)
	var rule domain.PricingRule
	if err := row.Scan(&rule.ID, &rule.UnitType, &rule.BasePriceCents, &rule.SeasonalMultiplier, &rule.WeekendMultiplier, &rule.HolidayMultiplier, &rule.DemandMultiplier, &rule.EffectiveFrom); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("unit type %q on %s: %w", unitType, onOrBefore.Format("2006-01-02"), domain.ErrNoPricingRule)
		}
		return nil, err
	}
	return &rule, nil
}

func (r *PGPricingRuleRepository) ListByUnitType(ctx context.Context, unitType string) ([]domain.PricingRule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, unit_type, base_price_cents, seasonal_multiplier, weekend_multiplier, holiday_multiplier, demand_multiplier, effective_from
		FROM pricing_rules WHERE unit_type=$1 ORDER BY effective_from`, unitType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.PricingRule, 0)
	for rows.Next() {
		var rule domain.PricingRule
		if err := rows.Scan(&rule.ID, &rule.UnitType, &rule.BasePriceCents, &rule.SeasonalMultiplier, &rule.WeekendMultiplier, &rule.HolidayMultiplier, &rule.DemandMultiplier, &rule.EffectiveFrom); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

var _ PricingRuleRepository = (*PGPricingRuleRepository)(nil)
