package pricing

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
)

// RuleIndex is an in-memory versioned rule lookup: rules are kept sorted by
// effective date per unit type and the latest rule effective on or before a
// stay's check-in wins.
type RuleIndex struct {
	mu    sync.RWMutex
	rules map[string][]domain.PricingRule
}

func NewRuleIndex() *RuleIndex {
	return &RuleIndex{rules: make(map[string][]domain.PricingRule)}
}

func (ix *RuleIndex) Add(rule domain.PricingRule) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	list := append(ix.rules[rule.UnitType], rule)
	sort.Slice(list, func(i, j int) bool { return list[i].EffectiveFrom.Before(list[j].EffectiveFrom) })
	ix.rules[rule.UnitType] = list
}

func (ix *RuleIndex) LatestRule(ctx context.Context, unitType string, onOrBefore time.Time) (*domain.PricingRule, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	list := ix.rules[unitType]
	// first rule strictly after the date; the one before it applies
	idx := sort.Search(len(list), func(i int) bool { return list[i].EffectiveFrom.After(onOrBefore) })
	if idx == 0 {
		return nil, fmt.Errorf("unit type %q on %s: %w", unitType, onOrBefore.Format("2006-01-02"), domain.ErrNoPricingRule)
	}
	rule := list[idx-1]
	return &rule, nil
}

var _ RuleSource = (*RuleIndex)(nil)

// DateSet is a HolidayCalendar backed by an explicit list of dates, fed
// from config.
type DateSet map[string]struct{}

func NewDateSet(dates []time.Time) DateSet {
	set := make(DateSet, len(dates))
	for _, d := range dates {
		set[d.Format("2006-01-02")] = struct{}{}
	}
	return set
}

func (s DateSet) IsHoliday(date time.Time) bool {
	_, ok := s[date.Format("2006-01-02")]
	return ok
}

var _ HolidayCalendar = (DateSet)(nil)
