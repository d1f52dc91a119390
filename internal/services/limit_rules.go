package services

import (
	"github.com/sbilibin2017/gw-operation-ledger/internal/apperrors"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// tierRule requires lower <= upper.
type tierRule struct {
	lower models.Tier
	upper models.Tier
}

// ceilingRules keep minAmount <= maxAmount <= nightly <= daily <= monthly <= yearly,
// with the nightly amount bounds nested the same way under the nightly limit.
var ceilingRules = []tierRule{
	{models.TierMinAmount, models.TierMaxAmount},
	{models.TierMaxAmount, models.TierNightly},
	{models.TierNightly, models.TierDaily},
	{models.TierDaily, models.TierMonthly},
	{models.TierMonthly, models.TierYearly},
	{models.TierMinAmountNightly, models.TierMaxAmountNightly},
	{models.TierMaxAmountNightly, models.TierNightly},
}

// userRules order the sub-limits a user picks for themself.
var userRules = []tierRule{
	{models.TierUserNightly, models.TierUserDaily},
	{models.TierUserDaily, models.TierUserMonthly},
	{models.TierUserMonthly, models.TierUserYearly},
}

// userCeilingRules bound each sub-limit by its ceiling.
var userCeilingRules = []tierRule{
	{models.TierUserNightly, models.TierNightly},
	{models.TierUserDaily, models.TierDaily},
	{models.TierUserMonthly, models.TierMonthly},
	{models.TierUserYearly, models.TierYearly},
}

type tierReader interface {
	Tier(t models.Tier) decimal.Decimal
}

// checkRules returns the first broken rule as a LimitError. When only the
// upper tier of a rule was changed the error blames it (e.g. DAILY_LIMIT_UNDER_MAX_AMOUNT),
// otherwise the lower one (e.g. MAX_AMOUNT_ABOVE_DAILY_LIMIT).
func checkRules(rules []tierRule, values tierReader, changed map[models.Tier]decimal.Decimal) error {
	for _, rule := range rules {
		lower, upper := values.Tier(rule.lower), values.Tier(rule.upper)
		if lower.LessThanOrEqual(upper) {
			continue
		}

		_, lowerChanged := changed[rule.lower]
		_, upperChanged := changed[rule.upper]
		if upperChanged && !lowerChanged {
			return apperrors.NewLimitError(string(rule.upper), apperrors.Under, string(rule.lower), upper, lower)
		}
		return apperrors.NewLimitError(string(rule.lower), apperrors.Above, string(rule.upper), lower, upper)
	}
	return nil
}

// checkChanges rejects negative values and tiers outside allowed.
func checkChanges(changes map[models.Tier]decimal.Decimal, allowed []models.Tier) error {
	if len(changes) == 0 {
		return apperrors.MissingData("limits")
	}
	for tier, value := range changes {
		if !containsTier(allowed, tier) {
			return apperrors.InvalidValue(string(tier), "cannot be changed here")
		}
		if value.IsNegative() {
			return apperrors.InvalidValue(string(tier), "must not be negative")
		}
	}
	return nil
}

func containsTier(tiers []models.Tier, t models.Tier) bool {
	for _, tier := range tiers {
		if tier == t {
			return true
		}
	}
	return false
}
