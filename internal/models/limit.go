package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LimitPeriodStart anchors monthly and yearly windows.
type LimitPeriodStart string

const (
	PeriodStartDate             LimitPeriodStart = "DATE"              // Calendar month and year
	PeriodStartUserRegistration LimitPeriodStart = "USER_REGISTRATION" // Months and years counted from the user's registration
)

// LimitCheck selects which side of an operation is verified.
type LimitCheck string

const (
	LimitCheckOwner       LimitCheck = "OWNER"
	LimitCheckBeneficiary LimitCheck = "BENEFICIARY"
	LimitCheckBoth        LimitCheck = "BOTH"
)

// ChecksOwner reports whether the owner side is verified.
func (c LimitCheck) ChecksOwner() bool { return c == LimitCheckOwner || c == LimitCheckBoth }

// ChecksBeneficiary reports whether the beneficiary side is verified.
func (c LimitCheck) ChecksBeneficiary() bool {
	return c == LimitCheckBeneficiary || c == LimitCheckBoth
}

// LimitType defines what is limited: a transaction type in a currency.
type LimitType struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	Tag               string           `json:"tag" db:"tag"`
	Description       string           `json:"description" db:"description"`
	CurrencyID        uuid.UUID        `json:"currency_id" db:"currency_id"`
	TransactionTypeID uuid.UUID        `json:"transaction_type_id" db:"transaction_type_id"`
	PeriodStart       LimitPeriodStart `json:"period_start" db:"period_start"`
	Check             LimitCheck       `json:"check" db:"check_side"`
	NighttimeStart    string           `json:"nighttime_start" db:"nighttime_start"` // "HH:MM", inclusive
	NighttimeEnd      string           `json:"nighttime_end" db:"nighttime_end"`     // "HH:MM", exclusive
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// NightWindow reports whether t falls in [NighttimeStart, NighttimeEnd) and,
// if it does, when the current night began. The window may wrap midnight.
// Equal or unparsable bounds mean the limit type has no night.
func (l *LimitType) NightWindow(t time.Time) (time.Time, bool) {
	start, err := parseClock(l.NighttimeStart)
	if err != nil {
		return time.Time{}, false
	}
	end, err := parseClock(l.NighttimeEnd)
	if err != nil || start == end {
		return time.Time{}, false
	}

	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	minute := t.Hour()*60 + t.Minute()

	if start < end {
		if minute >= start && minute < end {
			return midnight.Add(time.Duration(start) * time.Minute), true
		}
		return time.Time{}, false
	}

	switch {
	case minute >= start:
		return midnight.Add(time.Duration(start) * time.Minute), true
	case minute < end:
		return midnight.AddDate(0, 0, -1).Add(time.Duration(start) * time.Minute), true
	}
	return time.Time{}, false
}

// IsNighttime reports whether t is inside the night window.
func (l *LimitType) IsNighttime(t time.Time) bool {
	_, ok := l.NightWindow(t)
	return ok
}

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("clock %q out of range", s)
	}
	return h*60 + m, nil
}

// Tier names one spending ceiling.
type Tier string

const (
	TierMinAmount        Tier = "MIN_AMOUNT"
	TierMaxAmount        Tier = "MAX_AMOUNT"
	TierMinAmountNightly Tier = "MIN_AMOUNT_NIGHTLY"
	TierMaxAmountNightly Tier = "MAX_AMOUNT_NIGHTLY"
	TierNightly          Tier = "NIGHTLY_LIMIT"
	TierDaily            Tier = "DAILY_LIMIT"
	TierMonthly          Tier = "MONTHLY_LIMIT"
	TierYearly           Tier = "YEARLY_LIMIT"

	TierUserNightly Tier = "USER_NIGHTLY_LIMIT"
	TierUserDaily   Tier = "USER_DAILY_LIMIT"
	TierUserMonthly Tier = "USER_MONTHLY_LIMIT"
	TierUserYearly  Tier = "USER_YEARLY_LIMIT"
)

// CeilingTiers lists the tiers stored on both global and user limits.
var CeilingTiers = []Tier{
	TierMinAmount, TierMaxAmount, TierMinAmountNightly, TierMaxAmountNightly,
	TierNightly, TierDaily, TierMonthly, TierYearly,
}

// UserTierCeilings maps each user-chosen sub-limit to the ceiling it may not exceed.
var UserTierCeilings = map[Tier]Tier{
	TierUserNightly: TierNightly,
	TierUserDaily:   TierDaily,
	TierUserMonthly: TierMonthly,
	TierUserYearly:  TierYearly,
}

// LimitValues is the set of ceilings shared by GlobalLimit and UserLimit.
type LimitValues struct {
	NightlyLimit     decimal.Decimal `json:"nightly_limit" db:"nightly_limit"`
	DailyLimit       decimal.Decimal `json:"daily_limit" db:"daily_limit"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit" db:"monthly_limit"`
	YearlyLimit      decimal.Decimal `json:"yearly_limit" db:"yearly_limit"`
	MaxAmount        decimal.Decimal `json:"max_amount" db:"max_amount"`
	MinAmount        decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmountNightly decimal.Decimal `json:"max_amount_nightly" db:"max_amount_nightly"`
	MinAmountNightly decimal.Decimal `json:"min_amount_nightly" db:"min_amount_nightly"`
}

func (v *LimitValues) field(t Tier) *decimal.Decimal {
	switch t {
	case TierMinAmount:
		return &v.MinAmount
	case TierMaxAmount:
		return &v.MaxAmount
	case TierMinAmountNightly:
		return &v.MinAmountNightly
	case TierMaxAmountNightly:
		return &v.MaxAmountNightly
	case TierNightly:
		return &v.NightlyLimit
	case TierDaily:
		return &v.DailyLimit
	case TierMonthly:
		return &v.MonthlyLimit
	case TierYearly:
		return &v.YearlyLimit
	}
	return nil
}

// Tier returns the value of t, or zero for tiers not held by LimitValues.
func (v *LimitValues) Tier(t Tier) decimal.Decimal {
	if f := v.field(t); f != nil {
		return *f
	}
	return decimal.Zero
}

// SetTier stores value into t. Unknown tiers are ignored.
func (v *LimitValues) SetTier(t Tier, value decimal.Decimal) {
	if f := v.field(t); f != nil {
		*f = value
	}
}

// GlobalLimit is the platform ceiling of a limit type.
type GlobalLimit struct {
	ID          uuid.UUID `json:"id" db:"id"`
	LimitTypeID uuid.UUID `json:"limit_type_id" db:"limit_type_id"`
	LimitValues
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserLimit holds the admin-managed ceilings of one user for one limit type
// together with the sub-limits the user picked.
type UserLimit struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	LimitTypeID uuid.UUID `json:"limit_type_id" db:"limit_type_id"`
	LimitValues
	UserNightlyLimit decimal.Decimal `json:"user_nightly_limit" db:"user_nightly_limit"`
	UserDailyLimit   decimal.Decimal `json:"user_daily_limit" db:"user_daily_limit"`
	UserMonthlyLimit decimal.Decimal `json:"user_monthly_limit" db:"user_monthly_limit"`
	UserYearlyLimit  decimal.Decimal `json:"user_yearly_limit" db:"user_yearly_limit"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

func (u *UserLimit) userField(t Tier) *decimal.Decimal {
	switch t {
	case TierUserNightly:
		return &u.UserNightlyLimit
	case TierUserDaily:
		return &u.UserDailyLimit
	case TierUserMonthly:
		return &u.UserMonthlyLimit
	case TierUserYearly:
		return &u.UserYearlyLimit
	}
	return nil
}

// Tier returns the ceiling or sub-limit named by t.
func (u *UserLimit) Tier(t Tier) decimal.Decimal {
	if f := u.userField(t); f != nil {
		return *f
	}
	return u.LimitValues.Tier(t)
}

// SetTier stores value into the ceiling or sub-limit named by t.
func (u *UserLimit) SetTier(t Tier, value decimal.Decimal) {
	if f := u.userField(t); f != nil {
		*f = value
		return
	}
	u.LimitValues.SetTier(t, value)
}

// UserLimitTracker accumulates usage of a user limit inside the current windows.
// It is saved with an optimistic Version check.
type UserLimitTracker struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserLimitID     uuid.UUID       `json:"user_limit_id" db:"user_limit_id"`
	NightlySpent    decimal.Decimal `json:"nightly_spent" db:"nightly_spent"`
	DailySpent      decimal.Decimal `json:"daily_spent" db:"daily_spent"`
	MonthlySpent    decimal.Decimal `json:"monthly_spent" db:"monthly_spent"`
	YearlySpent     decimal.Decimal `json:"yearly_spent" db:"yearly_spent"`
	LastOperationAt *time.Time      `json:"last_operation_at,omitempty" db:"last_operation_at"`
	LastNighttimeAt *time.Time      `json:"last_nighttime_at,omitempty" db:"last_nighttime_at"`
	Version         int64           `json:"version" db:"version"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}
