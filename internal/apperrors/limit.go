package apperrors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Relation tells how Value compares to Limit in a LimitError.
type Relation string

const (
	Above Relation = "ABOVE"
	Under Relation = "UNDER"
)

// LimitError is raised when a tier is breached, either by an operation amount
// or by an edit that would invert the tier order.
type LimitError struct {
	Tier     string          // Tier whose value is out of bounds, "AMOUNT" for operation checks
	Relation Relation        // Above or Under
	Bound    string          // Tier compared against
	Value    decimal.Decimal // Offending value
	Limit    decimal.Decimal // Value of Bound
}

// Code is the machine readable name, e.g. DAILY_LIMIT_UNDER_MAX_AMOUNT.
func (e *LimitError) Code() string {
	return e.Tier + "_" + string(e.Relation) + "_" + e.Bound
}

func (e *LimitError) Error() string {
	op := ">"
	if e.Relation == Under {
		op = "<"
	}
	msg := strings.ToLower(strings.ReplaceAll(e.Tier+" "+string(e.Relation)+" "+e.Bound, "_", " "))
	return fmt.Sprintf("%s: %s %s %s", msg, e.Value.String(), op, e.Limit.String())
}

// Unwrap lets errors.Is(err, ErrLimit) match every tier error.
func (e *LimitError) Unwrap() error { return ErrLimit }

// NewLimitError builds a LimitError.
func NewLimitError(tier string, rel Relation, bound string, value, limit decimal.Decimal) *LimitError {
	return &LimitError{Tier: tier, Relation: rel, Bound: bound, Value: value, Limit: limit}
}
