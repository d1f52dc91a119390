package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is immutable reference data shared by every operation.
type Currency struct {
	ID        uuid.UUID `json:"id" db:"id"`                  // Primary key
	Symbol    string    `json:"symbol" db:"symbol"`          // Display symbol, e.g. "R$"
	Tag       string    `json:"tag" db:"tag"`                // Unique lookup tag, e.g. "REAL"
	Decimal   int32     `json:"decimal" db:"decimal_places"` // Fixed-point scale of amounts in this currency
	Title     string    `json:"title" db:"title"`            // Human readable name
	CreatedAt time.Time `json:"created_at" db:"created_at"`  // Creation timestamp
}

// HasScale reports whether amount fits the currency precision without rounding.
func (c *Currency) HasScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(c.Decimal))
}
