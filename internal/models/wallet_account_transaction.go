package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionDirection is the side of a ledger row.
type TransactionDirection string

const (
	DirectionCredit TransactionDirection = "CREDIT"
	DirectionDebit  TransactionDirection = "DEBIT"
)

// WalletAccountTransaction is an append-only ledger row written when an operation is accepted.
type WalletAccountTransaction struct {
	ID              uuid.UUID            `json:"id" db:"id"`
	WalletAccountID uuid.UUID            `json:"wallet_account_id" db:"wallet_account_id"`
	OperationID     uuid.UUID            `json:"operation_id" db:"operation_id"`
	TransactionType TransactionDirection `json:"transaction_type" db:"transaction_type"`
	Value           decimal.Decimal      `json:"value" db:"value"`
	PreviousBalance decimal.Decimal      `json:"previous_balance" db:"previous_balance"` // Balance before this row
	UpdatedBalance  decimal.Decimal      `json:"updated_balance" db:"updated_balance"`   // Balance after this row
	CreatedAt       time.Time            `json:"created_at" db:"created_at"`
}

// Signed returns the value with the sign of its direction.
func (t *WalletAccountTransaction) Signed() decimal.Decimal {
	if t.TransactionType == DirectionDebit {
		return t.Value.Neg()
	}
	return t.Value
}
