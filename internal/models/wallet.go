package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletState is shared by wallets and wallet accounts.
type WalletState string

const (
	WalletStateActive     WalletState = "ACTIVE"
	WalletStateDeactivate WalletState = "DEACTIVATE"
)

// Wallet groups the per-currency accounts of one user.
type Wallet struct {
	ID        uuid.UUID   `json:"id" db:"id"`                 // Unique wallet identifier
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`       // Identifier of the wallet's owner
	Name      string      `json:"name" db:"name"`             // Display name
	State     WalletState `json:"state" db:"state"`           // ACTIVE or DEACTIVATE
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // Timestamp when the wallet was created
}

// WalletAccount holds the balance of one (wallet, currency) pair.
type WalletAccount struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	WalletID      uuid.UUID       `json:"wallet_id" db:"wallet_id"`
	CurrencyID    uuid.UUID       `json:"currency_id" db:"currency_id"`
	Balance       decimal.Decimal `json:"balance" db:"balance"`               // Committed balance
	PendingAmount decimal.Decimal `json:"pending_amount" db:"pending_amount"` // Reserved by PENDING operations
	State         WalletState     `json:"state" db:"state"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Available returns the amount that may still be reserved. With allowRaw the
// pending reservations are ignored and the raw balance is returned.
func (a *WalletAccount) Available(allowRaw bool) decimal.Decimal {
	if allowRaw {
		return a.Balance
	}
	return a.Balance.Sub(a.PendingAmount)
}
