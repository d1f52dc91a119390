package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OperationState is the position of an operation in the two-phase protocol.
type OperationState string

const (
	OperationStatePending  OperationState = "PENDING"
	OperationStateAccepted OperationState = "ACCEPTED"
	OperationStateReverted OperationState = "REVERTED"
	OperationStateDeclined OperationState = "DECLINED"
)

// Terminal reports whether no further transition is allowed.
func (s OperationState) Terminal() bool {
	return s != OperationStatePending
}

// Operation is a single ledger event. It may debit an owner account, credit a
// beneficiary account, or both.
type Operation struct {
	ID                         uuid.UUID       `json:"id" db:"id"` // Caller supplied, used for idempotency
	State                      OperationState  `json:"state" db:"state"`
	TransactionTypeID          uuid.UUID       `json:"transaction_type_id" db:"transaction_type_id"`
	CurrencyID                 uuid.UUID       `json:"currency_id" db:"currency_id"`
	RawValue                   decimal.Decimal `json:"raw_value" db:"raw_value"` // Nominal amount
	Fee                        decimal.Decimal `json:"fee" db:"fee"`
	Value                      decimal.Decimal `json:"value" db:"value"` // Net effect, RawValue - Fee
	Description                string          `json:"description" db:"description"`
	OwnerWalletAccountID       *uuid.UUID      `json:"owner_wallet_account_id,omitempty" db:"owner_wallet_account_id"`
	BeneficiaryWalletAccountID *uuid.UUID      `json:"beneficiary_wallet_account_id,omitempty" db:"beneficiary_wallet_account_id"`
	OperationRefID             *uuid.UUID      `json:"operation_ref_id,omitempty" db:"operation_ref_id"` // Origin of a devolution
	AllowAvailableRawValue     bool            `json:"allow_available_raw_value" db:"allow_available_raw_value"`
	CreatedAt                  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at" db:"updated_at"`
}

// SelfTransfer reports whether both legs hit the same wallet account.
func (o *Operation) SelfTransfer() bool {
	return o.OwnerWalletAccountID != nil && o.BeneficiaryWalletAccountID != nil &&
		*o.OwnerWalletAccountID == *o.BeneficiaryWalletAccountID
}
