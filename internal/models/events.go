package models

import "time"

// Operation lifecycle event names.
const (
	OperationEventCreated  = "created"
	OperationEventAccepted = "accepted"
	OperationEventReverted = "reverted"
	OperationEventDeclined = "declined"
)

// User limit event names.
const (
	UserLimitEventCreated = "created"
	UserLimitEventUpdated = "updated"
)

// OperationEvent is published after an operation change is durably stored.
type OperationEvent struct {
	Event        string                     `json:"event"`
	Operation    Operation                  `json:"operation"`
	Transactions []WalletAccountTransaction `json:"transactions,omitempty"` // Ledger rows written by an accept
	OccurredAt   time.Time                  `json:"occurred_at"`
}

// UserLimitEvent is published when a user limit is provisioned or edited.
type UserLimitEvent struct {
	Event      string    `json:"event"`
	UserLimit  UserLimit `json:"user_limit"`
	OccurredAt time.Time `json:"occurred_at"`
}
