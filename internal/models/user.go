package models

import (
	"time"

	"github.com/google/uuid"
)

// UserState is the lifecycle state of a platform user.
type UserState string

const (
	UserStateActive     UserState = "ACTIVE"
	UserStateDeactivate UserState = "DEACTIVATE"
)

// User is the owner of wallets. Only the fields the ledger needs are mapped.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`                 // Primary key
	State     UserState `json:"state" db:"state"`           // Lifecycle state
	CreatedAt time.Time `json:"created_at" db:"created_at"` // Registration timestamp, anchor of USER_REGISTRATION periods
}
