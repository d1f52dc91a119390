package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionTypeParticipants tells which sides of an operation exist.
type TransactionTypeParticipants string

const (
	ParticipantsOwner               TransactionTypeParticipants = "OWNER"
	ParticipantsBeneficiary         TransactionTypeParticipants = "BENEFICIARY"
	ParticipantsOwnerAndBeneficiary TransactionTypeParticipants = "OWNER_AND_BENEFICIARY"
)

// HasOwner reports whether operations of this kind debit an owner.
func (p TransactionTypeParticipants) HasOwner() bool {
	return p == ParticipantsOwner || p == ParticipantsOwnerAndBeneficiary
}

// HasBeneficiary reports whether operations of this kind credit a beneficiary.
func (p TransactionTypeParticipants) HasBeneficiary() bool {
	return p == ParticipantsBeneficiary || p == ParticipantsOwnerAndBeneficiary
}

// TransactionTypeState is the availability of a transaction type.
type TransactionTypeState string

const (
	TransactionTypeStateActive     TransactionTypeState = "ACTIVE"
	TransactionTypeStateDeactivate TransactionTypeState = "DEACTIVATE"
)

// TransactionType drives which sides of an operation are created and which limits apply.
type TransactionType struct {
	ID           uuid.UUID                   `json:"id" db:"id"`
	Tag          string                      `json:"tag" db:"tag"`
	Title        string                      `json:"title" db:"title"`
	Participants TransactionTypeParticipants `json:"participants" db:"participants"`
	State        TransactionTypeState        `json:"state" db:"state"`
	CreatedAt    time.Time                   `json:"created_at" db:"created_at"`
}
