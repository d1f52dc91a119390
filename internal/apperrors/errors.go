// Package apperrors defines the error kinds surfaced by the ledger core.
package apperrors

import (
	"errors"
	"fmt"
)

// Error kinds. Specific errors wrap their family so callers can branch with errors.Is.
var (
	ErrMissingData  = errors.New("missing data")
	ErrInvalidValue = errors.New("invalid value")

	ErrNotFound                = errors.New("not found")
	ErrOperationNotFound       = fmt.Errorf("operation %w", ErrNotFound)
	ErrCurrencyNotFound        = fmt.Errorf("currency %w", ErrNotFound)
	ErrTransactionTypeNotFound = fmt.Errorf("transaction type %w", ErrNotFound)
	ErrWalletNotFound          = fmt.Errorf("wallet %w", ErrNotFound)
	ErrWalletAccountNotFound   = fmt.Errorf("wallet account %w", ErrNotFound)
	ErrUserNotFound            = fmt.Errorf("user %w", ErrNotFound)
	ErrLimitTypeNotFound       = fmt.Errorf("limit type %w", ErrNotFound)
	ErrGlobalLimitNotFound     = fmt.Errorf("global limit %w", ErrNotFound)
	ErrUserLimitNotFound       = fmt.Errorf("user limit %w", ErrNotFound)

	ErrInvalidState          = errors.New("invalid state")
	ErrOperationInvalidState = fmt.Errorf("operation %w", ErrInvalidState)
	ErrDuplicateOperation    = errors.New("operation id reused with a different payload")

	ErrWalletNotActive     = errors.New("wallet not active")
	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrLimit = errors.New("limit exceeded")
)

var domainKinds = []error{
	ErrMissingData, ErrInvalidValue, ErrNotFound, ErrInvalidState, ErrDuplicateOperation,
	ErrWalletNotActive, ErrInsufficientBalance, ErrLimit,
}

// IsDomain reports whether err is an expected business error rather than an
// infrastructure failure.
func IsDomain(err error) bool {
	for _, kind := range domainKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// MissingData reports an absent mandatory field.
func MissingData(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingData, field)
}

// InvalidValue reports a present but unusable field.
func InvalidValue(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidValue, field, reason)
}
