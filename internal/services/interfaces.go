package services

//go:generate mockgen -source=interfaces.go -destination=interfaces_mock.go -package=services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

// Transactor runs a unit of work atomically. Row locks taken inside fn are
// held until it returns.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CurrencyReader reads currencies.
type CurrencyReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Currency, error)
	GetByTag(ctx context.Context, tag string) (*models.Currency, error)
}

// TransactionTypeReader reads transaction types.
type TransactionTypeReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.TransactionType, error)
	GetByTag(ctx context.Context, tag string) (*models.TransactionType, error)
}

// ReferenceCache caches reference data by tag.
type ReferenceCache interface {
	GetCurrency(ctx context.Context, tag string) (*models.Currency, error)               // Returns a cached currency
	SetCurrency(ctx context.Context, currency *models.Currency) error                    // Caches a currency
	GetTransactionType(ctx context.Context, tag string) (*models.TransactionType, error) // Returns a cached transaction type
	SetTransactionType(ctx context.Context, tt *models.TransactionType) error            // Caches a transaction type
}

// UserReader reads users.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// WalletReader reads wallets.
type WalletReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
}

// WalletAccountRepository persists wallet accounts.
type WalletAccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) // Locks the row until the transaction ends
	GetByWalletAndCurrency(ctx context.Context, walletID, currencyID uuid.UUID) (*models.WalletAccount, error)
	Create(ctx context.Context, account *models.WalletAccount) (*models.WalletAccount, error) // Returns the stored row, existing or new
	Update(ctx context.Context, account *models.WalletAccount) error
}

// WalletAccountTransactionRepository appends and reads ledger rows.
type WalletAccountTransactionRepository interface {
	Create(ctx context.Context, row *models.WalletAccountTransaction) error
	ListByWalletAccount(ctx context.Context, walletAccountID uuid.UUID) ([]models.WalletAccountTransaction, error)
	ListByOperation(ctx context.Context, operationID uuid.UUID) ([]models.WalletAccountTransaction, error)
}

// OperationRepository persists operations.
type OperationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Operation, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Operation, error) // Locks the row until the transaction ends
	Create(ctx context.Context, op *models.Operation) error
	Update(ctx context.Context, op *models.Operation) error
	ListPendingBefore(ctx context.Context, t time.Time, limit int) ([]models.Operation, error)
}

// LimitTypeReader reads limit types.
type LimitTypeReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.LimitType, error)
	ListByCurrencyAndTransactionType(ctx context.Context, currencyID, transactionTypeID uuid.UUID) ([]models.LimitType, error)
}

// GlobalLimitRepository persists platform ceilings.
type GlobalLimitRepository interface {
	GetByLimitType(ctx context.Context, limitTypeID uuid.UUID) (*models.GlobalLimit, error)
	Update(ctx context.Context, gl *models.GlobalLimit) error
}

// UserLimitRepository persists user ceilings and sub-limits.
type UserLimitRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.UserLimit, error)
	GetByUserAndLimitType(ctx context.Context, userID, limitTypeID uuid.UUID) (*models.UserLimit, error)
	Create(ctx context.Context, ul *models.UserLimit) error
	Update(ctx context.Context, ul *models.UserLimit) error
}

// UserLimitTrackerRepository persists usage accumulators. Update fails with a
// version conflict when the tracker changed since it was loaded.
type UserLimitTrackerRepository interface {
	GetByUserLimit(ctx context.Context, userLimitID uuid.UUID) (*models.UserLimitTracker, error)
	Create(ctx context.Context, tracker *models.UserLimitTracker) error
	Update(ctx context.Context, tracker *models.UserLimitTracker) error
}

// OperationEventEmitter is notified after an operation change is committed.
type OperationEventEmitter interface {
	EmitOperationEvent(ctx context.Context, event models.OperationEvent) error
}

// UserLimitEventEmitter is notified after a user limit is created or updated.
type UserLimitEventEmitter interface {
	EmitUserLimitEvent(ctx context.Context, event models.UserLimitEvent) error
}

// NoopEventEmitter drops every event.
type NoopEventEmitter struct{}

func (NoopEventEmitter) EmitOperationEvent(context.Context, models.OperationEvent) error { return nil }
func (NoopEventEmitter) EmitUserLimitEvent(context.Context, models.UserLimitEvent) error { return nil }
