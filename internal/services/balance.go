package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/apperrors"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
	"github.com/shopspring/decimal"
)

// BalanceManager mutates wallet account balances. Every mutating method
// expects the account to have been loaded with Lock in the same transaction.
type BalanceManager struct {
	accounts     WalletAccountRepository
	transactions WalletAccountTransactionRepository
	now          func() time.Time
}

// NewBalanceManager creates a new BalanceManager.
func NewBalanceManager(accounts WalletAccountRepository, transactions WalletAccountTransactionRepository) *BalanceManager {
	return &BalanceManager{
		accounts:     accounts,
		transactions: transactions,
		now:          time.Now,
	}
}

// Lock takes the row locks of the given accounts in ascending id order and
// returns them by id. Duplicate ids are locked once.
func (m *BalanceManager) Lock(ctx context.Context, ids ...uuid.UUID) (map[uuid.UUID]*models.WalletAccount, error) {
	sorted := make([]uuid.UUID, 0, len(ids))
	locked := make(map[uuid.UUID]*models.WalletAccount, len(ids))
	for _, id := range ids {
		if _, ok := locked[id]; ok {
			continue
		}
		locked[id] = nil
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	for _, id := range sorted {
		account, err := m.accounts.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", apperrors.ErrWalletAccountNotFound, id)
			}
			logger.Log.Errorw("failed to lock wallet account", "wallet_account_id", id, "error", err)
			return nil, err
		}
		locked[id] = account
	}
	return locked, nil
}

// Reserve holds amount on the account for a pending operation. With allowRaw
// the existing reservations are not subtracted from the spendable amount.
func (m *BalanceManager) Reserve(ctx context.Context, account *models.WalletAccount, amount decimal.Decimal, allowRaw bool) error {
	if account.State != models.WalletStateActive {
		return fmt.Errorf("%w: account %s", apperrors.ErrWalletNotActive, account.ID)
	}
	if available := account.Available(allowRaw); available.LessThan(amount) {
		logger.Log.Warnw("insufficient balance",
			"wallet_account_id", account.ID, "available", available, "amount", amount)
		return fmt.Errorf("%w: available %s, requested %s", apperrors.ErrInsufficientBalance, available, amount)
	}

	account.PendingAmount = account.PendingAmount.Add(amount)
	account.UpdatedAt = m.now()
	return m.save(ctx, account)
}

// Release drops a reservation made by Reserve without touching the balance.
func (m *BalanceManager) Release(ctx context.Context, account *models.WalletAccount, amount decimal.Decimal) error {
	if account.PendingAmount.LessThan(amount) {
		return fmt.Errorf("%w: account %s has %s pending, releasing %s",
			apperrors.ErrInvalidState, account.ID, account.PendingAmount, amount)
	}

	account.PendingAmount = account.PendingAmount.Sub(amount)
	account.UpdatedAt = m.now()
	return m.save(ctx, account)
}

// Commit applies amount to the balance and appends the ledger row. A debit
// consumes a reservation of the same amount.
func (m *BalanceManager) Commit(
	ctx context.Context,
	account *models.WalletAccount,
	operationID uuid.UUID,
	amount decimal.Decimal,
	direction models.TransactionDirection,
) (*models.WalletAccountTransaction, error) {
	previous := account.Balance

	switch direction {
	case models.DirectionDebit:
		if account.PendingAmount.LessThan(amount) {
			return nil, fmt.Errorf("%w: account %s has %s pending, debiting %s",
				apperrors.ErrInvalidState, account.ID, account.PendingAmount, amount)
		}
		if account.Balance.LessThan(amount) {
			return nil, fmt.Errorf("%w: balance %s, debiting %s", apperrors.ErrInsufficientBalance, account.Balance, amount)
		}
		account.Balance = account.Balance.Sub(amount)
		account.PendingAmount = account.PendingAmount.Sub(amount)
	case models.DirectionCredit:
		account.Balance = account.Balance.Add(amount)
	default:
		return nil, apperrors.InvalidValue("direction", string(direction))
	}

	now := m.now()
	account.UpdatedAt = now
	if err := m.save(ctx, account); err != nil {
		return nil, err
	}

	row := &models.WalletAccountTransaction{
		ID:              uuid.New(),
		WalletAccountID: account.ID,
		OperationID:     operationID,
		TransactionType: direction,
		Value:           amount,
		PreviousBalance: previous,
		UpdatedBalance:  account.Balance,
		CreatedAt:       now,
	}
	if err := m.transactions.Create(ctx, row); err != nil {
		logger.Log.Errorw("failed to append ledger row",
			"wallet_account_id", account.ID, "operation_id", operationID, "error", err)
		return nil, err
	}
	return row, nil
}

func (m *BalanceManager) save(ctx context.Context, account *models.WalletAccount) error {
	if err := m.accounts.Update(ctx, account); err != nil {
		logger.Log.Errorw("failed to update wallet account", "wallet_account_id", account.ID, "error", err)
		return err
	}
	return nil
}

// GetWalletAccount returns an account by id.
func (m *BalanceManager) GetWalletAccount(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	account, err := m.accounts.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrWalletAccountNotFound, id)
	}
	return account, err
}

// ListTransactions returns the ledger rows of an account in the order they were written.
func (m *BalanceManager) ListTransactions(ctx context.Context, id uuid.UUID) ([]models.WalletAccountTransaction, error) {
	if _, err := m.GetWalletAccount(ctx, id); err != nil {
		return nil, err
	}
	return m.transactions.ListByWalletAccount(ctx, id)
}

// Replay folds the ledger of an account starting from zero and checks every
// row snapshot along the way. The folded balance must equal the stored one.
func (m *BalanceManager) Replay(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	account, err := m.GetWalletAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	rows, err := m.transactions.ListByWalletAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	balance := decimal.Zero
	for _, row := range rows {
		if !row.PreviousBalance.Equal(balance) {
			return balance, fmt.Errorf("%w: row %s starts at %s, replay is at %s",
				apperrors.ErrInvalidState, row.ID, row.PreviousBalance, balance)
		}
		balance = balance.Add(row.Signed())
		if !row.UpdatedBalance.Equal(balance) {
			return balance, fmt.Errorf("%w: row %s ends at %s, replay is at %s",
				apperrors.ErrInvalidState, row.ID, row.UpdatedBalance, balance)
		}
	}

	if !balance.Equal(account.Balance) {
		logger.Log.Errorw("balance does not match ledger",
			"wallet_account_id", id, "balance", account.Balance, "replayed", balance)
		return balance, fmt.Errorf("%w: account %s balance %s, ledger %s",
			apperrors.ErrInvalidState, id, account.Balance, balance)
	}
	return balance, nil
}
