package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

// WalletRepository reads wallets.
type WalletRepository struct {
	base
}

func NewWalletRepository(db *sqlx.DB, txGetter TxGetter) *WalletRepository {
	return &WalletRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the wallet with the given id.
func (r *WalletRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	const query = `
		SELECT id, user_id, name, state, created_at
		FROM wallets
		WHERE id = $1
	`

	var wallet models.Wallet
	err := sqlx.GetContext(ctx, r.ext(ctx), &wallet, query, id)
	logQuery(query, []any{id}, wallet.State, err)
	if err != nil {
		return nil, translate(err)
	}
	return &wallet, nil
}

const walletAccountColumns = `id, wallet_id, currency_id, balance, pending_amount, state, created_at, updated_at`

// WalletAccountRepository persists per-currency balances.
type WalletAccountRepository struct {
	base
}

func NewWalletAccountRepository(db *sqlx.DB, txGetter TxGetter) *WalletAccountRepository {
	return &WalletAccountRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the account without locking it.
func (r *WalletAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	query := `SELECT ` + walletAccountColumns + ` FROM wallet_accounts WHERE id = $1`

	var account models.WalletAccount
	err := sqlx.GetContext(ctx, r.ext(ctx), &account, query, id)
	logQuery(query, []any{id}, account.Balance, err)
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// GetByIDForUpdate returns the account and holds its row lock until the
// context transaction ends.
func (r *WalletAccountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + walletAccountColumns + ` FROM wallet_accounts WHERE id = $1 FOR UPDATE`

	var account models.WalletAccount
	err = tx.GetContext(ctx, &account, query, id)
	logQuery(query, []any{id}, account.Balance, err)
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// GetByWalletAndCurrency returns the account of a wallet in a currency.
func (r *WalletAccountRepository) GetByWalletAndCurrency(ctx context.Context, walletID, currencyID uuid.UUID) (*models.WalletAccount, error) {
	query := `SELECT ` + walletAccountColumns + ` FROM wallet_accounts WHERE wallet_id = $1 AND currency_id = $2`

	var account models.WalletAccount
	err := sqlx.GetContext(ctx, r.ext(ctx), &account, query, walletID, currencyID)
	logQuery(query, []any{walletID, currencyID}, account.ID, err)
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// Create inserts the account unless the wallet already holds one in that
// currency, and returns the stored row in both cases.
func (r *WalletAccountRepository) Create(ctx context.Context, account *models.WalletAccount) (*models.WalletAccount, error) {
	const query = `
		INSERT INTO wallet_accounts (id, wallet_id, currency_id, balance, pending_amount, state, created_at, updated_at)
		VALUES (:id, :wallet_id, :currency_id, :balance, :pending_amount, :state, :created_at, :updated_at)
		ON CONFLICT (wallet_id, currency_id) DO NOTHING
	`

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, account)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{account.ID, account.WalletID, account.CurrencyID}, rowsAffected, err)
	if err != nil {
		return nil, translate(err)
	}

	return r.GetByWalletAndCurrency(ctx, account.WalletID, account.CurrencyID)
}

// Update stores balance, pending amount and state.
func (r *WalletAccountRepository) Update(ctx context.Context, account *models.WalletAccount) error {
	const query = `
		UPDATE wallet_accounts
		SET balance = :balance, pending_amount = :pending_amount, state = :state, updated_at = :updated_at
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, account)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{account.ID, account.Balance, account.PendingAmount, account.State}, rowsAffected, err)
	if err != nil {
		return translate(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
