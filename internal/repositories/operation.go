package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

const operationColumns = `id, state, transaction_type_id, currency_id, raw_value, fee, value, description,
	owner_wallet_account_id, beneficiary_wallet_account_id, operation_ref_id, allow_available_raw_value,
	created_at, updated_at`

// OperationRepository persists operations.
type OperationRepository struct {
	base
}

func NewOperationRepository(db *sqlx.DB, txGetter TxGetter) *OperationRepository {
	return &OperationRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the operation with the given id.
func (r *OperationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1`

	var op models.Operation
	err := sqlx.GetContext(ctx, r.ext(ctx), &op, query, id)
	logQuery(query, []any{id}, op.State, err)
	if err != nil {
		return nil, translate(err)
	}
	return &op, nil
}

// GetByIDForUpdate returns the operation holding its row lock until the
// context transaction ends.
func (r *OperationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	tx, err := r.tx(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + operationColumns + ` FROM operations WHERE id = $1 FOR UPDATE`

	var op models.Operation
	err = tx.GetContext(ctx, &op, query, id)
	logQuery(query, []any{id}, op.State, err)
	if err != nil {
		return nil, translate(err)
	}
	return &op, nil
}

// Create inserts a new operation. A reused id yields ErrAlreadyExists.
func (r *OperationRepository) Create(ctx context.Context, op *models.Operation) error {
	const query = `
		INSERT INTO operations (id, state, transaction_type_id, currency_id, raw_value, fee, value, description,
			owner_wallet_account_id, beneficiary_wallet_account_id, operation_ref_id, allow_available_raw_value,
			created_at, updated_at)
		VALUES (:id, :state, :transaction_type_id, :currency_id, :raw_value, :fee, :value, :description,
			:owner_wallet_account_id, :beneficiary_wallet_account_id, :operation_ref_id, :allow_available_raw_value,
			:created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, op)
	logQuery(query, []any{op.ID, op.State, op.Value}, nil, err)
	return translate(err)
}

// Update stores the state of an operation.
func (r *OperationRepository) Update(ctx context.Context, op *models.Operation) error {
	const query = `
		UPDATE operations
		SET state = :state, updated_at = :updated_at
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, op)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{op.ID, op.State}, rowsAffected, err)
	if err != nil {
		return translate(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingBefore returns up to limit PENDING operations created before t, oldest first.
func (r *OperationRepository) ListPendingBefore(ctx context.Context, t time.Time, limit int) ([]models.Operation, error) {
	query := `SELECT ` + operationColumns + `
		FROM operations
		WHERE state = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`

	var ops []models.Operation
	err := sqlx.SelectContext(ctx, r.ext(ctx), &ops, query, models.OperationStatePending, t, limit)
	logQuery(query, []any{t, limit}, len(ops), err)
	return ops, translate(err)
}

const walletAccountTransactionColumns = `id, wallet_account_id, operation_id, transaction_type, value,
	previous_balance, updated_balance, created_at`

// WalletAccountTransactionRepository appends and reads ledger rows. Rows are
// never updated or deleted.
type WalletAccountTransactionRepository struct {
	base
}

func NewWalletAccountTransactionRepository(db *sqlx.DB, txGetter TxGetter) *WalletAccountTransactionRepository {
	return &WalletAccountTransactionRepository{base{db: db, txGetter: txGetter}}
}

// Create appends a ledger row.
func (r *WalletAccountTransactionRepository) Create(ctx context.Context, row *models.WalletAccountTransaction) error {
	const query = `
		INSERT INTO wallet_account_transactions (id, wallet_account_id, operation_id, transaction_type, value,
			previous_balance, updated_balance, created_at)
		VALUES (:id, :wallet_account_id, :operation_id, :transaction_type, :value,
			:previous_balance, :updated_balance, :created_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, row)
	logQuery(query, []any{row.ID, row.WalletAccountID, row.TransactionType, row.Value}, nil, err)
	return translate(err)
}

// ListByWalletAccount returns the rows of an account in insertion order.
func (r *WalletAccountTransactionRepository) ListByWalletAccount(ctx context.Context, walletAccountID uuid.UUID) ([]models.WalletAccountTransaction, error) {
	query := `SELECT ` + walletAccountTransactionColumns + `
		FROM wallet_account_transactions
		WHERE wallet_account_id = $1
		ORDER BY seq`

	var rows []models.WalletAccountTransaction
	err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, query, walletAccountID)
	logQuery(query, []any{walletAccountID}, len(rows), err)
	return rows, translate(err)
}

// ListByOperation returns the rows written by one operation in insertion order.
func (r *WalletAccountTransactionRepository) ListByOperation(ctx context.Context, operationID uuid.UUID) ([]models.WalletAccountTransaction, error) {
	query := `SELECT ` + walletAccountTransactionColumns + `
		FROM wallet_account_transactions
		WHERE operation_id = $1
		ORDER BY seq`

	var rows []models.WalletAccountTransaction
	err := sqlx.SelectContext(ctx, r.ext(ctx), &rows, query, operationID)
	logQuery(query, []any{operationID}, len(rows), err)
	return rows, translate(err)
}
