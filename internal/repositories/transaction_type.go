package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

const transactionTypeColumns = `id, tag, title, participants, state, created_at`

// TransactionTypeRepository reads transaction type reference data.
type TransactionTypeRepository struct {
	base
}

func NewTransactionTypeRepository(db *sqlx.DB, txGetter TxGetter) *TransactionTypeRepository {
	return &TransactionTypeRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the transaction type with the given id.
func (r *TransactionTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TransactionType, error) {
	query := `SELECT ` + transactionTypeColumns + ` FROM transaction_types WHERE id = $1`

	var tt models.TransactionType
	err := sqlx.GetContext(ctx, r.ext(ctx), &tt, query, id)
	logQuery(query, []any{id}, tt.Tag, err)
	if err != nil {
		return nil, translate(err)
	}
	return &tt, nil
}

// GetByTag returns the transaction type with the given tag.
func (r *TransactionTypeRepository) GetByTag(ctx context.Context, tag string) (*models.TransactionType, error) {
	query := `SELECT ` + transactionTypeColumns + ` FROM transaction_types WHERE tag = $1`

	var tt models.TransactionType
	err := sqlx.GetContext(ctx, r.ext(ctx), &tt, query, tag)
	logQuery(query, []any{tag}, tt.ID, err)
	if err != nil {
		return nil, translate(err)
	}
	return &tt, nil
}
