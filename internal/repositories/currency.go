package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

const currencyColumns = `id, symbol, tag, decimal_places, title, created_at`

// CurrencyRepository reads currency reference data.
type CurrencyRepository struct {
	base
}

func NewCurrencyRepository(db *sqlx.DB, txGetter TxGetter) *CurrencyRepository {
	return &CurrencyRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the currency with the given id.
func (r *CurrencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE id = $1`

	var currency models.Currency
	err := sqlx.GetContext(ctx, r.ext(ctx), &currency, query, id)
	logQuery(query, []any{id}, currency.Tag, err)
	if err != nil {
		return nil, translate(err)
	}
	return &currency, nil
}

// GetByTag returns the currency with the given tag.
func (r *CurrencyRepository) GetByTag(ctx context.Context, tag string) (*models.Currency, error) {
	query := `SELECT ` + currencyColumns + ` FROM currencies WHERE tag = $1`

	var currency models.Currency
	err := sqlx.GetContext(ctx, r.ext(ctx), &currency, query, tag)
	logQuery(query, []any{tag}, currency.ID, err)
	if err != nil {
		return nil, translate(err)
	}
	return &currency, nil
}
