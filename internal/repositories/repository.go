package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
)

// Storage errors shared by the SQL and in-memory implementations.
var (
	ErrNotFound        = errors.New("record not found")
	ErrAlreadyExists   = errors.New("record already exists")
	ErrVersionConflict = errors.New("record version conflict")
	ErrNoTransaction   = errors.New("row lock requested outside of a transaction")
)

const uniqueViolation = "23505"

// TxGetter extracts the active transaction from a context.
type TxGetter func(ctx context.Context) *sqlx.Tx

// base picks the executor for a statement: the context transaction when one
// is running, the pool otherwise.
type base struct {
	db       *sqlx.DB
	txGetter TxGetter
}

func (b base) ext(ctx context.Context) sqlx.ExtContext {
	if b.txGetter != nil {
		if tx := b.txGetter(ctx); tx != nil {
			return tx
		}
	}
	return b.db
}

func (b base) tx(ctx context.Context) (*sqlx.Tx, error) {
	if b.txGetter != nil {
		if tx := b.txGetter(ctx); tx != nil {
			return tx, nil
		}
	}
	return nil, ErrNoTransaction
}

// logQuery logs a statement on a single line with its arguments and outcome.
func logQuery(query string, args []any, result any, err error) {
	logger.Log.Infow("query",
		"sql", strings.Join(strings.Fields(query), " "),
		"args", args,
		"result", result,
		"error", err,
	)
}

// translate maps driver errors to storage errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}
