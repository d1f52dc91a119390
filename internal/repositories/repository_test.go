package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

func TestTranslate(t *testing.T) {
	other := errors.New("other")

	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(sql.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, translate(&pgconn.PgError{Code: uniqueViolation}), ErrAlreadyExists)
	assert.IsType(t, &pgconn.PgError{}, translate(&pgconn.PgError{Code: "23503"}))
	assert.Equal(t, other, translate(other))
}

func TestWalletAccountRepository_GetByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletAccountRepository(db, GetTxFromContext)

	id, walletID, currencyID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "wallet_id", "currency_id", "balance", "pending_amount", "state", "created_at", "updated_at"}).
		AddRow(id.String(), walletID.String(), currencyID.String(), "150.25", "10.00", "ACTIVE", now, now)
	mock.ExpectQuery(`SELECT .* FROM wallet_accounts WHERE id = \$1`).WithArgs(id).WillReturnRows(rows)

	acc, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, walletID, acc.WalletID)
	assert.True(t, acc.Balance.Equal(decimal.RequireFromString("150.25")))
	assert.True(t, acc.PendingAmount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, models.WalletStateActive, acc.State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletAccountRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletAccountRepository(db, GetTxFromContext)

	mock.ExpectQuery(`FROM wallet_accounts`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWalletAccountRepository_GetByIDForUpdate(t *testing.T) {
	t.Run("outside transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletAccountRepository(db, GetTxFromContext)

		_, err := repo.GetByIDForUpdate(context.Background(), uuid.New())
		assert.ErrorIs(t, err, ErrNoTransaction)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inside transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewWalletAccountRepository(db, GetTxFromContext)

		id := uuid.New()
		now := time.Now()
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM wallet_accounts WHERE id = \$1 FOR UPDATE`).WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "balance", "pending_amount", "state", "created_at", "updated_at"}).
				AddRow(id.String(), "5", "0", "ACTIVE", now, now))
		mock.ExpectCommit()

		err := NewTxManager(db).WithinTx(context.Background(), func(ctx context.Context) error {
			acc, err := repo.GetByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			assert.True(t, acc.Balance.Equal(decimal.NewFromInt(5)))
			return nil
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWalletAccountRepository_UpdateNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewWalletAccountRepository(db, GetTxFromContext)

	mock.ExpectExec(`UPDATE wallet_accounts`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.WalletAccount{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOperationRepository_CreateDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOperationRepository(db, GetTxFromContext)

	mock.ExpectExec(`INSERT INTO operations`).WillReturnError(&pgconn.PgError{Code: uniqueViolation})

	err := repo.Create(context.Background(), &models.Operation{
		ID:       uuid.New(),
		State:    models.OperationStatePending,
		RawValue: decimal.NewFromInt(10),
		Value:    decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOperationRepository_ListPendingBefore(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOperationRepository(db, GetTxFromContext)

	cutoff := time.Now()
	id := uuid.New()
	mock.ExpectQuery(`FROM operations\s+WHERE state = \$1 AND created_at < \$2\s+ORDER BY created_at\s+LIMIT \$3`).
		WithArgs(models.OperationStatePending, cutoff, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "state", "raw_value", "fee", "value", "created_at"}).
			AddRow(id.String(), "PENDING", "10", "0", "10", cutoff.Add(-time.Hour)))

	ops, err := repo.ListPendingBefore(context.Background(), cutoff, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, id, ops[0].ID)
	assert.Equal(t, models.OperationStatePending, ops[0].State)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserLimitTrackerRepository_Update(t *testing.T) {
	t.Run("bumps version", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserLimitTrackerRepository(db, GetTxFromContext)

		mock.ExpectExec(`UPDATE user_limit_trackers .* WHERE id = \? AND version = \?`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		tracker := &models.UserLimitTracker{ID: uuid.New(), Version: 3}
		require.NoError(t, repo.Update(context.Background(), tracker))
		assert.EqualValues(t, 4, tracker.Version)
	})

	t.Run("stale version", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserLimitTrackerRepository(db, GetTxFromContext)

		mock.ExpectExec(`UPDATE user_limit_trackers`).WillReturnResult(sqlmock.NewResult(0, 0))

		tracker := &models.UserLimitTracker{ID: uuid.New(), Version: 3}
		assert.ErrorIs(t, repo.Update(context.Background(), tracker), ErrVersionConflict)
		assert.EqualValues(t, 3, tracker.Version)
	})
}

func TestLimitTypeRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewLimitTypeRepository(db, GetTxFromContext)

	currencyID, ttID := uuid.New(), uuid.New()
	mock.ExpectQuery(`FROM limit_types\s+WHERE currency_id = \$1 AND transaction_type_id = \$2`).
		WithArgs(currencyID, ttID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tag", "check_side", "period_start", "nighttime_start", "nighttime_end"}).
			AddRow(uuid.New().String(), "WITHDRAW_REAL", "OWNER", "DATE", "22:00", "06:00"))

	lts, err := repo.ListByCurrencyAndTransactionType(context.Background(), currencyID, ttID)
	require.NoError(t, err)
	require.Len(t, lts, 1)
	assert.Equal(t, models.LimitCheckOwner, lts[0].Check)
	assert.Equal(t, models.PeriodStartDate, lts[0].PeriodStart)
}

func TestCurrencyRepository_GetByTag(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCurrencyRepository(db, GetTxFromContext)

	id := uuid.New()
	mock.ExpectQuery(`FROM currencies WHERE tag = \$1`).WithArgs("REAL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "symbol", "tag", "decimal_places", "title", "created_at"}).
			AddRow(id.String(), "R$", "REAL", 2, "Brazilian real", time.Now()))

	c, err := repo.GetByTag(context.Background(), "REAL")
	require.NoError(t, err)
	assert.Equal(t, id, c.ID)
	assert.EqualValues(t, 2, c.Decimal)
}
