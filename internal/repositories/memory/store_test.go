package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
)

func seedAccount(s *Store, balance int64) models.WalletAccount {
	acc := models.WalletAccount{
		ID:         uuid.New(),
		WalletID:   uuid.New(),
		CurrencyID: uuid.New(),
		Balance:    decimal.NewFromInt(balance),
		State:      models.WalletStateActive,
	}
	s.PutWalletAccount(acc)
	return acc
}

func TestStore_RollbackUndoesWrites(t *testing.T) {
	s := New()
	acc := seedAccount(s, 100)
	ctx := context.Background()

	boom := errors.New("boom")
	opID := uuid.New()
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.WalletAccounts().GetByIDForUpdate(ctx, acc.ID)
		if err != nil {
			return err
		}
		locked.PendingAmount = decimal.NewFromInt(40)
		if err := s.WalletAccounts().Update(ctx, locked); err != nil {
			return err
		}
		if err := s.Operations().Create(ctx, &models.Operation{ID: opID, State: models.OperationStatePending}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.WalletAccounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.PendingAmount.IsZero())

	_, err = s.Operations().GetByID(ctx, opID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestStore_RollbackOnPanic(t *testing.T) {
	s := New()
	acc := seedAccount(s, 100)
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.WithinTx(ctx, func(ctx context.Context) error {
			locked, _ := s.WalletAccounts().GetByIDForUpdate(ctx, acc.ID)
			locked.Balance = decimal.Zero
			_ = s.WalletAccounts().Update(ctx, locked)
			panic("boom")
		})
	})

	got, err := s.WalletAccounts().GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))

	// the row lock was released
	err = s.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.WalletAccounts().GetByIDForUpdate(ctx, acc.ID)
		return err
	})
	assert.NoError(t, err)
}

func TestStore_LockOutsideTransaction(t *testing.T) {
	s := New()
	acc := seedAccount(s, 1)

	_, err := s.WalletAccounts().GetByIDForUpdate(context.Background(), acc.ID)
	assert.ErrorIs(t, err, repositories.ErrNoTransaction)
}

func TestStore_RowLockSerializesWriters(t *testing.T) {
	s := New()
	acc := seedAccount(s, 0)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithinTx(context.Background(), func(ctx context.Context) error {
				locked, err := s.WalletAccounts().GetByIDForUpdate(ctx, acc.ID)
				if err != nil {
					return err
				}
				locked.Balance = locked.Balance.Add(decimal.NewFromInt(1))
				return s.WalletAccounts().Update(ctx, locked)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.WalletAccounts().GetByID(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(workers)))
}

func TestStore_NestedTxJoinsOuter(t *testing.T) {
	s := New()
	acc := seedAccount(s, 10)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(outer context.Context) error {
		if _, err := s.WalletAccounts().GetByIDForUpdate(outer, acc.ID); err != nil {
			return err
		}
		// re-locking the same row inside the joined transaction does not block
		return s.WithinTx(outer, func(inner context.Context) error {
			_, err := s.WalletAccounts().GetByIDForUpdate(inner, acc.ID)
			return err
		})
	})
	assert.NoError(t, err)
}

func TestWalletAccountRepository_CreateReturnsExisting(t *testing.T) {
	s := New()
	ctx := context.Background()
	walletID, currencyID := uuid.New(), uuid.New()

	first, err := s.WalletAccounts().Create(ctx, &models.WalletAccount{ID: uuid.New(), WalletID: walletID, CurrencyID: currencyID})
	require.NoError(t, err)
	second, err := s.WalletAccounts().Create(ctx, &models.WalletAccount{ID: uuid.New(), WalletID: walletID, CurrencyID: currencyID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestOperationRepository_Memory(t *testing.T) {
	s := New()
	ctx := context.Background()
	ops := s.Operations()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		op := &models.Operation{ID: uuid.New(), State: models.OperationStatePending, CreatedAt: base.Add(time.Duration(-i) * time.Minute)}
		require.NoError(t, ops.Create(ctx, op))
		ids = append(ids, op.ID)
	}
	assert.ErrorIs(t, ops.Create(ctx, &models.Operation{ID: ids[0]}), repositories.ErrAlreadyExists)

	accepted, err := ops.GetByID(ctx, ids[1])
	require.NoError(t, err)
	accepted.State = models.OperationStateAccepted
	require.NoError(t, ops.Update(ctx, accepted))

	pending, err := ops.ListPendingBefore(ctx, base.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, ids[2], pending[0].ID, "oldest first")
	assert.Equal(t, ids[0], pending[1].ID)

	pending, err = ops.ListPendingBefore(ctx, base.Add(time.Second), 1)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	assert.ErrorIs(t, ops.Update(ctx, &models.Operation{ID: uuid.New()}), repositories.ErrNotFound)
}

func TestLedgerRepository_InsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	accountID, opID := uuid.New(), uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		row := &models.WalletAccountTransaction{ID: uuid.New(), WalletAccountID: accountID, OperationID: opID}
		require.NoError(t, s.WalletAccountTransactions().Create(ctx, row))
		ids = append(ids, row.ID)
	}

	rows, err := s.WalletAccountTransactions().ListByWalletAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i, r := range rows {
		assert.Equal(t, ids[i], r.ID)
	}

	byOp, err := s.WalletAccountTransactions().ListByOperation(ctx, opID)
	require.NoError(t, err)
	assert.Len(t, byOp, 5)
}

func TestUserLimitRepository_UniquePerUserAndType(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID, ltID := uuid.New(), uuid.New()

	require.NoError(t, s.UserLimits().Create(ctx, &models.UserLimit{ID: uuid.New(), UserID: userID, LimitTypeID: ltID}))
	err := s.UserLimits().Create(ctx, &models.UserLimit{ID: uuid.New(), UserID: userID, LimitTypeID: ltID})
	assert.ErrorIs(t, err, repositories.ErrAlreadyExists)
}

func TestUserLimitTrackerRepository_VersionConflict(t *testing.T) {
	s := New()
	ctx := context.Background()
	ulID := uuid.New()
	trackers := s.UserLimitTrackers()

	require.NoError(t, trackers.Create(ctx, &models.UserLimitTracker{ID: uuid.New(), UserLimitID: ulID}))
	assert.ErrorIs(t, trackers.Create(ctx, &models.UserLimitTracker{ID: uuid.New(), UserLimitID: ulID}), repositories.ErrAlreadyExists)

	a, err := trackers.GetByUserLimit(ctx, ulID)
	require.NoError(t, err)
	b, err := trackers.GetByUserLimit(ctx, ulID)
	require.NoError(t, err)

	a.DailySpent = decimal.NewFromInt(5)
	require.NoError(t, trackers.Update(ctx, a))
	assert.EqualValues(t, 1, a.Version)

	b.DailySpent = decimal.NewFromInt(7)
	assert.ErrorIs(t, trackers.Update(ctx, b), repositories.ErrVersionConflict)

	stored, err := trackers.GetByUserLimit(ctx, ulID)
	require.NoError(t, err)
	assert.True(t, stored.DailySpent.Equal(decimal.NewFromInt(5)))
	assert.EqualValues(t, 1, stored.Version)
}

func TestReferenceRepositories_Memory(t *testing.T) {
	s := New()
	ctx := context.Background()

	c := models.Currency{ID: uuid.New(), Tag: "REAL", Decimal: 2}
	s.PutCurrency(c)
	got, err := s.Currencies().GetByTag(ctx, "REAL")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	_, err = s.Currencies().GetByTag(ctx, "USD")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	lt := models.LimitType{ID: uuid.New(), Tag: "B", CurrencyID: c.ID, TransactionTypeID: uuid.New()}
	lt2 := lt
	lt2.ID, lt2.Tag = uuid.New(), "A"
	s.PutLimitType(lt)
	s.PutLimitType(lt2)
	lts, err := s.LimitTypes().ListByCurrencyAndTransactionType(ctx, c.ID, lt.TransactionTypeID)
	require.NoError(t, err)
	require.Len(t, lts, 2)
	assert.Equal(t, "A", lts[0].Tag)

	gl := models.GlobalLimit{ID: uuid.New(), LimitTypeID: lt.ID}
	s.PutGlobalLimit(gl)
	gl.DailyLimit = decimal.NewFromInt(99)
	require.NoError(t, s.GlobalLimits().Update(ctx, &gl))
	storedGL, err := s.GlobalLimits().GetByLimitType(ctx, lt.ID)
	require.NoError(t, err)
	assert.True(t, storedGL.DailyLimit.Equal(decimal.NewFromInt(99)))
}
