package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/apperrors"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceManager_Reserve(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	_, seeded := f.addWallet(t, "100")

	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		accounts, err := f.balances.Lock(ctx, seeded.ID)
		require.NoError(t, err)
		account := accounts[seeded.ID]

		require.NoError(t, f.balances.Reserve(ctx, account, dec("80"), false))
		assert.ErrorIs(t, f.balances.Reserve(ctx, account, dec("30"), false), apperrors.ErrInsufficientBalance)
		require.NoError(t, f.balances.Reserve(ctx, account, dec("30"), true))
		return nil
	})
	require.NoError(t, err)

	account := f.account(t, seeded.ID)
	assert.True(t, account.Balance.Equal(dec("100")))
	assert.True(t, account.PendingAmount.Equal(dec("110")))
}

func TestBalanceManager_ReserveInactive(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	_, seeded := f.addWallet(t, "100")
	seeded.State = models.WalletStateDeactivate
	f.store.PutWalletAccount(seeded)

	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		accounts, err := f.balances.Lock(ctx, seeded.ID)
		if err != nil {
			return err
		}
		return f.balances.Reserve(ctx, accounts[seeded.ID], dec("10"), false)
	})
	assert.ErrorIs(t, err, apperrors.ErrWalletNotActive)
}

func TestBalanceManager_CommitAndRelease(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	_, seeded := f.addWallet(t, "0")
	opID := uuid.New()

	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		accounts, err := f.balances.Lock(ctx, seeded.ID, seeded.ID)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
		account := accounts[seeded.ID]

		credit, err := f.balances.Commit(ctx, account, opID, dec("50"), models.DirectionCredit)
		require.NoError(t, err)
		assert.True(t, credit.PreviousBalance.IsZero())
		assert.True(t, credit.UpdatedBalance.Equal(dec("50")))

		_, err = f.balances.Commit(ctx, account, opID, dec("20"), models.DirectionDebit)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState, "debit without reservation")

		require.NoError(t, f.balances.Reserve(ctx, account, dec("20"), false))
		debit, err := f.balances.Commit(ctx, account, opID, dec("20"), models.DirectionDebit)
		require.NoError(t, err)
		assert.True(t, debit.UpdatedBalance.Equal(dec("30")))

		require.NoError(t, f.balances.Reserve(ctx, account, dec("10"), false))
		require.NoError(t, f.balances.Release(ctx, account, dec("10")))
		assert.ErrorIs(t, f.balances.Release(ctx, account, dec("1")), apperrors.ErrInvalidState)
		return nil
	})
	require.NoError(t, err)

	account := f.account(t, seeded.ID)
	assert.True(t, account.Balance.Equal(dec("30")))
	assert.True(t, account.PendingAmount.IsZero())

	rows, err := f.balances.ListTransactions(ctx, seeded.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.DirectionCredit, rows[0].TransactionType)
	assert.Equal(t, models.DirectionDebit, rows[1].TransactionType)
}

func TestBalanceManager_LockMissing(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)

	err := f.store.WithinTx(ctx, func(ctx context.Context) error {
		_, err := f.balances.Lock(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, apperrors.ErrWalletAccountNotFound)

	_, err = f.balances.ListTransactions(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrWalletAccountNotFound)
}

func TestBalanceManager_Replay(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	a, accountA := f.addWallet(t, "0")
	b, _ := f.addWallet(t, "0")

	_, err := f.ops.CreateAndAcceptOperation(ctx, depositRequest(a.ID, "1000"))
	require.NoError(t, err)
	_, err = f.ops.CreateAndAcceptOperation(ctx, transferRequest(a.ID, b.ID, "300", "5"))
	require.NoError(t, err)
	_, err = f.ops.CreateAndAcceptOperation(ctx, withdrawRequest(a.ID, "200"))
	require.NoError(t, err)
	_, err = f.ops.CreateOperation(ctx, withdrawRequest(a.ID, "100"))
	require.NoError(t, err)

	replayed, err := f.balances.Replay(ctx, accountA.ID)
	require.NoError(t, err)
	assert.True(t, replayed.Equal(dec("505")))
	assert.True(t, f.account(t, accountA.ID).Balance.Equal(replayed))

	// An out-of-band change is detected.
	tampered := f.account(t, accountA.ID)
	tampered.Balance = dec("9999")
	f.store.PutWalletAccount(*tampered)

	_, err = f.balances.Replay(ctx, accountA.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}
