package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingOperationReaper_RunOnce(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, nil)
	wallet, account := f.addWallet(t, "5000")

	stale, err := f.ops.CreateOperation(ctx, withdrawRequest(wallet.ID, "300"))
	require.NoError(t, err)

	f.setClock(noon.Add(50 * time.Minute))
	fresh, err := f.ops.CreateOperation(ctx, withdrawRequest(wallet.ID, "200"))
	require.NoError(t, err)
	accepted, err := f.ops.CreateAndAcceptOperation(ctx, withdrawRequest(wallet.ID, "100"))
	require.NoError(t, err)

	reaper := NewPendingOperationReaper(f.store.Operations(), f.ops, 30*time.Minute, time.Minute)
	reaper.now = func() time.Time { return noon.Add(time.Hour) }

	reverted, err := reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, reverted)

	for id, want := range map[uuid.UUID]models.OperationState{
		stale.ID:    models.OperationStateReverted,
		fresh.ID:    models.OperationStatePending,
		accepted.ID: models.OperationStateAccepted,
	} {
		op, err := f.ops.GetOperation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, op.State)
	}
	assert.True(t, f.account(t, account.ID).PendingAmount.Equal(dec("200")))

	reverted, err = reaper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, reverted)
}

func TestPendingOperationReaper_RunStopsOnCancel(t *testing.T) {
	f := newLedgerFixture(t, nil)
	reaper := NewPendingOperationReaper(f.store.Operations(), f.ops, time.Minute, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, reaper.Run(ctx))
}
