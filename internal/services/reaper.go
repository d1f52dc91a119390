package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

const reaperBatchSize = 100

// OperationReverter reverts pending operations.
type OperationReverter interface {
	RevertOperation(ctx context.Context, id uuid.UUID) (*models.Operation, error)
}

// PendingOperationReaper reverts operations left PENDING longer than a TTL.
type PendingOperationReaper struct {
	ops      OperationRepository
	reverter OperationReverter
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewPendingOperationReaper creates a new PendingOperationReaper.
func NewPendingOperationReaper(ops OperationRepository, reverter OperationReverter, ttl, interval time.Duration) *PendingOperationReaper {
	return &PendingOperationReaper{
		ops:      ops,
		reverter: reverter,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// RunOnce reverts every expired operation and returns how many were reverted.
// Failures on single operations are logged and skipped.
func (r *PendingOperationReaper) RunOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.ttl)
	reverted := 0
	skipped := make(map[uuid.UUID]bool)

	for {
		limit := reaperBatchSize + len(skipped)
		ops, err := r.ops.ListPendingBefore(ctx, cutoff, limit)
		if err != nil {
			logger.Log.Errorw("failed to list pending operations", "error", err)
			return reverted, err
		}

		progressed := false
		for _, op := range ops {
			if skipped[op.ID] {
				continue
			}
			if _, err := r.reverter.RevertOperation(ctx, op.ID); err != nil {
				logger.Log.Errorw("failed to revert expired operation", "operation_id", op.ID, "error", err)
				skipped[op.ID] = true
				continue
			}
			progressed = true
			reverted++
		}

		if !progressed || len(ops) < limit {
			break
		}
		if ctx.Err() != nil {
			return reverted, ctx.Err()
		}
	}

	if reverted > 0 {
		logger.Log.Infow("expired operations reverted", "count", reverted, "cutoff", cutoff)
	}
	return reverted, nil
}

// Run calls RunOnce every interval until ctx is done.
func (r *PendingOperationReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Log.Errorw("reaper run failed", "error", err)
			}
		}
	}
}
