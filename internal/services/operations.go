package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/apperrors"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
	"github.com/shopspring/decimal"
)

const defaultMaxRetries = 3

// OperationConfig holds the values the operation service is configured with.
type OperationConfig struct {
	DefaultCurrencyTag    string // Used when a request names no currency
	DefaultCurrencySymbol string
	MaxWalletsPerUser     int // Handed to wallet provisioning, not enforced here
	MaxRetries            int // Attempts on tracker version conflicts
}

// CreateOperationRequest describes an operation to create.
type CreateOperationRequest struct {
	ID                     uuid.UUID // Caller supplied, makes the request idempotent
	TransactionTag         string
	CurrencyTag            string
	RawValue               decimal.Decimal
	Fee                    decimal.Decimal
	Description            string
	OwnerWalletID          *uuid.UUID
	BeneficiaryWalletID    *uuid.UUID
	OperationRefID         *uuid.UUID // Accepted operation this one gives back
	AllowAvailableRawValue bool
}

// OperationService runs the create / accept / revert protocol.
type OperationService struct {
	cfg        OperationConfig
	tx         Transactor
	references *ReferenceService
	users      UserReader
	wallets    WalletReader
	accounts   WalletAccountRepository
	ops        OperationRepository
	ledger     WalletAccountTransactionRepository
	balances   *BalanceManager
	limits     *LimitVerifier
	emitter    OperationEventEmitter
	now        func() time.Time
}

// NewOperationService creates a new OperationService.
func NewOperationService(
	cfg OperationConfig,
	tx Transactor,
	references *ReferenceService,
	users UserReader,
	wallets WalletReader,
	accounts WalletAccountRepository,
	ops OperationRepository,
	ledger WalletAccountTransactionRepository,
	balances *BalanceManager,
	limits *LimitVerifier,
	emitter OperationEventEmitter,
) *OperationService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if emitter == nil {
		emitter = NoopEventEmitter{}
	}
	return &OperationService{
		cfg:        cfg,
		tx:         tx,
		references: references,
		users:      users,
		wallets:    wallets,
		accounts:   accounts,
		ops:        ops,
		ledger:     ledger,
		balances:   balances,
		limits:     limits,
		emitter:    emitter,
		now:        time.Now,
	}
}

// prepared is a validated request with every reference resolved.
type prepared struct {
	op       models.Operation
	limits   []PreparedLimit
	existing *models.Operation // Set when the id was already used with the same payload
}

// GetOperation returns an operation by id.
func (s *OperationService) GetOperation(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	op, err := s.ops.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrOperationNotFound, id)
	}
	return op, err
}

// CreateOperation validates the request, checks limits and reserves the
// operation value on the owner account. The operation is stored PENDING.
// Repeating a request returns the stored operation.
func (s *OperationService) CreateOperation(ctx context.Context, req CreateOperationRequest) (*models.Operation, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if p.existing != nil {
		return p.existing, nil
	}

	var op *models.Operation
	err = s.retry(ctx, req.ID, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			op, err = s.create(ctx, p)
			return err
		})
	})
	if errors.Is(err, repositories.ErrAlreadyExists) {
		return s.resolveRace(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.OperationEventCreated, op, nil)
	return op, nil
}

// AcceptOperation commits a PENDING operation: the owner is debited, then the
// beneficiary credited, both by the operation value. Accepting an ACCEPTED
// operation returns it unchanged. An unexpected failure declines the operation.
func (s *OperationService) AcceptOperation(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	op, err := s.GetOperation(ctx, id)
	if err != nil {
		return nil, err
	}
	switch op.State {
	case models.OperationStateAccepted:
		return op, nil
	case models.OperationStatePending:
	default:
		return nil, fmt.Errorf("%w: %s is %s", apperrors.ErrOperationInvalidState, id, op.State)
	}

	var (
		rows     []models.WalletAccountTransaction
		accepted bool
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		op, rows, accepted, err = s.accept(ctx, id)
		return err
	})
	if err != nil {
		if !apperrors.IsDomain(err) {
			logger.Log.Errorw("failed to accept operation", "operation_id", id, "error", err)
			s.decline(ctx, id)
		}
		return nil, err
	}

	if accepted {
		s.emit(ctx, models.OperationEventAccepted, op, rows)
	}
	return op, nil
}

// CreateAndAcceptOperation creates and accepts an operation in one
// transaction. A repeated request returns the stored operation, accepting it
// first if it is still PENDING.
func (s *OperationService) CreateAndAcceptOperation(ctx context.Context, req CreateOperationRequest) (*models.Operation, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if p.existing != nil {
		return s.AcceptOperation(ctx, p.existing.ID)
	}

	var (
		op   *models.Operation
		rows []models.WalletAccountTransaction
	)
	err = s.retry(ctx, req.ID, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := s.create(ctx, p); err != nil {
				return err
			}
			var err error
			op, rows, _, err = s.accept(ctx, req.ID)
			return err
		})
	})
	if errors.Is(err, repositories.ErrAlreadyExists) {
		existing, err := s.resolveRace(ctx, req)
		if err != nil {
			return nil, err
		}
		return s.AcceptOperation(ctx, existing.ID)
	}
	if err != nil {
		return nil, err
	}

	created := *op
	created.State = models.OperationStatePending
	s.emit(ctx, models.OperationEventCreated, &created, nil)
	s.emit(ctx, models.OperationEventAccepted, op, rows)
	return op, nil
}

// RevertOperation cancels a PENDING operation: its reservation is released
// and its limit usage given back. Reverting a REVERTED operation returns it
// unchanged; any other state is an invalid transition.
func (s *OperationService) RevertOperation(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	op, err := s.GetOperation(ctx, id)
	if err != nil {
		return nil, err
	}
	switch op.State {
	case models.OperationStateReverted:
		return op, nil
	case models.OperationStatePending:
	default:
		return nil, fmt.Errorf("%w: %s is %s", apperrors.ErrOperationInvalidState, id, op.State)
	}

	limits, err := s.limitsOf(ctx, op)
	if err != nil {
		return nil, err
	}

	var reverted bool
	err = s.retry(ctx, id, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			op, reverted, err = s.cancel(ctx, id, limits, models.OperationStateReverted)
			return err
		})
	})
	if err != nil {
		logger.Log.Errorw("failed to revert operation", "operation_id", id, "error", err)
		return nil, err
	}

	if reverted {
		s.emit(ctx, models.OperationEventReverted, op, nil)
	}
	return op, nil
}

// decline releases a PENDING operation after an unexpected accept failure
// and marks it DECLINED.
func (s *OperationService) decline(ctx context.Context, id uuid.UUID) {
	op, err := s.GetOperation(ctx, id)
	if err != nil {
		logger.Log.Errorw("failed to load operation to decline", "operation_id", id, "error", err)
		return
	}
	limits, err := s.limitsOf(ctx, op)
	if err != nil {
		logger.Log.Errorw("failed to resolve limits to decline", "operation_id", id, "error", err)
		return
	}

	var declined bool
	err = s.retry(ctx, id, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			op, declined, err = s.cancel(ctx, id, limits, models.OperationStateDeclined)
			return err
		})
	})
	if err != nil {
		logger.Log.Errorw("failed to decline operation", "operation_id", id, "error", err)
		return
	}

	if declined {
		logger.Log.Warnw("operation declined", "operation_id", id)
		s.emit(ctx, models.OperationEventDeclined, op, nil)
	}
}

// create stores p.op PENDING, checks limits and reserves the value. It runs
// inside a transaction.
func (s *OperationService) create(ctx context.Context, p *prepared) (*models.Operation, error) {
	op := p.op
	now := s.now()
	op.CreatedAt = now
	op.UpdatedAt = now

	accounts, err := s.balances.Lock(ctx, legs(&op)...)
	if err != nil {
		return nil, err
	}

	if err := s.ops.Create(ctx, &op); err != nil {
		if !errors.Is(err, repositories.ErrAlreadyExists) {
			logger.Log.Errorw("failed to create operation", "operation_id", op.ID, "error", err)
		}
		return nil, err
	}

	usage, err := s.limits.Evaluate(ctx, p.limits, op.RawValue, now)
	if err != nil {
		return nil, err
	}

	if op.OwnerWalletAccountID != nil {
		owner := accounts[*op.OwnerWalletAccountID]
		if err := s.balances.Reserve(ctx, owner, op.Value, op.AllowAvailableRawValue); err != nil {
			return nil, err
		}
	}
	if op.BeneficiaryWalletAccountID != nil {
		if beneficiary := accounts[*op.BeneficiaryWalletAccountID]; beneficiary.State != models.WalletStateActive {
			return nil, fmt.Errorf("%w: account %s", apperrors.ErrWalletNotActive, beneficiary.ID)
		}
	}

	if err := s.limits.Apply(ctx, usage); err != nil {
		return nil, err
	}

	logger.Log.Infow("operation created", "operation_id", op.ID, "value", op.Value)
	return &op, nil
}

// accept commits the operation with the given id. It runs inside a
// transaction and reports whether this call did the transition.
func (s *OperationService) accept(ctx context.Context, id uuid.UUID) (*models.Operation, []models.WalletAccountTransaction, bool, error) {
	op, err := s.ops.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, false, fmt.Errorf("%w: %s", apperrors.ErrOperationNotFound, id)
		}
		return nil, nil, false, err
	}
	switch op.State {
	case models.OperationStateAccepted:
		return op, nil, false, nil
	case models.OperationStatePending:
	default:
		return nil, nil, false, fmt.Errorf("%w: %s is %s", apperrors.ErrOperationInvalidState, id, op.State)
	}

	accounts, err := s.balances.Lock(ctx, legs(op)...)
	if err != nil {
		return nil, nil, false, err
	}

	var rows []models.WalletAccountTransaction
	if op.OwnerWalletAccountID != nil {
		row, err := s.balances.Commit(ctx, accounts[*op.OwnerWalletAccountID], op.ID, op.Value, models.DirectionDebit)
		if err != nil {
			return nil, nil, false, err
		}
		rows = append(rows, *row)
	}
	if op.BeneficiaryWalletAccountID != nil {
		row, err := s.balances.Commit(ctx, accounts[*op.BeneficiaryWalletAccountID], op.ID, op.Value, models.DirectionCredit)
		if err != nil {
			return nil, nil, false, err
		}
		rows = append(rows, *row)
	}

	op.State = models.OperationStateAccepted
	op.UpdatedAt = s.now()
	if err := s.ops.Update(ctx, op); err != nil {
		return nil, nil, false, err
	}

	logger.Log.Infow("operation accepted", "operation_id", op.ID, "value", op.Value)
	return op, rows, true, nil
}

// cancel moves a PENDING operation to state, releasing its reservation and
// giving back its limit usage. It runs inside a transaction. Reaching an
// operation already in state is not an error.
func (s *OperationService) cancel(ctx context.Context, id uuid.UUID, limits []PreparedLimit, state models.OperationState) (*models.Operation, bool, error) {
	op, err := s.ops.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: %s", apperrors.ErrOperationNotFound, id)
		}
		return nil, false, err
	}
	switch op.State {
	case state:
		return op, false, nil
	case models.OperationStatePending:
	default:
		return nil, false, fmt.Errorf("%w: %s is %s", apperrors.ErrOperationInvalidState, id, op.State)
	}

	accounts, err := s.balances.Lock(ctx, legs(op)...)
	if err != nil {
		return nil, false, err
	}
	if op.OwnerWalletAccountID != nil {
		if err := s.balances.Release(ctx, accounts[*op.OwnerWalletAccountID], op.Value); err != nil {
			return nil, false, err
		}
	}

	if err := s.limits.GiveBack(ctx, limits, op.RawValue, op.CreatedAt); err != nil {
		return nil, false, err
	}

	op.State = state
	op.UpdatedAt = s.now()
	if err := s.ops.Update(ctx, op); err != nil {
		return nil, false, err
	}

	logger.Log.Infow("operation cancelled", "operation_id", op.ID, "state", state)
	return op, true, nil
}

// retry runs fn again while it fails on a tracker version conflict.
func (s *OperationService) retry(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err = fn(ctx); !errors.Is(err, repositories.ErrVersionConflict) {
			return err
		}
		logger.Log.Warnw("retrying after version conflict", "operation_id", id, "attempt", attempt)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// resolveRace handles a concurrent create with the same id that won the insert.
func (s *OperationService) resolveRace(ctx context.Context, req CreateOperationRequest) (*models.Operation, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if p.existing == nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateOperation, req.ID)
	}
	return p.existing, nil
}

func (s *OperationService) emit(ctx context.Context, event string, op *models.Operation, rows []models.WalletAccountTransaction) {
	err := s.emitter.EmitOperationEvent(ctx, models.OperationEvent{
		Event:        event,
		Operation:    *op,
		Transactions: rows,
		OccurredAt:   s.now(),
	})
	if err != nil {
		logger.Log.Errorw("failed to emit operation event", "event", event, "operation_id", op.ID, "error", err)
	}
}

// legs returns the wallet account ids an operation touches.
func legs(op *models.Operation) []uuid.UUID {
	var ids []uuid.UUID
	if op.OwnerWalletAccountID != nil {
		ids = append(ids, *op.OwnerWalletAccountID)
	}
	if op.BeneficiaryWalletAccountID != nil {
		ids = append(ids, *op.BeneficiaryWalletAccountID)
	}
	return ids
}
