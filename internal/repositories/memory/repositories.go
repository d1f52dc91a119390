package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
)

type CurrencyRepository struct{ s *Store }

func (s *Store) Currencies() *CurrencyRepository { return &CurrencyRepository{s} }

func (r *CurrencyRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Currency, error) {
	return read(r.s, r.s.currencies, id)
}

func (r *CurrencyRepository) GetByTag(_ context.Context, tag string) (*models.Currency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.currencies {
		if c.Tag == tag {
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type TransactionTypeRepository struct{ s *Store }

func (s *Store) TransactionTypes() *TransactionTypeRepository { return &TransactionTypeRepository{s} }

func (r *TransactionTypeRepository) GetByID(_ context.Context, id uuid.UUID) (*models.TransactionType, error) {
	return read(r.s, r.s.transactionTypes, id)
}

func (r *TransactionTypeRepository) GetByTag(_ context.Context, tag string) (*models.TransactionType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, tt := range r.s.transactionTypes {
		if tt.Tag == tag {
			return &tt, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type UserRepository struct{ s *Store }

func (s *Store) Users() *UserRepository { return &UserRepository{s} }

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return read(r.s, r.s.users, id)
}

type WalletRepository struct{ s *Store }

func (s *Store) Wallets() *WalletRepository { return &WalletRepository{s} }

func (r *WalletRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	return read(r.s, r.s.wallets, id)
}

type WalletAccountRepository struct{ s *Store }

func (s *Store) WalletAccounts() *WalletAccountRepository { return &WalletAccountRepository{s} }

func (r *WalletAccountRepository) GetByID(_ context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	return read(r.s, r.s.walletAccounts, id)
}

func (r *WalletAccountRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WalletAccount, error) {
	if err := r.s.lock(ctx, "wallet_accounts:"+id.String()); err != nil {
		return nil, err
	}
	return read(r.s, r.s.walletAccounts, id)
}

func (r *WalletAccountRepository) GetByWalletAndCurrency(_ context.Context, walletID, currencyID uuid.UUID) (*models.WalletAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.find(walletID, currencyID)
}

func (r *WalletAccountRepository) find(walletID, currencyID uuid.UUID) (*models.WalletAccount, error) {
	for _, a := range r.s.walletAccounts {
		if a.WalletID == walletID && a.CurrencyID == currencyID {
			return &a, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *WalletAccountRepository) Create(ctx context.Context, account *models.WalletAccount) (*models.WalletAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, err := r.find(account.WalletID, account.CurrencyID); err == nil {
		return existing, nil
	}
	write(ctx, r.s.walletAccounts, account.ID, *account)
	stored := *account
	return &stored, nil
}

func (r *WalletAccountRepository) Update(ctx context.Context, account *models.WalletAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.walletAccounts[account.ID]; !ok {
		return repositories.ErrNotFound
	}
	write(ctx, r.s.walletAccounts, account.ID, *account)
	return nil
}

type OperationRepository struct{ s *Store }

func (s *Store) Operations() *OperationRepository { return &OperationRepository{s} }

func (r *OperationRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Operation, error) {
	return read(r.s, r.s.operations, id)
}

func (r *OperationRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Operation, error) {
	if err := r.s.lock(ctx, "operations:"+id.String()); err != nil {
		return nil, err
	}
	return read(r.s, r.s.operations, id)
}

func (r *OperationRepository) Create(ctx context.Context, op *models.Operation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.operations[op.ID]; ok {
		return repositories.ErrAlreadyExists
	}
	write(ctx, r.s.operations, op.ID, *op)
	return nil
}

func (r *OperationRepository) Update(ctx context.Context, op *models.Operation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.operations[op.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored.State = op.State
	stored.UpdatedAt = op.UpdatedAt
	write(ctx, r.s.operations, op.ID, stored)
	return nil
}

func (r *OperationRepository) ListPendingBefore(_ context.Context, t time.Time, limit int) ([]models.Operation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ops []models.Operation
	for _, op := range r.s.operations {
		if op.State == models.OperationStatePending && op.CreatedAt.Before(t) {
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].CreatedAt.Before(ops[j].CreatedAt) })
	if len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

type WalletAccountTransactionRepository struct{ s *Store }

func (s *Store) WalletAccountTransactions() *WalletAccountTransactionRepository {
	return &WalletAccountTransactionRepository{s}
}

func (r *WalletAccountTransactionRepository) Create(ctx context.Context, row *models.WalletAccountTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ledger[row.ID]; ok {
		return repositories.ErrAlreadyExists
	}
	r.s.seq++
	write(ctx, r.s.ledger, row.ID, ledgerRow{seq: r.s.seq, row: *row})
	return nil
}

func (r *WalletAccountTransactionRepository) ListByWalletAccount(_ context.Context, walletAccountID uuid.UUID) ([]models.WalletAccountTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []ledgerRow
	for _, lr := range r.s.ledger {
		if lr.row.WalletAccountID == walletAccountID {
			rows = append(rows, lr)
		}
	}
	return sortLedger(rows), nil
}

func (r *WalletAccountTransactionRepository) ListByOperation(_ context.Context, operationID uuid.UUID) ([]models.WalletAccountTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var rows []ledgerRow
	for _, lr := range r.s.ledger {
		if lr.row.OperationID == operationID {
			rows = append(rows, lr)
		}
	}
	return sortLedger(rows), nil
}

type LimitTypeRepository struct{ s *Store }

func (s *Store) LimitTypes() *LimitTypeRepository { return &LimitTypeRepository{s} }

func (r *LimitTypeRepository) GetByID(_ context.Context, id uuid.UUID) (*models.LimitType, error) {
	return read(r.s, r.s.limitTypes, id)
}

func (r *LimitTypeRepository) ListByCurrencyAndTransactionType(_ context.Context, currencyID, transactionTypeID uuid.UUID) ([]models.LimitType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var lts []models.LimitType
	for _, lt := range r.s.limitTypes {
		if lt.CurrencyID == currencyID && lt.TransactionTypeID == transactionTypeID {
			lts = append(lts, lt)
		}
	}
	sort.Slice(lts, func(i, j int) bool { return lts[i].Tag < lts[j].Tag })
	return lts, nil
}

type GlobalLimitRepository struct{ s *Store }

func (s *Store) GlobalLimits() *GlobalLimitRepository { return &GlobalLimitRepository{s} }

func (r *GlobalLimitRepository) GetByLimitType(_ context.Context, limitTypeID uuid.UUID) (*models.GlobalLimit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, gl := range r.s.globalLimits {
		if gl.LimitTypeID == limitTypeID {
			return &gl, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *GlobalLimitRepository) Update(ctx context.Context, gl *models.GlobalLimit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.globalLimits[gl.ID]; !ok {
		return repositories.ErrNotFound
	}
	write(ctx, r.s.globalLimits, gl.ID, *gl)
	return nil
}

type UserLimitRepository struct{ s *Store }

func (s *Store) UserLimits() *UserLimitRepository { return &UserLimitRepository{s} }

func (r *UserLimitRepository) GetByID(_ context.Context, id uuid.UUID) (*models.UserLimit, error) {
	return read(r.s, r.s.userLimits, id)
}

func (r *UserLimitRepository) GetByUserAndLimitType(_ context.Context, userID, limitTypeID uuid.UUID) (*models.UserLimit, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ul := range r.s.userLimits {
		if ul.UserID == userID && ul.LimitTypeID == limitTypeID {
			return &ul, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserLimitRepository) Create(ctx context.Context, ul *models.UserLimit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.userLimits {
		if existing.ID == ul.ID || (existing.UserID == ul.UserID && existing.LimitTypeID == ul.LimitTypeID) {
			return repositories.ErrAlreadyExists
		}
	}
	write(ctx, r.s.userLimits, ul.ID, *ul)
	return nil
}

func (r *UserLimitRepository) Update(ctx context.Context, ul *models.UserLimit) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.userLimits[ul.ID]; !ok {
		return repositories.ErrNotFound
	}
	write(ctx, r.s.userLimits, ul.ID, *ul)
	return nil
}

type UserLimitTrackerRepository struct{ s *Store }

func (s *Store) UserLimitTrackers() *UserLimitTrackerRepository {
	return &UserLimitTrackerRepository{s}
}

func (r *UserLimitTrackerRepository) GetByUserLimit(_ context.Context, userLimitID uuid.UUID) (*models.UserLimitTracker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.trackers {
		if t.UserLimitID == userLimitID {
			return &t, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *UserLimitTrackerRepository) Create(ctx context.Context, tracker *models.UserLimitTracker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.trackers {
		if existing.ID == tracker.ID || existing.UserLimitID == tracker.UserLimitID {
			return repositories.ErrAlreadyExists
		}
	}
	write(ctx, r.s.trackers, tracker.ID, *tracker)
	return nil
}

func (r *UserLimitTrackerRepository) Update(ctx context.Context, tracker *models.UserLimitTracker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.trackers[tracker.ID]
	if !ok || stored.Version != tracker.Version {
		return repositories.ErrVersionConflict
	}
	next := *tracker
	next.Version++
	write(ctx, r.s.trackers, tracker.ID, next)
	tracker.Version++
	return nil
}
