// Package memory keeps ledger state in process memory. It implements the same
// repositories as the SQL package, including row locks held until the end of
// the surrounding transaction and rollback of every write made inside it.
//
// Reads are not isolated: a transaction may observe rows written by another
// transaction that has not finished yet. Writers that need a stable view must
// take the row lock first.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
)

type ledgerRow struct {
	seq int64
	row models.WalletAccountTransaction
}

// Store is the in-memory database.
type Store struct {
	mu sync.Mutex

	currencies       map[uuid.UUID]models.Currency
	transactionTypes map[uuid.UUID]models.TransactionType
	users            map[uuid.UUID]models.User
	wallets          map[uuid.UUID]models.Wallet
	walletAccounts   map[uuid.UUID]models.WalletAccount
	operations       map[uuid.UUID]models.Operation
	ledger           map[uuid.UUID]ledgerRow
	limitTypes       map[uuid.UUID]models.LimitType
	globalLimits     map[uuid.UUID]models.GlobalLimit
	userLimits       map[uuid.UUID]models.UserLimit
	trackers         map[uuid.UUID]models.UserLimitTracker

	seq   int64
	locks map[string]*sync.Mutex
}

// New creates an empty store.
func New() *Store {
	return &Store{
		currencies:       make(map[uuid.UUID]models.Currency),
		transactionTypes: make(map[uuid.UUID]models.TransactionType),
		users:            make(map[uuid.UUID]models.User),
		wallets:          make(map[uuid.UUID]models.Wallet),
		walletAccounts:   make(map[uuid.UUID]models.WalletAccount),
		operations:       make(map[uuid.UUID]models.Operation),
		ledger:           make(map[uuid.UUID]ledgerRow),
		limitTypes:       make(map[uuid.UUID]models.LimitType),
		globalLimits:     make(map[uuid.UUID]models.GlobalLimit),
		userLimits:       make(map[uuid.UUID]models.UserLimit),
		trackers:         make(map[uuid.UUID]models.UserLimitTracker),
		locks:            make(map[string]*sync.Mutex),
	}
}

type txKey struct{}

type txState struct {
	held map[string]*sync.Mutex
	undo []func()
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// WithinTx runs fn as one unit of work. Writes are undone and row locks are
// released when fn fails or panics; locks are released after success too.
// A context already inside a transaction joins it.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txState{held: make(map[string]*sync.Mutex)}
	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			for i := len(tx.undo) - 1; i >= 0; i-- {
				tx.undo[i]()
			}
			s.mu.Unlock()
		}
		for _, m := range tx.held {
			m.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	committed = true
	return nil
}

// lock takes the row lock named key for the rest of the context transaction.
func (s *Store) lock(ctx context.Context, key string) error {
	tx := txFrom(ctx)
	if tx == nil {
		return repositories.ErrNoTransaction
	}
	if _, ok := tx.held[key]; ok {
		return nil
	}

	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()

	m.Lock()
	tx.held[key] = m
	return nil
}

// write stores v under id and, inside a transaction, remembers how to undo it.
// The caller holds s.mu.
func write[V any](ctx context.Context, m map[uuid.UUID]V, id uuid.UUID, v V) {
	old, existed := m[id]
	m[id] = v
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, func() {
			if existed {
				m[id] = old
			} else {
				delete(m, id)
			}
		})
	}
}

func read[V any](s *Store, m map[uuid.UUID]V, id uuid.UUID) (*V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := m[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &v, nil
}

// PutCurrency seeds a currency.
func (s *Store) PutCurrency(c models.Currency) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currencies[c.ID] = c
}

// PutTransactionType seeds a transaction type.
func (s *Store) PutTransactionType(tt models.TransactionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactionTypes[tt.ID] = tt
}

// PutUser seeds a user.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutWallet seeds a wallet.
func (s *Store) PutWallet(w models.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.ID] = w
}

// PutWalletAccount seeds a wallet account.
func (s *Store) PutWalletAccount(a models.WalletAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletAccounts[a.ID] = a
}

// PutLimitType seeds a limit type.
func (s *Store) PutLimitType(lt models.LimitType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limitTypes[lt.ID] = lt
}

// PutGlobalLimit seeds a global limit.
func (s *Store) PutGlobalLimit(gl models.GlobalLimit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalLimits[gl.ID] = gl
}

func sortLedger(rows []ledgerRow) []models.WalletAccountTransaction {
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	out := make([]models.WalletAccountTransaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.row)
	}
	return out
}
