package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	tagDeposit  = "DEPOSIT"
	tagWithdraw = "WITHDRAW"
	tagTransfer = "TRANSFER"
	tagBRL      = "BRL"
)

// noon is outside the 22:00-06:00 night of the fixture limit types.
var noon = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type ledgerFixture struct {
	store      *memory.Store
	references *ReferenceService
	limits     *LimitVerifier
	balances   *BalanceManager
	ops        *OperationService
	userLimits *UserLimitService

	currency       models.Currency
	types          map[string]models.TransactionType
	withdrawLimit  models.LimitType
	transferLimit  models.LimitType
	withdrawGlobal models.GlobalLimit
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func defaultLimitValues() models.LimitValues {
	return models.LimitValues{
		MinAmount:        dec("100"),
		MaxAmount:        dec("5000"),
		MinAmountNightly: dec("10"),
		MaxAmountNightly: dec("1000"),
		NightlyLimit:     dec("5000"),
		DailyLimit:       dec("10000"),
		MonthlyLimit:     dec("50000"),
		YearlyLimit:      dec("100000"),
	}
}

func newLedgerFixture(t *testing.T, opEmitter OperationEventEmitter) *ledgerFixture {
	t.Helper()

	store := memory.New()
	f := &ledgerFixture{
		store: store,
		currency: models.Currency{
			ID: uuid.New(), Symbol: "R$", Tag: tagBRL, Decimal: 2, Title: "Real", CreatedAt: noon,
		},
		types: map[string]models.TransactionType{
			tagDeposit:  {ID: uuid.New(), Tag: tagDeposit, Participants: models.ParticipantsBeneficiary, State: models.TransactionTypeStateActive},
			tagWithdraw: {ID: uuid.New(), Tag: tagWithdraw, Participants: models.ParticipantsOwner, State: models.TransactionTypeStateActive},
			tagTransfer: {ID: uuid.New(), Tag: tagTransfer, Participants: models.ParticipantsOwnerAndBeneficiary, State: models.TransactionTypeStateActive},
		},
	}
	store.PutCurrency(f.currency)
	for _, tt := range f.types {
		store.PutTransactionType(tt)
	}

	f.withdrawLimit = models.LimitType{
		ID: uuid.New(), Tag: "WITHDRAW_BRL", CurrencyID: f.currency.ID, TransactionTypeID: f.types[tagWithdraw].ID,
		PeriodStart: models.PeriodStartDate, Check: models.LimitCheckOwner, NighttimeStart: "22:00", NighttimeEnd: "06:00",
	}
	f.transferLimit = models.LimitType{
		ID: uuid.New(), Tag: "TRANSFER_BRL", CurrencyID: f.currency.ID, TransactionTypeID: f.types[tagTransfer].ID,
		PeriodStart: models.PeriodStartDate, Check: models.LimitCheckOwner, NighttimeStart: "22:00", NighttimeEnd: "06:00",
	}
	f.withdrawGlobal = models.GlobalLimit{ID: uuid.New(), LimitTypeID: f.withdrawLimit.ID, LimitValues: defaultLimitValues()}
	store.PutLimitType(f.withdrawLimit)
	store.PutLimitType(f.transferLimit)
	store.PutGlobalLimit(f.withdrawGlobal)
	store.PutGlobalLimit(models.GlobalLimit{ID: uuid.New(), LimitTypeID: f.transferLimit.ID, LimitValues: defaultLimitValues()})

	f.references = NewReferenceService(store.Currencies(), store.TransactionTypes(), nil)
	f.limits = NewLimitVerifier(store.LimitTypes(), store.GlobalLimits(), store.UserLimits(), store.UserLimitTrackers(), nil, LimitConfig{})
	f.balances = NewBalanceManager(store.WalletAccounts(), store.WalletAccountTransactions())
	f.ops = NewOperationService(
		OperationConfig{DefaultCurrencyTag: tagBRL, DefaultCurrencySymbol: "R$"},
		store, f.references, store.Users(), store.Wallets(), store.WalletAccounts(),
		store.Operations(), store.WalletAccountTransactions(), f.balances, f.limits, opEmitter,
	)
	f.userLimits = NewUserLimitService(store, store.GlobalLimits(), store.UserLimits(), nil)
	f.setClock(noon)
	return f
}

func (f *ledgerFixture) setClock(now time.Time) {
	clock := func() time.Time { return now }
	f.limits.now = clock
	f.balances.now = clock
	f.ops.now = clock
	f.userLimits.now = clock
}

// addWallet creates an active user and wallet with a BRL account holding balance.
func (f *ledgerFixture) addWallet(t *testing.T, balance string) (models.Wallet, models.WalletAccount) {
	t.Helper()

	user := models.User{ID: uuid.New(), State: models.UserStateActive, CreatedAt: noon.AddDate(-1, 0, 0)}
	wallet := models.Wallet{ID: uuid.New(), UserID: user.ID, Name: "main", State: models.WalletStateActive, CreatedAt: user.CreatedAt}
	account := models.WalletAccount{
		ID: uuid.New(), WalletID: wallet.ID, CurrencyID: f.currency.ID,
		Balance: dec(balance), State: models.WalletStateActive, CreatedAt: user.CreatedAt, UpdatedAt: user.CreatedAt,
	}
	f.store.PutUser(user)
	f.store.PutWallet(wallet)
	f.store.PutWalletAccount(account)
	return wallet, account
}

func (f *ledgerFixture) account(t *testing.T, id uuid.UUID) *models.WalletAccount {
	t.Helper()
	account, err := f.balances.GetWalletAccount(context.Background(), id)
	require.NoError(t, err)
	return account
}

func withdrawRequest(wallet uuid.UUID, value string) CreateOperationRequest {
	return CreateOperationRequest{
		ID:             uuid.New(),
		TransactionTag: tagWithdraw,
		CurrencyTag:    tagBRL,
		RawValue:       dec(value),
		OwnerWalletID:  &wallet,
	}
}

func transferRequest(from, to uuid.UUID, value, fee string) CreateOperationRequest {
	return CreateOperationRequest{
		ID:                  uuid.New(),
		TransactionTag:      tagTransfer,
		CurrencyTag:         tagBRL,
		RawValue:            dec(value),
		Fee:                 dec(fee),
		OwnerWalletID:       &from,
		BeneficiaryWalletID: &to,
	}
}

func depositRequest(wallet uuid.UUID, value string) CreateOperationRequest {
	return CreateOperationRequest{
		ID:                  uuid.New(),
		TransactionTag:      tagDeposit,
		RawValue:            dec(value),
		BeneficiaryWalletID: &wallet,
	}
}
