package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-operation-ledger/internal/apperrors"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
	"github.com/sbilibin2017/gw-operation-ledger/internal/repositories"
)

// prepare validates req and resolves everything it refers to. No row lock is
// taken; wallet accounts missing for the currency are provisioned.
func (s *OperationService) prepare(ctx context.Context, req CreateOperationRequest) (*prepared, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	tt, err := s.references.TransactionType(ctx, req.TransactionTag)
	if err != nil {
		return nil, err
	}
	currency, err := s.currency(ctx, req.CurrencyTag)
	if err != nil {
		return nil, err
	}

	if !currency.HasScale(req.RawValue) {
		return nil, apperrors.InvalidValue("raw_value", fmt.Sprintf("exceeds %d decimal places of %s", currency.Decimal, currency.Tag))
	}
	if !currency.HasScale(req.Fee) {
		return nil, apperrors.InvalidValue("fee", fmt.Sprintf("exceeds %d decimal places of %s", currency.Decimal, currency.Tag))
	}

	switch {
	case tt.Participants.HasOwner() && req.OwnerWalletID == nil:
		return nil, apperrors.MissingData("owner_wallet_id")
	case !tt.Participants.HasOwner() && req.OwnerWalletID != nil:
		return nil, apperrors.InvalidValue("owner_wallet_id", "not allowed for "+tt.Tag)
	case tt.Participants.HasBeneficiary() && req.BeneficiaryWalletID == nil:
		return nil, apperrors.MissingData("beneficiary_wallet_id")
	case !tt.Participants.HasBeneficiary() && req.BeneficiaryWalletID != nil:
		return nil, apperrors.InvalidValue("beneficiary_wallet_id", "not allowed for "+tt.Tag)
	}

	existing, err := s.ops.GetByID(ctx, req.ID)
	switch {
	case err == nil:
		same, err := s.sameRequest(ctx, existing, req, tt, currency)
		if err != nil {
			return nil, err
		}
		if !same {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateOperation, req.ID)
		}
		return &prepared{existing: existing}, nil
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	if req.OperationRefID != nil {
		ref, err := s.GetOperation(ctx, *req.OperationRefID)
		if err != nil {
			return nil, err
		}
		if ref.State != models.OperationStateAccepted {
			return nil, fmt.Errorf("%w: referenced operation %s is %s", apperrors.ErrOperationInvalidState, ref.ID, ref.State)
		}
	}

	p := &prepared{
		op: models.Operation{
			ID:                     req.ID,
			State:                  models.OperationStatePending,
			TransactionTypeID:      tt.ID,
			CurrencyID:             currency.ID,
			RawValue:               req.RawValue,
			Fee:                    req.Fee,
			Value:                  req.RawValue.Sub(req.Fee),
			Description:            req.Description,
			OperationRefID:         req.OperationRefID,
			AllowAvailableRawValue: req.AllowAvailableRawValue,
		},
	}

	var owner, beneficiary *models.User
	if req.OwnerWalletID != nil {
		user, account, err := s.side(ctx, *req.OwnerWalletID, currency)
		if err != nil {
			return nil, err
		}
		owner = user
		p.op.OwnerWalletAccountID = &account.ID
	}
	if req.BeneficiaryWalletID != nil {
		user, account, err := s.side(ctx, *req.BeneficiaryWalletID, currency)
		if err != nil {
			return nil, err
		}
		beneficiary = user
		p.op.BeneficiaryWalletAccountID = &account.ID
	}

	p.limits, err = s.limits.Prepare(ctx, currency.ID, tt.ID, owner, beneficiary)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func validateRequest(req CreateOperationRequest) error {
	switch {
	case req.ID == uuid.Nil:
		return apperrors.MissingData("id")
	case req.TransactionTag == "":
		return apperrors.MissingData("transaction_tag")
	case req.RawValue.IsZero():
		return apperrors.MissingData("raw_value")
	case req.RawValue.IsNegative():
		return apperrors.InvalidValue("raw_value", "must be positive")
	case req.Fee.IsNegative():
		return apperrors.InvalidValue("fee", "must not be negative")
	case req.Fee.GreaterThanOrEqual(req.RawValue):
		return apperrors.InvalidValue("fee", "must be lower than raw_value")
	}
	return nil
}

func (s *OperationService) currency(ctx context.Context, tag string) (*models.Currency, error) {
	if tag != "" {
		return s.references.Currency(ctx, tag)
	}
	if s.cfg.DefaultCurrencyTag == "" {
		return nil, apperrors.MissingData("currency_tag")
	}

	currency, err := s.references.Currency(ctx, s.cfg.DefaultCurrencyTag)
	if err != nil {
		return nil, err
	}
	if s.cfg.DefaultCurrencySymbol != "" && currency.Symbol != s.cfg.DefaultCurrencySymbol {
		logger.Log.Warnw("default currency symbol mismatch",
			"tag", currency.Tag, "symbol", currency.Symbol, "configured", s.cfg.DefaultCurrencySymbol)
	}
	return currency, nil
}

// side resolves the user and the wallet account of one operation side,
// provisioning the account on first use of the currency.
func (s *OperationService) side(ctx context.Context, walletID uuid.UUID, currency *models.Currency) (*models.User, *models.WalletAccount, error) {
	wallet, err := s.wallets.GetByID(ctx, walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrWalletNotFound, walletID)
		}
		return nil, nil, err
	}
	if wallet.State != models.WalletStateActive {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrWalletNotActive, walletID)
	}

	user, err := s.users.GetByID(ctx, wallet.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrUserNotFound, wallet.UserID)
		}
		return nil, nil, err
	}

	account, err := s.accounts.GetByWalletAndCurrency(ctx, walletID, currency.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		now := s.now()
		account, err = s.accounts.Create(ctx, &models.WalletAccount{
			ID:         uuid.New(),
			WalletID:   walletID,
			CurrencyID: currency.ID,
			State:      models.WalletStateActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err == nil {
			logger.Log.Infow("wallet account provisioned", "wallet_id", walletID, "currency", currency.Tag, "wallet_account_id", account.ID)
		}
	}
	if err != nil {
		logger.Log.Errorw("failed to resolve wallet account", "wallet_id", walletID, "currency", currency.Tag, "error", err)
		return nil, nil, err
	}
	if account.State != models.WalletStateActive {
		return nil, nil, fmt.Errorf("%w: account %s", apperrors.ErrWalletNotActive, account.ID)
	}
	return user, account, nil
}

// sameRequest reports whether op was created from an identical request.
func (s *OperationService) sameRequest(
	ctx context.Context,
	op *models.Operation,
	req CreateOperationRequest,
	tt *models.TransactionType,
	currency *models.Currency,
) (bool, error) {
	if op.TransactionTypeID != tt.ID || op.CurrencyID != currency.ID ||
		!op.RawValue.Equal(req.RawValue) || !op.Fee.Equal(req.Fee) ||
		op.Description != req.Description || op.AllowAvailableRawValue != req.AllowAvailableRawValue ||
		!sameID(op.OperationRefID, req.OperationRefID) {
		return false, nil
	}

	same, err := s.sameWallet(ctx, op.OwnerWalletAccountID, req.OwnerWalletID)
	if err != nil || !same {
		return false, err
	}
	return s.sameWallet(ctx, op.BeneficiaryWalletAccountID, req.BeneficiaryWalletID)
}

func (s *OperationService) sameWallet(ctx context.Context, accountID, walletID *uuid.UUID) (bool, error) {
	if accountID == nil || walletID == nil {
		return accountID == nil && walletID == nil, nil
	}
	account, err := s.accounts.GetByID(ctx, *accountID)
	if err != nil {
		return false, err
	}
	return account.WalletID == *walletID, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// limitsOf resolves the limits an existing operation was checked against.
func (s *OperationService) limitsOf(ctx context.Context, op *models.Operation) ([]PreparedLimit, error) {
	owner, err := s.accountUser(ctx, op.OwnerWalletAccountID)
	if err != nil {
		return nil, err
	}
	beneficiary, err := s.accountUser(ctx, op.BeneficiaryWalletAccountID)
	if err != nil {
		return nil, err
	}
	return s.limits.Prepare(ctx, op.CurrencyID, op.TransactionTypeID, owner, beneficiary)
}

func (s *OperationService) accountUser(ctx context.Context, accountID *uuid.UUID) (*models.User, error) {
	if accountID == nil {
		return nil, nil
	}
	account, err := s.accounts.GetByID(ctx, *accountID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.wallets.GetByID(ctx, account.WalletID)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, wallet.UserID)
}
