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

// ReferenceService resolves currencies and transaction types, reading
// through the cache when one is configured.
type ReferenceService struct {
	currencies       CurrencyReader
	transactionTypes TransactionTypeReader
	cache            ReferenceCache
}

// NewReferenceService creates a new ReferenceService. cache may be nil.
func NewReferenceService(currencies CurrencyReader, transactionTypes TransactionTypeReader, cache ReferenceCache) *ReferenceService {
	return &ReferenceService{
		currencies:       currencies,
		transactionTypes: transactionTypes,
		cache:            cache,
	}
}

// Currency returns the currency with the given tag.
func (s *ReferenceService) Currency(ctx context.Context, tag string) (*models.Currency, error) {
	if s.cache != nil {
		if currency, err := s.cache.GetCurrency(ctx, tag); err == nil {
			return currency, nil
		}
	}

	currency, err := s.currencies.GetByTag(ctx, tag)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrCurrencyNotFound, tag)
		}
		logger.Log.Errorw("failed to get currency", "tag", tag, "error", err)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCurrency(ctx, currency); err != nil {
			logger.Log.Errorw("failed to cache currency", "tag", tag, "error", err)
		}
	}
	return currency, nil
}

// CurrencyByID returns the currency with the given id.
func (s *ReferenceService) CurrencyByID(ctx context.Context, id uuid.UUID) (*models.Currency, error) {
	currency, err := s.currencies.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrCurrencyNotFound, id)
	}
	return currency, err
}

// TransactionType returns the active transaction type with the given tag.
func (s *ReferenceService) TransactionType(ctx context.Context, tag string) (*models.TransactionType, error) {
	var tt *models.TransactionType
	if s.cache != nil {
		if cached, err := s.cache.GetTransactionType(ctx, tag); err == nil {
			tt = cached
		}
	}

	if tt == nil {
		found, err := s.transactionTypes.GetByTag(ctx, tag)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", apperrors.ErrTransactionTypeNotFound, tag)
			}
			logger.Log.Errorw("failed to get transaction type", "tag", tag, "error", err)
			return nil, err
		}
		tt = found

		if s.cache != nil {
			if err := s.cache.SetTransactionType(ctx, tt); err != nil {
				logger.Log.Errorw("failed to cache transaction type", "tag", tag, "error", err)
			}
		}
	}

	if tt.State != models.TransactionTypeStateActive {
		return nil, fmt.Errorf("%w: %s is deactivated", apperrors.ErrTransactionTypeNotFound, tag)
	}
	return tt, nil
}

// TransactionTypeByID returns the transaction type with the given id, active or not.
func (s *ReferenceService) TransactionTypeByID(ctx context.Context, id uuid.UUID) (*models.TransactionType, error) {
	tt, err := s.transactionTypes.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTransactionTypeNotFound, id)
	}
	return tt, err
}
