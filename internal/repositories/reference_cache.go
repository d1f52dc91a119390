package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

// ReferenceCacheRepository caches currency and transaction type reference data in Redis.
type ReferenceCacheRepository struct {
	client *redis.Client
	exp    time.Duration // expiration of cached entries
}

// NewReferenceCacheRepository creates a new repository instance with the given TTL.
func NewReferenceCacheRepository(client *redis.Client, expiration time.Duration) *ReferenceCacheRepository {
	return &ReferenceCacheRepository{
		client: client,
		exp:    expiration,
	}
}

func currencyKey(tag string) string        { return fmt.Sprintf("currency:%s", tag) }
func transactionTypeKey(tag string) string { return fmt.Sprintf("transaction_type:%s", tag) }

// GetCurrency returns a cached currency. A miss yields ErrNotFound.
func (r *ReferenceCacheRepository) GetCurrency(ctx context.Context, tag string) (*models.Currency, error) {
	var currency models.Currency
	if err := r.get(ctx, currencyKey(tag), &currency); err != nil {
		return nil, err
	}
	return &currency, nil
}

// SetCurrency caches a currency under its tag.
func (r *ReferenceCacheRepository) SetCurrency(ctx context.Context, currency *models.Currency) error {
	return r.set(ctx, currencyKey(currency.Tag), currency)
}

// GetTransactionType returns a cached transaction type. A miss yields ErrNotFound.
func (r *ReferenceCacheRepository) GetTransactionType(ctx context.Context, tag string) (*models.TransactionType, error) {
	var tt models.TransactionType
	if err := r.get(ctx, transactionTypeKey(tag), &tt); err != nil {
		return nil, err
	}
	return &tt, nil
}

// SetTransactionType caches a transaction type under its tag.
func (r *ReferenceCacheRepository) SetTransactionType(ctx context.Context, tt *models.TransactionType) error {
	return r.set(ctx, transactionTypeKey(tt.Tag), tt)
}

func (r *ReferenceCacheRepository) get(ctx context.Context, key string, dest any) error {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		logger.Log.Infow("cache get",
			"key", key,
			"error", err,
		)
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return err
	}

	if err := json.Unmarshal(val, dest); err != nil {
		logger.Log.Errorw("cache decode",
			"key", key,
			"error", err,
		)
		return err
	}

	logger.Log.Infow("cache get",
		"key", key,
		"result", "hit",
	)
	return nil
}

func (r *ReferenceCacheRepository) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = r.client.Set(ctx, key, data, r.exp).Err()

	logger.Log.Infow("cache set",
		"key", key,
		"error", err,
	)
	return err
}
