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

// LimitChanges maps tiers to their new values. Tiers left out keep their value.
type LimitChanges map[models.Tier]decimal.Decimal

var userTiers = []models.Tier{
	models.TierUserNightly, models.TierUserDaily, models.TierUserMonthly, models.TierUserYearly,
}

// UserLimitService edits global and user limits.
type UserLimitService struct {
	tx           Transactor
	globalLimits GlobalLimitRepository
	userLimits   UserLimitRepository
	emitter      UserLimitEventEmitter
	now          func() time.Time
}

// NewUserLimitService creates a new UserLimitService.
func NewUserLimitService(
	tx Transactor,
	globalLimits GlobalLimitRepository,
	userLimits UserLimitRepository,
	emitter UserLimitEventEmitter,
) *UserLimitService {
	if emitter == nil {
		emitter = NoopEventEmitter{}
	}
	return &UserLimitService{
		tx:           tx,
		globalLimits: globalLimits,
		userLimits:   userLimits,
		emitter:      emitter,
		now:          time.Now,
	}
}

// GetUserLimit returns a user limit by id.
func (s *UserLimitService) GetUserLimit(ctx context.Context, id uuid.UUID) (*models.UserLimit, error) {
	ul, err := s.userLimits.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUserLimitNotFound, id)
	}
	return ul, err
}

// UpdateUserLimitByAdmin changes the ceilings of a user limit. The tier order
// must hold afterwards. User sub-limits left above a lowered ceiling are
// clamped down to it.
func (s *UserLimitService) UpdateUserLimitByAdmin(ctx context.Context, id uuid.UUID, changes LimitChanges) (*models.UserLimit, error) {
	if err := checkChanges(changes, models.CeilingTiers); err != nil {
		return nil, err
	}

	return s.updateUserLimit(ctx, id, func(ul *models.UserLimit) error {
		for tier, value := range changes {
			ul.SetTier(tier, value)
		}
		if err := checkRules(ceilingRules, ul, changes); err != nil {
			return err
		}

		for sub, ceiling := range models.UserTierCeilings {
			if limit := ul.Tier(ceiling); ul.Tier(sub).GreaterThan(limit) {
				logger.Log.Infow("user sub-limit clamped",
					"user_limit_id", ul.ID, "tier", sub, "from", ul.Tier(sub), "to", limit)
				ul.SetTier(sub, limit)
			}
		}
		return nil
	})
}

// UpdateUserLimitByUser changes the sub-limits a user picked. Each must stay
// within its ceiling and nightly <= daily <= monthly <= yearly must hold.
func (s *UserLimitService) UpdateUserLimitByUser(ctx context.Context, id uuid.UUID, changes LimitChanges) (*models.UserLimit, error) {
	if err := checkChanges(changes, userTiers); err != nil {
		return nil, err
	}

	return s.updateUserLimit(ctx, id, func(ul *models.UserLimit) error {
		for tier, value := range changes {
			ul.SetTier(tier, value)
		}
		if err := checkRules(userCeilingRules, ul, changes); err != nil {
			return err
		}
		return checkRules(userRules, ul, changes)
	})
}

func (s *UserLimitService) updateUserLimit(ctx context.Context, id uuid.UUID, apply func(ul *models.UserLimit) error) (*models.UserLimit, error) {
	var updated *models.UserLimit

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ul, err := s.userLimits.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: %s", apperrors.ErrUserLimitNotFound, id)
			}
			return err
		}

		if err := apply(ul); err != nil {
			return err
		}

		ul.UpdatedAt = s.now()
		if err := s.userLimits.Update(ctx, ul); err != nil {
			logger.Log.Errorw("failed to update user limit", "user_limit_id", id, "error", err)
			return err
		}
		updated = ul
		return nil
	})
	if err != nil {
		return nil, err
	}

	event := models.UserLimitEvent{Event: models.UserLimitEventUpdated, UserLimit: *updated, OccurredAt: s.now()}
	if err := s.emitter.EmitUserLimitEvent(ctx, event); err != nil {
		logger.Log.Errorw("failed to emit user limit event", "user_limit_id", id, "error", err)
	}
	return updated, nil
}

// UpdateGlobalLimit changes the platform ceilings of a limit type. The tier
// order must hold afterwards. Existing user limits are left untouched.
func (s *UserLimitService) UpdateGlobalLimit(ctx context.Context, limitTypeID uuid.UUID, changes LimitChanges) (*models.GlobalLimit, error) {
	if err := checkChanges(changes, models.CeilingTiers); err != nil {
		return nil, err
	}

	var updated *models.GlobalLimit
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		gl, err := s.globalLimits.GetByLimitType(ctx, limitTypeID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: limit type %s", apperrors.ErrGlobalLimitNotFound, limitTypeID)
			}
			return err
		}

		for tier, value := range changes {
			gl.SetTier(tier, value)
		}
		if err := checkRules(ceilingRules, gl, changes); err != nil {
			return err
		}

		gl.UpdatedAt = s.now()
		if err := s.globalLimits.Update(ctx, gl); err != nil {
			logger.Log.Errorw("failed to update global limit", "limit_type_id", limitTypeID, "error", err)
			return err
		}
		updated = gl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
