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

// LimitConfig configures period boundaries.
type LimitConfig struct {
	Location *time.Location // Zone of day, month and year boundaries; UTC when nil
}

// PreparedLimit is one (user, limit type) pair an operation is verified against,
// resolved before any row lock is taken.
type PreparedLimit struct {
	User        models.User
	LimitType   models.LimitType
	GlobalLimit models.GlobalLimit
	UserLimit   models.UserLimit
}

// LimitUsage is a verified tracker change waiting to be saved.
type LimitUsage struct {
	trackers []*models.UserLimitTracker
}

// LimitVerifier checks operation amounts against the limit catalog and owns
// the usage trackers.
type LimitVerifier struct {
	limitTypes   LimitTypeReader
	globalLimits GlobalLimitRepository
	userLimits   UserLimitRepository
	trackers     UserLimitTrackerRepository
	emitter      UserLimitEventEmitter
	loc          *time.Location
	now          func() time.Time
}

// NewLimitVerifier creates a new LimitVerifier.
func NewLimitVerifier(
	limitTypes LimitTypeReader,
	globalLimits GlobalLimitRepository,
	userLimits UserLimitRepository,
	trackers UserLimitTrackerRepository,
	emitter UserLimitEventEmitter,
	cfg LimitConfig,
) *LimitVerifier {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if emitter == nil {
		emitter = NoopEventEmitter{}
	}
	return &LimitVerifier{
		limitTypes:   limitTypes,
		globalLimits: globalLimits,
		userLimits:   userLimits,
		trackers:     trackers,
		emitter:      emitter,
		loc:          loc,
		now:          time.Now,
	}
}

// Prepare resolves the limits that apply to an operation of the given
// currency and transaction type. owner and beneficiary may be nil when the
// operation has no such side. User limits and trackers are provisioned from
// the global limit on first use. A user appearing on both sides is checked once.
func (v *LimitVerifier) Prepare(ctx context.Context, currencyID, transactionTypeID uuid.UUID, owner, beneficiary *models.User) ([]PreparedLimit, error) {
	limitTypes, err := v.limitTypes.ListByCurrencyAndTransactionType(ctx, currencyID, transactionTypeID)
	if err != nil {
		logger.Log.Errorw("failed to list limit types", "currency_id", currencyID, "transaction_type_id", transactionTypeID, "error", err)
		return nil, err
	}

	var prepared []PreparedLimit
	seen := make(map[uuid.UUID]bool)

	for _, lt := range limitTypes {
		var users []*models.User
		if lt.Check.ChecksOwner() && owner != nil {
			users = append(users, owner)
		}
		if lt.Check.ChecksBeneficiary() && beneficiary != nil {
			users = append(users, beneficiary)
		}
		if len(users) == 0 {
			continue
		}

		gl, err := v.globalLimits.GetByLimitType(ctx, lt.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: limit type %s", apperrors.ErrGlobalLimitNotFound, lt.Tag)
			}
			return nil, err
		}

		for _, user := range users {
			ul, err := v.userLimit(ctx, user.ID, gl)
			if err != nil {
				return nil, err
			}
			if seen[ul.ID] {
				continue
			}
			seen[ul.ID] = true

			prepared = append(prepared, PreparedLimit{
				User:        *user,
				LimitType:   lt,
				GlobalLimit: *gl,
				UserLimit:   *ul,
			})
		}
	}
	return prepared, nil
}

// userLimit returns the limit of user for gl's limit type, creating it and
// its tracker when missing.
func (v *LimitVerifier) userLimit(ctx context.Context, userID uuid.UUID, gl *models.GlobalLimit) (*models.UserLimit, error) {
	ul, err := v.userLimits.GetByUserAndLimitType(ctx, userID, gl.LimitTypeID)
	if err == nil {
		return ul, v.ensureTracker(ctx, ul.ID)
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	now := v.now()
	ul = &models.UserLimit{
		ID:               uuid.New(),
		UserID:           userID,
		LimitTypeID:      gl.LimitTypeID,
		LimitValues:      gl.LimitValues,
		UserNightlyLimit: gl.NightlyLimit,
		UserDailyLimit:   gl.DailyLimit,
		UserMonthlyLimit: gl.MonthlyLimit,
		UserYearlyLimit:  gl.YearlyLimit,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := v.userLimits.Create(ctx, ul); err != nil {
		if !errors.Is(err, repositories.ErrAlreadyExists) {
			logger.Log.Errorw("failed to create user limit", "user_id", userID, "limit_type_id", gl.LimitTypeID, "error", err)
			return nil, err
		}
		// Provisioned concurrently.
		if ul, err = v.userLimits.GetByUserAndLimitType(ctx, userID, gl.LimitTypeID); err != nil {
			return nil, err
		}
		return ul, v.ensureTracker(ctx, ul.ID)
	}

	if err := v.ensureTracker(ctx, ul.ID); err != nil {
		return nil, err
	}

	logger.Log.Infow("user limit provisioned", "user_limit_id", ul.ID, "user_id", userID, "limit_type_id", gl.LimitTypeID)
	v.emit(ctx, models.UserLimitEventCreated, ul)
	return ul, nil
}

func (v *LimitVerifier) ensureTracker(ctx context.Context, userLimitID uuid.UUID) error {
	_, err := v.trackers.GetByUserLimit(ctx, userLimitID)
	if err == nil || !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	now := v.now()
	err = v.trackers.Create(ctx, &models.UserLimitTracker{
		ID:          uuid.New(),
		UserLimitID: userLimitID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if errors.Is(err, repositories.ErrAlreadyExists) {
		return nil
	}
	return err
}

func (v *LimitVerifier) emit(ctx context.Context, event string, ul *models.UserLimit) {
	err := v.emitter.EmitUserLimitEvent(ctx, models.UserLimitEvent{Event: event, UserLimit: *ul, OccurredAt: v.now()})
	if err != nil {
		logger.Log.Errorw("failed to emit user limit event", "event", event, "user_limit_id", ul.ID, "error", err)
	}
}

// Evaluate verifies amount against every prepared limit at now and returns
// the tracker changes to save with Apply. Nothing is written.
func (v *LimitVerifier) Evaluate(ctx context.Context, limits []PreparedLimit, amount decimal.Decimal, now time.Time) (*LimitUsage, error) {
	usage := &LimitUsage{}
	for i := range limits {
		l := &limits[i]

		tracker, err := v.trackers.GetByUserLimit(ctx, l.UserLimit.ID)
		if err != nil {
			return nil, err
		}

		w := windowsAt(&l.LimitType, &l.User, now, v.loc)
		roll(tracker, w)

		if err := verify(ceilingsOf(l), tracker, amount, w.isNight); err != nil {
			logger.Log.Warnw("limit exceeded",
				"user_id", l.User.ID, "limit_type", l.LimitType.Tag, "amount", amount, "error", err)
			return nil, err
		}

		tracker.DailySpent = tracker.DailySpent.Add(amount)
		tracker.MonthlySpent = tracker.MonthlySpent.Add(amount)
		tracker.YearlySpent = tracker.YearlySpent.Add(amount)
		if w.isNight {
			tracker.NightlySpent = tracker.NightlySpent.Add(amount)
			tracker.LastNighttimeAt = &now
		}
		tracker.LastOperationAt = &now
		tracker.UpdatedAt = now

		usage.trackers = append(usage.trackers, tracker)
	}
	return usage, nil
}

// Apply saves the trackers of usage. A tracker saved by someone else since
// Evaluate loaded it yields repositories.ErrVersionConflict.
func (v *LimitVerifier) Apply(ctx context.Context, usage *LimitUsage) error {
	for _, tracker := range usage.trackers {
		if err := v.trackers.Update(ctx, tracker); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				logger.Log.Warnw("tracker changed concurrently", "user_limit_id", tracker.UserLimitID)
			}
			return err
		}
	}
	return nil
}

// Verify checks amount for user against one limit type without recording
// usage. isNighttime forces the nightly tiers on or off.
func (v *LimitVerifier) Verify(ctx context.Context, user *models.User, lt *models.LimitType, amount decimal.Decimal, isNighttime bool) error {
	gl, err := v.globalLimits.GetByLimitType(ctx, lt.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: limit type %s", apperrors.ErrGlobalLimitNotFound, lt.Tag)
		}
		return err
	}

	ul, err := v.userLimit(ctx, user.ID, gl)
	if err != nil {
		return err
	}

	tracker, err := v.trackers.GetByUserLimit(ctx, ul.ID)
	if err != nil {
		return err
	}

	w := windowsAt(lt, user, v.now(), v.loc)
	roll(tracker, w)

	return verify(ceilingsOf(&PreparedLimit{GlobalLimit: *gl, UserLimit: *ul}), tracker, amount, isNighttime)
}

// GiveBack removes the usage of an operation made at createdAt from the
// trackers, for the periods that are still running. Counters never go below zero.
func (v *LimitVerifier) GiveBack(ctx context.Context, limits []PreparedLimit, amount decimal.Decimal, createdAt time.Time) error {
	now := v.now()
	for i := range limits {
		l := &limits[i]

		tracker, err := v.trackers.GetByUserLimit(ctx, l.UserLimit.ID)
		if err != nil {
			return err
		}

		w := windowsAt(&l.LimitType, &l.User, now, v.loc)
		roll(tracker, w)

		if !createdAt.Before(w.year) {
			tracker.YearlySpent = subFloor(tracker.YearlySpent, amount)
		}
		if !createdAt.Before(w.month) {
			tracker.MonthlySpent = subFloor(tracker.MonthlySpent, amount)
		}
		if !createdAt.Before(w.day) {
			tracker.DailySpent = subFloor(tracker.DailySpent, amount)
		}
		if w.isNight && !createdAt.Before(w.night) {
			tracker.NightlySpent = subFloor(tracker.NightlySpent, amount)
		}
		tracker.UpdatedAt = now

		if err := v.trackers.Update(ctx, tracker); err != nil {
			return err
		}
	}
	return nil
}

func subFloor(a, b decimal.Decimal) decimal.Decimal {
	if d := a.Sub(b); d.IsPositive() {
		return d
	}
	return decimal.Zero
}

// bound is an effective ceiling and the tier it came from.
type bound struct {
	tier  models.Tier
	value decimal.Decimal
}

type ceilings struct {
	minAmount        bound
	maxAmount        bound
	minAmountNightly bound
	maxAmountNightly bound
	nightly          bound
	daily            bound
	monthly          bound
	yearly           bound
}

// ceilingsOf combines global and user values. Upper bounds take the smallest
// of the global ceiling, the user ceiling and the user sub-limit; lower
// bounds the largest, so a user can only tighten.
func ceilingsOf(l *PreparedLimit) ceilings {
	upper := func(tiers ...models.Tier) bound {
		b := bound{tier: tiers[0], value: l.GlobalLimit.Tier(tiers[0])}
		for _, t := range tiers {
			if v := l.UserLimit.Tier(t); v.LessThan(b.value) {
				b = bound{tier: t, value: v}
			}
		}
		return b
	}
	lower := func(t models.Tier) bound {
		b := bound{tier: t, value: l.GlobalLimit.Tier(t)}
		if v := l.UserLimit.Tier(t); v.GreaterThan(b.value) {
			b.value = v
		}
		return b
	}

	return ceilings{
		minAmount:        lower(models.TierMinAmount),
		maxAmount:        upper(models.TierMaxAmount),
		minAmountNightly: lower(models.TierMinAmountNightly),
		maxAmountNightly: upper(models.TierMaxAmountNightly),
		nightly:          upper(models.TierNightly, models.TierUserNightly),
		daily:            upper(models.TierDaily, models.TierUserDaily),
		monthly:          upper(models.TierMonthly, models.TierUserMonthly),
		yearly:           upper(models.TierYearly, models.TierUserYearly),
	}
}

const amountTier = "AMOUNT"

type accumulator struct {
	spent decimal.Decimal
	limit bound
}

// verify checks amount and the rolled tracker against c. Bounds are inclusive.
func verify(c ceilings, t *models.UserLimitTracker, amount decimal.Decimal, night bool) error {
	if amount.LessThan(c.minAmount.value) {
		return apperrors.NewLimitError(amountTier, apperrors.Under, string(c.minAmount.tier), amount, c.minAmount.value)
	}
	if amount.GreaterThan(c.maxAmount.value) {
		return apperrors.NewLimitError(amountTier, apperrors.Above, string(c.maxAmount.tier), amount, c.maxAmount.value)
	}
	if night {
		if amount.LessThan(c.minAmountNightly.value) {
			return apperrors.NewLimitError(amountTier, apperrors.Under, string(c.minAmountNightly.tier), amount, c.minAmountNightly.value)
		}
		if amount.GreaterThan(c.maxAmountNightly.value) {
			return apperrors.NewLimitError(amountTier, apperrors.Above, string(c.maxAmountNightly.tier), amount, c.maxAmountNightly.value)
		}
	}

	accumulators := []accumulator{
		{t.DailySpent, c.daily},
		{t.MonthlySpent, c.monthly},
		{t.YearlySpent, c.yearly},
	}
	if night {
		accumulators = append(accumulators, accumulator{t.NightlySpent, c.nightly})
	}

	for _, acc := range accumulators {
		if total := acc.spent.Add(amount); total.GreaterThan(acc.limit.value) {
			return apperrors.NewLimitError(amountTier, apperrors.Above, string(acc.limit.tier), total, acc.limit.value)
		}
	}
	return nil
}
