package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-operation-ledger/internal/models"
)

const limitTypeColumns = `id, tag, description, currency_id, transaction_type_id, period_start, check_side,
	nighttime_start, nighttime_end, created_at`

const limitValueColumns = `nightly_limit, daily_limit, monthly_limit, yearly_limit, max_amount, min_amount,
	max_amount_nightly, min_amount_nightly`

// LimitTypeRepository reads limit types.
type LimitTypeRepository struct {
	base
}

func NewLimitTypeRepository(db *sqlx.DB, txGetter TxGetter) *LimitTypeRepository {
	return &LimitTypeRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the limit type with the given id.
func (r *LimitTypeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LimitType, error) {
	query := `SELECT ` + limitTypeColumns + ` FROM limit_types WHERE id = $1`

	var lt models.LimitType
	err := sqlx.GetContext(ctx, r.ext(ctx), &lt, query, id)
	logQuery(query, []any{id}, lt.Tag, err)
	if err != nil {
		return nil, translate(err)
	}
	return &lt, nil
}

// ListByCurrencyAndTransactionType returns the limit types applying to a
// transaction type in a currency.
func (r *LimitTypeRepository) ListByCurrencyAndTransactionType(ctx context.Context, currencyID, transactionTypeID uuid.UUID) ([]models.LimitType, error) {
	query := `SELECT ` + limitTypeColumns + `
		FROM limit_types
		WHERE currency_id = $1 AND transaction_type_id = $2
		ORDER BY tag`

	var lts []models.LimitType
	err := sqlx.SelectContext(ctx, r.ext(ctx), &lts, query, currencyID, transactionTypeID)
	logQuery(query, []any{currencyID, transactionTypeID}, len(lts), err)
	return lts, translate(err)
}

// GlobalLimitRepository persists platform ceilings.
type GlobalLimitRepository struct {
	base
}

func NewGlobalLimitRepository(db *sqlx.DB, txGetter TxGetter) *GlobalLimitRepository {
	return &GlobalLimitRepository{base{db: db, txGetter: txGetter}}
}

// GetByLimitType returns the global limit of a limit type.
func (r *GlobalLimitRepository) GetByLimitType(ctx context.Context, limitTypeID uuid.UUID) (*models.GlobalLimit, error) {
	query := `SELECT id, limit_type_id, ` + limitValueColumns + `, created_at, updated_at
		FROM global_limits
		WHERE limit_type_id = $1`

	var gl models.GlobalLimit
	err := sqlx.GetContext(ctx, r.ext(ctx), &gl, query, limitTypeID)
	logQuery(query, []any{limitTypeID}, gl.ID, err)
	if err != nil {
		return nil, translate(err)
	}
	return &gl, nil
}

// Update stores the ceilings of a global limit.
func (r *GlobalLimitRepository) Update(ctx context.Context, gl *models.GlobalLimit) error {
	const query = `
		UPDATE global_limits
		SET nightly_limit = :nightly_limit, daily_limit = :daily_limit, monthly_limit = :monthly_limit,
			yearly_limit = :yearly_limit, max_amount = :max_amount, min_amount = :min_amount,
			max_amount_nightly = :max_amount_nightly, min_amount_nightly = :min_amount_nightly,
			updated_at = :updated_at
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, gl)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{gl.ID}, rowsAffected, err)
	if err != nil {
		return translate(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const userLimitColumns = `id, user_id, limit_type_id, ` + limitValueColumns + `,
	user_nightly_limit, user_daily_limit, user_monthly_limit, user_yearly_limit, created_at, updated_at`

// UserLimitRepository persists per-user ceilings and sub-limits.
type UserLimitRepository struct {
	base
}

func NewUserLimitRepository(db *sqlx.DB, txGetter TxGetter) *UserLimitRepository {
	return &UserLimitRepository{base{db: db, txGetter: txGetter}}
}

// GetByID returns the user limit with the given id.
func (r *UserLimitRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UserLimit, error) {
	query := `SELECT ` + userLimitColumns + ` FROM user_limits WHERE id = $1`

	var ul models.UserLimit
	err := sqlx.GetContext(ctx, r.ext(ctx), &ul, query, id)
	logQuery(query, []any{id}, ul.UserID, err)
	if err != nil {
		return nil, translate(err)
	}
	return &ul, nil
}

// GetByUserAndLimitType returns the limit of a user for a limit type.
func (r *UserLimitRepository) GetByUserAndLimitType(ctx context.Context, userID, limitTypeID uuid.UUID) (*models.UserLimit, error) {
	query := `SELECT ` + userLimitColumns + ` FROM user_limits WHERE user_id = $1 AND limit_type_id = $2`

	var ul models.UserLimit
	err := sqlx.GetContext(ctx, r.ext(ctx), &ul, query, userID, limitTypeID)
	logQuery(query, []any{userID, limitTypeID}, ul.ID, err)
	if err != nil {
		return nil, translate(err)
	}
	return &ul, nil
}

// Create inserts a user limit. A second limit for the same user and limit
// type yields ErrAlreadyExists.
func (r *UserLimitRepository) Create(ctx context.Context, ul *models.UserLimit) error {
	const query = `
		INSERT INTO user_limits (id, user_id, limit_type_id, nightly_limit, daily_limit, monthly_limit,
			yearly_limit, max_amount, min_amount, max_amount_nightly, min_amount_nightly,
			user_nightly_limit, user_daily_limit, user_monthly_limit, user_yearly_limit, created_at, updated_at)
		VALUES (:id, :user_id, :limit_type_id, :nightly_limit, :daily_limit, :monthly_limit,
			:yearly_limit, :max_amount, :min_amount, :max_amount_nightly, :min_amount_nightly,
			:user_nightly_limit, :user_daily_limit, :user_monthly_limit, :user_yearly_limit, :created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, ul)
	logQuery(query, []any{ul.ID, ul.UserID, ul.LimitTypeID}, nil, err)
	return translate(err)
}

// Update stores every ceiling and sub-limit of a user limit.
func (r *UserLimitRepository) Update(ctx context.Context, ul *models.UserLimit) error {
	const query = `
		UPDATE user_limits
		SET nightly_limit = :nightly_limit, daily_limit = :daily_limit, monthly_limit = :monthly_limit,
			yearly_limit = :yearly_limit, max_amount = :max_amount, min_amount = :min_amount,
			max_amount_nightly = :max_amount_nightly, min_amount_nightly = :min_amount_nightly,
			user_nightly_limit = :user_nightly_limit, user_daily_limit = :user_daily_limit,
			user_monthly_limit = :user_monthly_limit, user_yearly_limit = :user_yearly_limit,
			updated_at = :updated_at
		WHERE id = :id
	`

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, ul)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{ul.ID}, rowsAffected, err)
	if err != nil {
		return translate(err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const userLimitTrackerColumns = `id, user_limit_id, nightly_spent, daily_spent, monthly_spent, yearly_spent,
	last_operation_at, last_nighttime_at, version, created_at, updated_at`

// UserLimitTrackerRepository persists usage accumulators with optimistic versioning.
type UserLimitTrackerRepository struct {
	base
}

func NewUserLimitTrackerRepository(db *sqlx.DB, txGetter TxGetter) *UserLimitTrackerRepository {
	return &UserLimitTrackerRepository{base{db: db, txGetter: txGetter}}
}

// GetByUserLimit returns the tracker of a user limit.
func (r *UserLimitTrackerRepository) GetByUserLimit(ctx context.Context, userLimitID uuid.UUID) (*models.UserLimitTracker, error) {
	query := `SELECT ` + userLimitTrackerColumns + ` FROM user_limit_trackers WHERE user_limit_id = $1`

	var tracker models.UserLimitTracker
	err := sqlx.GetContext(ctx, r.ext(ctx), &tracker, query, userLimitID)
	logQuery(query, []any{userLimitID}, tracker.Version, err)
	if err != nil {
		return nil, translate(err)
	}
	return &tracker, nil
}

// Create inserts a tracker.
func (r *UserLimitTrackerRepository) Create(ctx context.Context, tracker *models.UserLimitTracker) error {
	const query = `
		INSERT INTO user_limit_trackers (id, user_limit_id, nightly_spent, daily_spent, monthly_spent,
			yearly_spent, last_operation_at, last_nighttime_at, version, created_at, updated_at)
		VALUES (:id, :user_limit_id, :nightly_spent, :daily_spent, :monthly_spent,
			:yearly_spent, :last_operation_at, :last_nighttime_at, :version, :created_at, :updated_at)
	`

	_, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, tracker)
	logQuery(query, []any{tracker.ID, tracker.UserLimitID}, nil, err)
	return translate(err)
}

// Update saves the tracker if nobody saved it since it was loaded, and bumps
// its Version. A stale Version yields ErrVersionConflict.
func (r *UserLimitTrackerRepository) Update(ctx context.Context, tracker *models.UserLimitTracker) error {
	const query = `
		UPDATE user_limit_trackers
		SET nightly_spent = :nightly_spent, daily_spent = :daily_spent, monthly_spent = :monthly_spent,
			yearly_spent = :yearly_spent, last_operation_at = :last_operation_at,
			last_nighttime_at = :last_nighttime_at, version = version + 1, updated_at = :updated_at
		WHERE id = :id AND version = :version
	`

	res, err := sqlx.NamedExecContext(ctx, r.ext(ctx), query, tracker)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}
	logQuery(query, []any{tracker.ID, tracker.Version}, rowsAffected, err)
	if err != nil {
		return translate(err)
	}
	if rowsAffected == 0 {
		return ErrVersionConflict
	}
	tracker.Version++
	return nil
}
