package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const discountColumns = `id, restaurant_id, code, type, value, min_order_amount, max_discount_amount, usage_limit, used_count, starts_at, ends_at, is_active, created_at, updated_at`

func scanDiscount(row interface{ Scan(...any) error }) (Discount, error) {
	var d Discount
	err := row.Scan(&d.ID, &d.RestaurantID, &d.Code, &d.Type, &d.Value,
		&d.MinOrderAmount, &d.MaxDiscountAmount, &d.UsageLimit, &d.UsedCount,
		&d.StartsAt, &d.EndsAt, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

type CreateDiscountParams struct {
	RestaurantID      uuid.UUID
	Code              string
	Type              string
	Value             pgtype.Numeric
	MinOrderAmount    pgtype.Numeric
	MaxDiscountAmount pgtype.Numeric
	UsageLimit        int32
	StartsAt          time.Time
	EndsAt            time.Time
}

func (q *Queries) CreateDiscount(ctx context.Context, arg CreateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO discounts (restaurant_id, code, type, value, min_order_amount, max_discount_amount, usage_limit, starts_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+discountColumns,
		arg.RestaurantID, arg.Code, arg.Type, arg.Value, arg.MinOrderAmount,
		arg.MaxDiscountAmount, arg.UsageLimit, arg.StartsAt, arg.EndsAt)
	return scanDiscount(row)
}

type GetDiscountByCodeParams struct {
	RestaurantID uuid.UUID
	Code         string
}

func (q *Queries) GetDiscountByCode(ctx context.Context, arg GetDiscountByCodeParams) (Discount, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+discountColumns+` FROM discounts
		WHERE restaurant_id = $1 AND code = $2`,
		arg.RestaurantID, arg.Code)
	return scanDiscount(row)
}

func (q *Queries) ListDiscountsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]Discount, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+discountColumns+` FROM discounts
		WHERE restaurant_id = $1
		ORDER BY created_at DESC`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discounts []Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, d)
	}
	return discounts, rows.Err()
}

type UpdateDiscountParams struct {
	ID                uuid.UUID
	RestaurantID      uuid.UUID
	Value             pgtype.Numeric
	MinOrderAmount    pgtype.Numeric
	MaxDiscountAmount pgtype.Numeric
	UsageLimit        int32
	StartsAt          time.Time
	EndsAt            time.Time
	IsActive          bool
}

func (q *Queries) UpdateDiscount(ctx context.Context, arg UpdateDiscountParams) (Discount, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE discounts SET
			value = $3, min_order_amount = $4, max_discount_amount = $5,
			usage_limit = $6, starts_at = $7, ends_at = $8, is_active = $9,
			updated_at = now()
		WHERE id = $1 AND restaurant_id = $2
		RETURNING `+discountColumns,
		arg.ID, arg.RestaurantID, arg.Value, arg.MinOrderAmount, arg.MaxDiscountAmount,
		arg.UsageLimit, arg.StartsAt, arg.EndsAt, arg.IsActive)
	return scanDiscount(row)
}

type DeleteDiscountParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteDiscount(ctx context.Context, arg DeleteDiscountParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		DELETE FROM discounts WHERE id = $1 AND restaurant_id = $2
		RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}

// IncrementDiscountUsage bumps used_count with a guard against exceeding
// usage_limit. Zero rows means the coupon was exhausted (or deactivated)
// between validation and placement; callers treat that as a conflict.
func (q *Queries) IncrementDiscountUsage(ctx context.Context, id uuid.UUID) (Discount, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE discounts SET used_count = used_count + 1, updated_at = now()
		WHERE id = $1 AND is_active AND used_count < usage_limit
		RETURNING `+discountColumns, id)
	return scanDiscount(row)
}
