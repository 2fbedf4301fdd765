package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func restaurantColumns(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return p + `id, ` + p + `owner_id, ` + p + `name, ` + p + `description, ` + p + `address, ` +
		p + `phone, ` + p + `is_active, ` + p + `opens_at, ` + p + `closes_at, ` + p + `delivery_fee, ` +
		p + `min_order_amount, ` + p + `bank_name, ` + p + `bank_account, ` + p + `created_at, ` + p + `updated_at`
}

func scanRestaurant(row interface{ Scan(...any) error }) (Restaurant, error) {
	var r Restaurant
	err := row.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Description, &r.Address, &r.Phone,
		&r.IsActive, &r.OpensAt, &r.ClosesAt, &r.DeliveryFee, &r.MinOrderAmount,
		&r.BankName, &r.BankAccount, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

type CreateRestaurantParams struct {
	OwnerID        uuid.UUID
	Name           string
	Description    pgtype.Text
	Address        pgtype.Text
	Phone          pgtype.Text
	OpensAt        pgtype.Text
	ClosesAt       pgtype.Text
	DeliveryFee    pgtype.Numeric
	MinOrderAmount pgtype.Numeric
}

func (q *Queries) CreateRestaurant(ctx context.Context, arg CreateRestaurantParams) (Restaurant, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO restaurants (owner_id, name, description, address, phone, opens_at, closes_at, delivery_fee, min_order_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+restaurantColumns(""),
		arg.OwnerID, arg.Name, arg.Description, arg.Address, arg.Phone,
		arg.OpensAt, arg.ClosesAt, arg.DeliveryFee, arg.MinOrderAmount)
	return scanRestaurant(row)
}

func (q *Queries) GetRestaurant(ctx context.Context, id uuid.UUID) (Restaurant, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+restaurantColumns("")+` FROM restaurants WHERE id = $1`, id)
	return scanRestaurant(row)
}

func (q *Queries) GetRestaurantByOwner(ctx context.Context, ownerID uuid.UUID) (Restaurant, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+restaurantColumns("")+` FROM restaurants WHERE owner_id = $1`, ownerID)
	return scanRestaurant(row)
}

type ListRestaurantsParams struct {
	Search pgtype.Text
	Limit  int32
	Offset int32
}

func (q *Queries) ListRestaurants(ctx context.Context, arg ListRestaurantsParams) ([]Restaurant, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+restaurantColumns("")+` FROM restaurants
		WHERE is_active
		  AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%')
		ORDER BY name
		LIMIT $2 OFFSET $3`,
		arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var restaurants []Restaurant
	for rows.Next() {
		r, err := scanRestaurant(rows)
		if err != nil {
			return nil, err
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, rows.Err()
}

type UpdateRestaurantParams struct {
	ID             uuid.UUID
	Name           string
	Description    pgtype.Text
	Address        pgtype.Text
	Phone          pgtype.Text
	OpensAt        pgtype.Text
	ClosesAt       pgtype.Text
	DeliveryFee    pgtype.Numeric
	MinOrderAmount pgtype.Numeric
	BankName       pgtype.Text
	BankAccount    pgtype.Text
}

func (q *Queries) UpdateRestaurant(ctx context.Context, arg UpdateRestaurantParams) (Restaurant, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE restaurants SET
			name = $2, description = $3, address = $4, phone = $5,
			opens_at = $6, closes_at = $7, delivery_fee = $8, min_order_amount = $9,
			bank_name = $10, bank_account = $11, updated_at = now()
		WHERE id = $1
		RETURNING `+restaurantColumns(""),
		arg.ID, arg.Name, arg.Description, arg.Address, arg.Phone,
		arg.OpensAt, arg.ClosesAt, arg.DeliveryFee, arg.MinOrderAmount,
		arg.BankName, arg.BankAccount)
	return scanRestaurant(row)
}

type SetRestaurantActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

func (q *Queries) SetRestaurantActive(ctx context.Context, arg SetRestaurantActiveParams) (Restaurant, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE restaurants SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+restaurantColumns(""), arg.ID, arg.IsActive)
	return scanRestaurant(row)
}
