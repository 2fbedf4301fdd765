package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Dish lookups are always scoped by restaurant ID. Menu items live in their
// own table keyed by id + restaurant_id instead of being embedded in the
// restaurant document, so a single dish never requires scanning every
// restaurant.

const menuItemColumns = `id, restaurant_id, name, description, category, price, is_available, created_at, updated_at`

func scanMenuItem(row interface{ Scan(...any) error }) (MenuItem, error) {
	var m MenuItem
	err := row.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description, &m.Category,
		&m.Price, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

type CreateMenuItemParams struct {
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	Category     pgtype.Text
	Price        pgtype.Numeric
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO menu_items (restaurant_id, name, description, category, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+menuItemColumns,
		arg.RestaurantID, arg.Name, arg.Description, arg.Category, arg.Price)
	return scanMenuItem(row)
}

type GetMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) GetMenuItem(ctx context.Context, arg GetMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE id = $1 AND restaurant_id = $2`,
		arg.ID, arg.RestaurantID)
	return scanMenuItem(row)
}

func (q *Queries) ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE restaurant_id = $1
		ORDER BY category NULLS LAST, name`, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type ListMenuItemsByIDsParams struct {
	RestaurantID uuid.UUID
	IDs          []uuid.UUID
}

// ListMenuItemsByIDs fetches the given dishes at current menu prices.
// Used by cart validation and reorder; missing IDs are simply absent
// from the result.
func (q *Queries) ListMenuItemsByIDs(ctx context.Context, arg ListMenuItemsByIDsParams) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+menuItemColumns+` FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2)`,
		arg.RestaurantID, arg.IDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

type UpdateMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	Description  pgtype.Text
	Category     pgtype.Text
	Price        pgtype.Numeric
	IsAvailable  bool
}

func (q *Queries) UpdateMenuItem(ctx context.Context, arg UpdateMenuItemParams) (MenuItem, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE menu_items SET
			name = $3, description = $4, category = $5, price = $6, is_available = $7, updated_at = now()
		WHERE id = $1 AND restaurant_id = $2
		RETURNING `+menuItemColumns,
		arg.ID, arg.RestaurantID, arg.Name, arg.Description, arg.Category, arg.Price, arg.IsAvailable)
	return scanMenuItem(row)
}

type DeleteMenuItemParams struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
}

func (q *Queries) DeleteMenuItem(ctx context.Context, arg DeleteMenuItemParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		DELETE FROM menu_items WHERE id = $1 AND restaurant_id = $2
		RETURNING id`, arg.ID, arg.RestaurantID).Scan(&id)
	return id, err
}
