package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, user_id, restaurant_id, status, coupon_code, subtotal, discount_amount, delivery_fee, total_amount, delivered_at, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.RestaurantID, &o.Status,
		&o.CouponCode, &o.Subtotal, &o.DiscountAmount, &o.DeliveryFee, &o.TotalAmount,
		&o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetNextOrderNumber returns the next value of the global order sequence.
// Concurrent callers each get a distinct value, so order numbers are
// unique without a retry loop.
func (q *Queries) GetNextOrderNumber(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, `SELECT nextval('order_number_seq')`).Scan(&n)
	return n, err
}

type CreateOrderParams struct {
	OrderNumber    string
	UserID         uuid.UUID
	RestaurantID   uuid.UUID
	Status         string
	CouponCode     pgtype.Text
	Subtotal       pgtype.Numeric
	DiscountAmount pgtype.Numeric
	DeliveryFee    pgtype.Numeric
	TotalAmount    pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO orders (order_number, user_id, restaurant_id, status, coupon_code, subtotal, discount_amount, delivery_fee, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+orderColumns,
		arg.OrderNumber, arg.UserID, arg.RestaurantID, arg.Status, arg.CouponCode,
		arg.Subtotal, arg.DiscountAmount, arg.DeliveryFee, arg.TotalAmount)
	return scanOrder(row)
}

type CreateOrderItemParams struct {
	OrderID        uuid.UUID
	MenuItemID     uuid.UUID
	Name           string
	Quantity       int32
	UnitPrice      pgtype.Numeric
	Customizations pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, customizations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, order_id, menu_item_id, name, quantity, unit_price, customizations`,
		arg.OrderID, arg.MenuItemID, arg.Name, arg.Quantity, arg.UnitPrice, arg.Customizations).
		Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Customizations)
	return it, err
}

type InsertStatusHistoryParams struct {
	OrderID uuid.UUID
	Status  string
	Note    pgtype.Text
	ActorID pgtype.UUID
}

func (q *Queries) InsertStatusHistory(ctx context.Context, arg InsertStatusHistoryParams) (OrderStatusHistory, error) {
	var h OrderStatusHistory
	err := q.db.QueryRow(ctx, `
		INSERT INTO order_status_history (order_id, status, note, actor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_id, status, note, actor_id, created_at`,
		arg.OrderID, arg.Status, arg.Note, arg.ActorID).
		Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.ActorID, &h.CreatedAt)
	return h, err
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

// UpdateOrderStatus applies a status transition with a compare-and-set on
// the expected current status. Zero rows means another writer got there
// first; callers surface that as a conflict. delivered_at is stamped when
// the new status is delivered.
type UpdateOrderStatusParams struct {
	ID             uuid.UUID
	Status         string
	ExpectedStatus string
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE orders SET
			status = $2,
			delivered_at = CASE WHEN $2 = 'delivered' THEN now() ELSE delivered_at END,
			updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING `+orderColumns,
		arg.ID, arg.Status, arg.ExpectedStatus)
	return scanOrder(row)
}

type ListOrdersParams struct {
	UserID       pgtype.UUID
	RestaurantID pgtype.UUID
	Status       pgtype.Text
	StartDate    pgtype.Timestamptz
	EndDate      pgtype.Timestamptz
	Limit        int32
	Offset       int32
}

// ListOrders serves the customer, owner, and admin listings; unset filters
// are skipped.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE ($1::uuid IS NULL OR user_id = $1)
		  AND ($2::uuid IS NULL OR restaurant_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::timestamptz IS NULL OR created_at >= $4)
		  AND ($5::timestamptz IS NULL OR created_at < $5)
		ORDER BY created_at DESC
		LIMIT $6 OFFSET $7`,
		arg.UserID, arg.RestaurantID, arg.Status, arg.StartDate, arg.EndDate,
		arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, customizations
		FROM order_items WHERE order_id = $1
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MenuItemID, &it.Name,
			&it.Quantity, &it.UnitPrice, &it.Customizations); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *Queries) ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderStatusHistory, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, order_id, status, note, actor_id, created_at
		FROM order_status_history WHERE order_id = $1
		ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []OrderStatusHistory
	for rows.Next() {
		var h OrderStatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Status, &h.Note, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}
