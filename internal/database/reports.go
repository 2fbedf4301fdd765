package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Reporting queries. Revenue and commission only ever count delivered
// orders; that is the state machine's definition of realized revenue.

type GetRevenueStatsParams struct {
	RestaurantID pgtype.UUID // unset for the platform-wide admin view
	Bucket       string      // day, month, quarter or year; validated by the handler
	StartDate    time.Time
	EndDate      time.Time
}

type GetRevenueStatsRow struct {
	Bucket        time.Time
	OrderCount    int64
	TotalRevenue  pgtype.Numeric
	AvgOrderValue pgtype.Numeric
}

func (q *Queries) GetRevenueStats(ctx context.Context, arg GetRevenueStatsParams) ([]GetRevenueStatsRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT
			date_trunc($2, created_at) AS bucket,
			count(*) AS order_count,
			COALESCE(sum(total_amount), 0) AS total_revenue,
			COALESCE(avg(total_amount), 0) AS avg_order_value
		FROM orders
		WHERE status = 'delivered'
		  AND ($1::uuid IS NULL OR restaurant_id = $1)
		  AND created_at >= $3 AND created_at < $4
		GROUP BY bucket
		ORDER BY bucket`,
		arg.RestaurantID, arg.Bucket, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetRevenueStatsRow
	for rows.Next() {
		var r GetRevenueStatsRow
		if err := rows.Scan(&r.Bucket, &r.OrderCount, &r.TotalRevenue, &r.AvgOrderValue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetStatusSummaryParams struct {
	RestaurantID pgtype.UUID
	StartDate    time.Time
	EndDate      time.Time
}

type GetStatusSummaryRow struct {
	Status      string
	OrderCount  int64
	TotalAmount pgtype.Numeric
}

func (q *Queries) GetStatusSummary(ctx context.Context, arg GetStatusSummaryParams) ([]GetStatusSummaryRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT status, count(*) AS order_count, COALESCE(sum(total_amount), 0) AS total_amount
		FROM orders
		WHERE ($1::uuid IS NULL OR restaurant_id = $1)
		  AND created_at >= $2 AND created_at < $3
		GROUP BY status
		ORDER BY status`,
		arg.RestaurantID, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetStatusSummaryRow
	for rows.Next() {
		var r GetStatusSummaryRow
		if err := rows.Scan(&r.Status, &r.OrderCount, &r.TotalAmount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetTopDishesParams struct {
	RestaurantID uuid.UUID
	StartDate    time.Time
	EndDate      time.Time
	Limit        int32
}

type GetTopDishesRow struct {
	MenuItemID   uuid.UUID
	Name         string
	QuantitySold int64
	TotalRevenue pgtype.Numeric
}

func (q *Queries) GetTopDishes(ctx context.Context, arg GetTopDishesParams) ([]GetTopDishesRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT
			oi.menu_item_id,
			oi.name,
			sum(oi.quantity) AS quantity_sold,
			COALESCE(sum(oi.unit_price * oi.quantity), 0) AS total_revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.restaurant_id = $1
		  AND o.status = 'delivered'
		  AND o.created_at >= $2 AND o.created_at < $3
		GROUP BY oi.menu_item_id, oi.name
		ORDER BY quantity_sold DESC
		LIMIT $4`,
		arg.RestaurantID, arg.StartDate, arg.EndDate, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetTopDishesRow
	for rows.Next() {
		var r GetTopDishesRow
		if err := rows.Scan(&r.MenuItemID, &r.Name, &r.QuantitySold, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type GetPlatformOverviewParams struct {
	StartDate time.Time
	EndDate   time.Time
}

type GetPlatformOverviewRow struct {
	RestaurantID   uuid.UUID
	RestaurantName string
	OrderCount     int64
	TotalRevenue   pgtype.Numeric
}

func (q *Queries) GetPlatformOverview(ctx context.Context, arg GetPlatformOverviewParams) ([]GetPlatformOverviewRow, error) {
	rows, err := q.db.Query(ctx, `
		SELECT r.id, r.name, count(o.id) AS order_count, COALESCE(sum(o.total_amount), 0) AS total_revenue
		FROM restaurants r
		LEFT JOIN orders o
		  ON o.restaurant_id = r.id
		 AND o.status = 'delivered'
		 AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY r.id, r.name
		ORDER BY total_revenue DESC`,
		arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []GetPlatformOverviewRow
	for rows.Next() {
		var r GetPlatformOverviewRow
		if err := rows.Scan(&r.RestaurantID, &r.RestaurantName, &r.OrderCount, &r.TotalRevenue); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
