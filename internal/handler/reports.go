package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ReportStore defines the database methods needed by reporting handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportStore interface {
	GetRevenueStats(ctx context.Context, arg database.GetRevenueStatsParams) ([]database.GetRevenueStatsRow, error)
	GetStatusSummary(ctx context.Context, arg database.GetStatusSummaryParams) ([]database.GetStatusSummaryRow, error)
	GetTopDishes(ctx context.Context, arg database.GetTopDishesParams) ([]database.GetTopDishesRow, error)
	GetPlatformOverview(ctx context.Context, arg database.GetPlatformOverviewParams) ([]database.GetPlatformOverviewRow, error)
}

// ReportHandler handles restaurant and platform reporting endpoints.
type ReportHandler struct {
	store          ReportStore
	commissionRate decimal.Decimal
}

// NewReportHandler creates a new ReportHandler. commissionRate is the
// platform's cut of delivered revenue as a percentage, e.g. 15.
func NewReportHandler(store ReportStore, commissionRate float64) *ReportHandler {
	return &ReportHandler{
		store:          store,
		commissionRate: decimal.NewFromFloat(commissionRate).Div(decimal.NewFromInt(100)),
	}
}

// RegisterOwnerRoutes registers restaurant-scoped reports, relative to
// /restaurants/{rid}. Expected to be registered behind RequireRestaurant.
func (h *ReportHandler) RegisterOwnerRoutes(r chi.Router) {
	r.Get("/reports/revenue", h.RestaurantRevenue)
	r.Get("/reports/top-dishes", h.TopDishes)
	r.Get("/reports/payout", h.Payout)
	r.Get("/reports/status-summary", h.RestaurantStatusSummary)
}

// RegisterAdminRoutes registers the platform-wide reports.
func (h *ReportHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/reports/revenue", h.PlatformRevenue)
	r.Get("/admin/reports/status-summary", h.PlatformStatusSummary)
	r.Get("/admin/reports/overview", h.PlatformOverview)
}

type revenueBucketResponse struct {
	Bucket        string `json:"bucket"`
	OrderCount    int64  `json:"order_count"`
	TotalRevenue  string `json:"total_revenue"`
	AvgOrderValue string `json:"avg_order_value"`
}

type statusSummaryResponse struct {
	Status      string `json:"status"`
	OrderCount  int64  `json:"order_count"`
	TotalAmount string `json:"total_amount"`
}

type topDishResponse struct {
	MenuItemID   uuid.UUID `json:"menu_item_id"`
	Name         string    `json:"name"`
	QuantitySold int64     `json:"quantity_sold"`
	TotalRevenue string    `json:"total_revenue"`
}

type overviewRowResponse struct {
	RestaurantID   uuid.UUID `json:"restaurant_id"`
	RestaurantName string    `json:"restaurant_name"`
	OrderCount     int64     `json:"order_count"`
	TotalRevenue   string    `json:"total_revenue"`
}

func validBucket(b string) bool {
	switch b {
	case "day", "month", "quarter", "year":
		return true
	}
	return false
}

func bucketLabel(t time.Time, bucket string) string {
	switch bucket {
	case "year":
		return t.Format("2006")
	case "quarter", "month":
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

func (h *ReportHandler) revenueStats(w http.ResponseWriter, r *http.Request, restaurantID pgtype.UUID) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	bucket := r.URL.Query().Get("bucket")
	if bucket == "" {
		bucket = "day"
	}
	if !validBucket(bucket) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bucket must be one of day, month, quarter, year"})
		return
	}

	rows, err := h.store.GetRevenueStats(r.Context(), database.GetRevenueStatsParams{
		RestaurantID: restaurantID,
		Bucket:       bucket,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		writeServiceError(w, "revenue stats", err)
		return
	}

	resp := make([]revenueBucketResponse, len(rows))
	for i, row := range rows {
		resp[i] = revenueBucketResponse{
			Bucket:        bucketLabel(row.Bucket, bucket),
			OrderCount:    row.OrderCount,
			TotalRevenue:  numericToString(row.TotalRevenue),
			AvgOrderValue: numericToString(row.AvgOrderValue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bucket": bucket, "buckets": resp})
}

// RestaurantRevenue handles GET /restaurants/{rid}/reports/revenue.
func (h *ReportHandler) RestaurantRevenue(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	h.revenueStats(w, r, pgtype.UUID{Bytes: rid, Valid: true})
}

// PlatformRevenue handles GET /admin/reports/revenue.
func (h *ReportHandler) PlatformRevenue(w http.ResponseWriter, r *http.Request) {
	h.revenueStats(w, r, pgtype.UUID{})
}

func (h *ReportHandler) statusSummary(w http.ResponseWriter, r *http.Request, restaurantID pgtype.UUID) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetStatusSummary(r.Context(), database.GetStatusSummaryParams{
		RestaurantID: restaurantID,
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		writeServiceError(w, "status summary", err)
		return
	}

	resp := make([]statusSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = statusSummaryResponse{
			Status:      row.Status,
			OrderCount:  row.OrderCount,
			TotalAmount: numericToString(row.TotalAmount),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": resp})
}

// RestaurantStatusSummary handles GET /restaurants/{rid}/reports/status-summary.
func (h *ReportHandler) RestaurantStatusSummary(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	h.statusSummary(w, r, pgtype.UUID{Bytes: rid, Valid: true})
}

// PlatformStatusSummary handles GET /admin/reports/status-summary.
func (h *ReportHandler) PlatformStatusSummary(w http.ResponseWriter, r *http.Request) {
	h.statusSummary(w, r, pgtype.UUID{})
}

// TopDishes handles GET /restaurants/{rid}/reports/top-dishes.
func (h *ReportHandler) TopDishes(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, _ := parsePagination(r)
	if limit > 50 {
		limit = 50
	}

	rows, err := h.store.GetTopDishes(r.Context(), database.GetTopDishesParams{
		RestaurantID: rid,
		StartDate:    start,
		EndDate:      end,
		Limit:        int32(limit),
	})
	if err != nil {
		writeServiceError(w, "top dishes", err)
		return
	}

	resp := make([]topDishResponse, len(rows))
	for i, row := range rows {
		resp[i] = topDishResponse{
			MenuItemID:   row.MenuItemID,
			Name:         row.Name,
			QuantitySold: row.QuantitySold,
			TotalRevenue: numericToString(row.TotalRevenue),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dishes": resp})
}

// Payout handles GET /restaurants/{rid}/reports/payout. The payout is
// delivered revenue for the period minus the platform commission.
func (h *ReportHandler) Payout(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetRevenueStats(r.Context(), database.GetRevenueStatsParams{
		RestaurantID: pgtype.UUID{Bytes: rid, Valid: true},
		Bucket:       "day",
		StartDate:    start,
		EndDate:      end,
	})
	if err != nil {
		writeServiceError(w, "payout report", err)
		return
	}

	gross := decimal.Zero
	var orderCount int64
	for _, row := range rows {
		gross = gross.Add(numericToDecimal(row.TotalRevenue))
		orderCount += row.OrderCount
	}
	commission := gross.Mul(h.commissionRate).Round(2)
	net := gross.Sub(commission)

	writeJSON(w, http.StatusOK, map[string]any{
		"start_date":      start.Format("2006-01-02"),
		"end_date":        end.AddDate(0, 0, -1).Format("2006-01-02"),
		"order_count":     orderCount,
		"gross_revenue":   gross.StringFixed(2),
		"commission_rate": h.commissionRate.String(),
		"commission":      commission.StringFixed(2),
		"net_payout":      net.StringFixed(2),
	})
}

// PlatformOverview handles GET /admin/reports/overview: delivered orders
// and revenue per restaurant, plus the platform commission total.
func (h *ReportHandler) PlatformOverview(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.store.GetPlatformOverview(r.Context(), database.GetPlatformOverviewParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		writeServiceError(w, "platform overview", err)
		return
	}

	gross := decimal.Zero
	var orderCount int64
	resp := make([]overviewRowResponse, len(rows))
	for i, row := range rows {
		gross = gross.Add(numericToDecimal(row.TotalRevenue))
		orderCount += row.OrderCount
		resp[i] = overviewRowResponse{
			RestaurantID:   row.RestaurantID,
			RestaurantName: row.RestaurantName,
			OrderCount:     row.OrderCount,
			TotalRevenue:   numericToString(row.TotalRevenue),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"restaurants":      resp,
		"order_count":      orderCount,
		"gross_revenue":    gross.StringFixed(2),
		"total_commission": gross.Mul(h.commissionRate).Round(2).StringFixed(2),
	})
}
