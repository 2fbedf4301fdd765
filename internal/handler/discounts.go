package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// DiscountStore defines the database methods needed by discount handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DiscountStore interface {
	CreateDiscount(ctx context.Context, arg database.CreateDiscountParams) (database.Discount, error)
	ListDiscountsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Discount, error)
	UpdateDiscount(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error)
	DeleteDiscount(ctx context.Context, arg database.DeleteDiscountParams) (uuid.UUID, error)
}

// DiscountHandler handles the owner-side coupon management endpoints.
type DiscountHandler struct {
	store DiscountStore
}

// NewDiscountHandler creates a new DiscountHandler.
func NewDiscountHandler(store DiscountStore) *DiscountHandler {
	return &DiscountHandler{store: store}
}

// RegisterRoutes registers the owner coupon management endpoints, relative
// to /restaurants/{rid}. Expected to be registered behind RequireRestaurant.
func (h *DiscountHandler) RegisterRoutes(r chi.Router) {
	r.Post("/discounts", h.Create)
	r.Get("/discounts", h.List)
	r.Put("/discounts/{id}", h.Update)
	r.Delete("/discounts/{id}", h.Delete)
}

type discountRequest struct {
	Code              string `json:"code"`
	Type              string `json:"type"`
	Value             string `json:"value"`
	MinOrderAmount    string `json:"min_order_amount"`
	MaxDiscountAmount string `json:"max_discount_amount"`
	UsageLimit        int32  `json:"usage_limit"`
	StartsAt          string `json:"starts_at"` // RFC3339
	EndsAt            string `json:"ends_at"`
	IsActive          *bool  `json:"is_active"`
}

type discountResponse struct {
	ID                uuid.UUID `json:"id"`
	Code              string    `json:"code"`
	Type              string    `json:"type"`
	Value             string    `json:"value"`
	MinOrderAmount    string    `json:"min_order_amount"`
	MaxDiscountAmount string    `json:"max_discount_amount"`
	UsageLimit        int32     `json:"usage_limit"`
	UsedCount         int32     `json:"used_count"`
	StartsAt          time.Time `json:"starts_at"`
	EndsAt            time.Time `json:"ends_at"`
	IsActive          bool      `json:"is_active"`
}

func toDiscountResponse(d database.Discount) discountResponse {
	return discountResponse{
		ID:                d.ID,
		Code:              d.Code,
		Type:              d.Type,
		Value:             numericToString(d.Value),
		MinOrderAmount:    numericToString(d.MinOrderAmount),
		MaxDiscountAmount: numericToString(d.MaxDiscountAmount),
		UsageLimit:        d.UsageLimit,
		UsedCount:         d.UsedCount,
		StartsAt:          d.StartsAt,
		EndsAt:            d.EndsAt,
		IsActive:          d.IsActive,
	}
}

// parsedDiscount holds the validated numeric and time fields.
type parsedDiscount struct {
	value             pgtype.Numeric
	minOrderAmount    pgtype.Numeric
	maxDiscountAmount pgtype.Numeric
	startsAt          time.Time
	endsAt            time.Time
}

func parseDiscountRequest(req discountRequest) (parsedDiscount, string) {
	var p parsedDiscount

	value, err := decimal.NewFromString(req.Value)
	if err != nil || !value.IsPositive() {
		return p, "value must be a positive number"
	}
	if req.Type == enum.DiscountTypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return p, "percentage value cannot exceed 100"
	}
	p.value.Scan(value.StringFixed(2)) //nolint:errcheck

	minOrder := decimal.Zero
	if req.MinOrderAmount != "" {
		minOrder, err = decimal.NewFromString(req.MinOrderAmount)
		if err != nil || minOrder.IsNegative() {
			return p, "invalid min_order_amount"
		}
	}
	p.minOrderAmount.Scan(minOrder.StringFixed(2)) //nolint:errcheck

	maxDiscount := decimal.Zero
	if req.MaxDiscountAmount != "" {
		maxDiscount, err = decimal.NewFromString(req.MaxDiscountAmount)
		if err != nil || maxDiscount.IsNegative() {
			return p, "invalid max_discount_amount"
		}
	}
	p.maxDiscountAmount.Scan(maxDiscount.StringFixed(2)) //nolint:errcheck

	if req.UsageLimit <= 0 {
		return p, "usage_limit must be > 0"
	}

	p.startsAt, err = time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return p, "invalid starts_at, use RFC3339"
	}
	p.endsAt, err = time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return p, "invalid ends_at, use RFC3339"
	}
	if !p.startsAt.Before(p.endsAt) {
		return p, "starts_at must be before ends_at"
	}

	return p, ""
}

// Create handles POST /restaurants/{rid}/discounts.
func (h *DiscountHandler) Create(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}
	if !enum.ValidDiscountType(req.Type) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid type"})
		return
	}

	parsed, msg := parseDiscountRequest(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	d, err := h.store.CreateDiscount(r.Context(), database.CreateDiscountParams{
		RestaurantID:      rid,
		Code:              req.Code,
		Type:              req.Type,
		Value:             parsed.value,
		MinOrderAmount:    parsed.minOrderAmount,
		MaxDiscountAmount: parsed.maxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		StartsAt:          parsed.startsAt,
		EndsAt:            parsed.endsAt,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "code already exists for this restaurant"})
			return
		}
		writeServiceError(w, "create discount", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDiscountResponse(d))
}

// List handles GET /restaurants/{rid}/discounts.
func (h *DiscountHandler) List(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	discounts, err := h.store.ListDiscountsByRestaurant(r.Context(), rid)
	if err != nil {
		writeServiceError(w, "list discounts", err)
		return
	}

	resp := make([]discountResponse, len(discounts))
	for i, d := range discounts {
		resp[i] = toDiscountResponse(d)
	}
	writeJSON(w, http.StatusOK, map[string]any{"discounts": resp})
}

// Update handles PUT /restaurants/{rid}/discounts/{id}. The code and type
// are immutable; reissue a new coupon instead of mutating those.
func (h *DiscountHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount ID"})
		return
	}

	var req discountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	parsed, msg := parseDiscountRequest(req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	d, err := h.store.UpdateDiscount(r.Context(), database.UpdateDiscountParams{
		ID:                id,
		RestaurantID:      rid,
		Value:             parsed.value,
		MinOrderAmount:    parsed.minOrderAmount,
		MaxDiscountAmount: parsed.maxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		StartsAt:          parsed.startsAt,
		EndsAt:            parsed.endsAt,
		IsActive:          isActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "discount not found"})
			return
		}
		// Lowering usage_limit below used_count trips the check constraint.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "usage_limit cannot be below the current used count"})
			return
		}
		writeServiceError(w, "update discount", err)
		return
	}
	writeJSON(w, http.StatusOK, toDiscountResponse(d))
}

// Delete handles DELETE /restaurants/{rid}/discounts/{id}.
func (h *DiscountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount ID"})
		return
	}

	if _, err := h.store.DeleteDiscount(r.Context(), database.DeleteDiscountParams{
		ID:           id,
		RestaurantID: rid,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "discount not found"})
			return
		}
		writeServiceError(w, "delete discount", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
