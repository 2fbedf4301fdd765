package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/handler"
	"github.com/devsanbid/quickbite/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Mock DiscountStore ---

type mockDiscountStore struct {
	createDiscountFn func(ctx context.Context, arg database.CreateDiscountParams) (database.Discount, error)
	listDiscountsFn  func(ctx context.Context, restaurantID uuid.UUID) ([]database.Discount, error)
	updateDiscountFn func(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error)
	deleteDiscountFn func(ctx context.Context, arg database.DeleteDiscountParams) (uuid.UUID, error)
}

func (m *mockDiscountStore) CreateDiscount(ctx context.Context, arg database.CreateDiscountParams) (database.Discount, error) {
	if m.createDiscountFn != nil {
		return m.createDiscountFn(ctx, arg)
	}
	return database.Discount{}, pgx.ErrNoRows
}

func (m *mockDiscountStore) ListDiscountsByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]database.Discount, error) {
	if m.listDiscountsFn != nil {
		return m.listDiscountsFn(ctx, restaurantID)
	}
	return nil, nil
}

func (m *mockDiscountStore) UpdateDiscount(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error) {
	if m.updateDiscountFn != nil {
		return m.updateDiscountFn(ctx, arg)
	}
	return database.Discount{}, pgx.ErrNoRows
}

func (m *mockDiscountStore) DeleteDiscount(ctx context.Context, arg database.DeleteDiscountParams) (uuid.UUID, error) {
	if m.deleteDiscountFn != nil {
		return m.deleteDiscountFn(ctx, arg)
	}
	return uuid.Nil, pgx.ErrNoRows
}

// --- Setup ---

func setupDiscountRouter(store handler.DiscountStore) *chi.Mux {
	h := handler.NewDiscountHandler(store)
	r := chi.NewRouter()
	r.Route("/restaurants/{rid}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(testJWTSecret))
			r.Use(middleware.RequireRestaurant)
			h.RegisterRoutes(r)
		})
	})
	return r
}

func discountPayload() map[string]interface{} {
	now := time.Now().UTC()
	return map[string]interface{}{
		"code":        "SAVE10",
		"type":        enum.DiscountTypePercentage,
		"value":       "10",
		"usage_limit": 5,
		"starts_at":   now.Format(time.RFC3339),
		"ends_at":     now.Add(24 * time.Hour).Format(time.RFC3339),
	}
}

// --- Tests ---

func TestDiscountUpdate_Success(t *testing.T) {
	restaurantID := uuid.New()
	discountID := uuid.New()

	store := &mockDiscountStore{
		updateDiscountFn: func(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error) {
			return database.Discount{
				ID:           arg.ID,
				RestaurantID: arg.RestaurantID,
				Code:         "SAVE10",
				Type:         enum.DiscountTypePercentage,
				Value:        arg.Value,
				UsageLimit:   arg.UsageLimit,
				UsedCount:    2,
				StartsAt:     arg.StartsAt,
				EndsAt:       arg.EndsAt,
				IsActive:     arg.IsActive,
			}, nil
		},
	}

	router := setupDiscountRouter(store)
	rr := doAuthRequest(t, router, "PUT",
		"/restaurants/"+restaurantID.String()+"/discounts/"+discountID.String(),
		discountPayload(), restaurantClaims(restaurantID))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["code"] != "SAVE10" {
		t.Errorf("code: got %v, want SAVE10", resp["code"])
	}
	if resp["value"] != "10.00" {
		t.Errorf("value: got %v, want 10.00", resp["value"])
	}
}

func TestDiscountUpdate_UsageLimitBelowUsedCount(t *testing.T) {
	restaurantID := uuid.New()

	store := &mockDiscountStore{
		updateDiscountFn: func(ctx context.Context, arg database.UpdateDiscountParams) (database.Discount, error) {
			return database.Discount{}, &pgconn.PgError{Code: "23514"}
		},
	}

	router := setupDiscountRouter(store)
	rr := doAuthRequest(t, router, "PUT",
		"/restaurants/"+restaurantID.String()+"/discounts/"+uuid.New().String(),
		discountPayload(), restaurantClaims(restaurantID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}

func TestDiscountUpdate_NotFound(t *testing.T) {
	restaurantID := uuid.New()

	router := setupDiscountRouter(&mockDiscountStore{})
	rr := doAuthRequest(t, router, "PUT",
		"/restaurants/"+restaurantID.String()+"/discounts/"+uuid.New().String(),
		discountPayload(), restaurantClaims(restaurantID))

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNotFound, rr.Body.String())
	}
}

func TestDiscountCreate_DuplicateCode(t *testing.T) {
	restaurantID := uuid.New()

	store := &mockDiscountStore{
		createDiscountFn: func(ctx context.Context, arg database.CreateDiscountParams) (database.Discount, error) {
			return database.Discount{}, &pgconn.PgError{Code: "23505"}
		},
	}

	router := setupDiscountRouter(store)
	rr := doAuthRequest(t, router, "POST",
		"/restaurants/"+restaurantID.String()+"/discounts",
		discountPayload(), restaurantClaims(restaurantID))

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}
