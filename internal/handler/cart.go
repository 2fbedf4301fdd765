package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/devsanbid/quickbite/internal/cart"
	"github.com/devsanbid/quickbite/internal/middleware"
	"github.com/devsanbid/quickbite/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CartServicer defines the service methods needed by cart handlers.
// Satisfied by *service.CartService; narrow interface for testability.
type CartServicer interface {
	AddItem(ctx context.Context, userID, restaurantID, menuItemID uuid.UUID, quantity int32, customizations string) (*cart.Cart, error)
	UpdateItem(ctx context.Context, userID, menuItemID uuid.UUID, quantity int32) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, menuItemID uuid.UUID) (*cart.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	ApplyCoupon(ctx context.Context, userID uuid.UUID, code string) (*cart.Cart, error)
	RemoveCoupon(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	GetQuote(ctx context.Context, userID uuid.UUID) (*service.CartQuote, error)
}

// CartHandler handles the customer cart endpoints.
type CartHandler struct {
	svc CartServicer
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(svc CartServicer) *CartHandler {
	return &CartHandler{svc: svc}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cart", h.Get)
	r.Delete("/cart", h.Clear)
	r.Post("/cart/items", h.AddItem)
	r.Patch("/cart/items/{itemID}", h.UpdateItem)
	r.Delete("/cart/items/{itemID}", h.RemoveItem)
	r.Post("/cart/coupon", h.ApplyCoupon)
	r.Delete("/cart/coupon", h.RemoveCoupon)
}

// --- Request / Response types ---

type addItemRequest struct {
	RestaurantID   string `json:"restaurant_id"`
	MenuItemID     string `json:"menu_item_id"`
	Quantity       int32  `json:"quantity"`
	Customizations string `json:"customizations"`
}

type updateItemRequest struct {
	Quantity int32 `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

type cartLineResponse struct {
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	Customizations string    `json:"customizations,omitempty"`
}

type cartResponse struct {
	RestaurantID *uuid.UUID         `json:"restaurant_id"`
	Items        []cartLineResponse `json:"items"`
	CouponCode   string             `json:"coupon_code,omitempty"`
}

type quoteResponse struct {
	Subtotal       string `json:"subtotal"`
	DiscountAmount string `json:"discount_amount"`
	DeliveryFee    string `json:"delivery_fee"`
	Total          string `json:"total"`
	CouponCode     string `json:"coupon_code,omitempty"`
	CouponDropped  bool   `json:"coupon_dropped,omitempty"`
	DropReason     string `json:"drop_reason,omitempty"`
}

type cartQuoteResponse struct {
	cartResponse
	Quote quoteResponse `json:"quote"`
}

func toCartResponse(c *cart.Cart) cartResponse {
	resp := cartResponse{Items: make([]cartLineResponse, len(c.Items)), CouponCode: c.CouponCode}
	if c.RestaurantID != uuid.Nil {
		rid := c.RestaurantID
		resp.RestaurantID = &rid
	}
	for i, l := range c.Items {
		resp.Items[i] = cartLineResponse{
			MenuItemID:     l.MenuItemID,
			Name:           l.Name,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			Customizations: l.Customizations,
		}
	}
	return resp
}

func toQuoteResponse(q service.Quote) quoteResponse {
	return quoteResponse{
		Subtotal:       q.Subtotal.StringFixed(2),
		DiscountAmount: q.DiscountAmount.StringFixed(2),
		DeliveryFee:    q.DeliveryFee.StringFixed(2),
		Total:          q.Total.StringFixed(2),
		CouponCode:     q.CouponCode,
		CouponDropped:  q.CouponDropped,
		DropReason:     q.DropReason,
	}
}

// --- Handlers ---

// Get handles GET /cart. Always includes the computed quote.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	cq, err := h.svc.GetQuote(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "get cart", err)
		return
	}
	writeJSON(w, http.StatusOK, cartQuoteResponse{
		cartResponse: toCartResponse(cq.Cart),
		Quote:        toQuoteResponse(cq.Quote),
	})
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	restaurantID, err := uuid.Parse(req.RestaurantID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant_id"})
		return
	}
	menuItemID, err := uuid.Parse(req.MenuItemID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu_item_id"})
		return
	}

	c, err := h.svc.AddItem(r.Context(), claims.UserID, restaurantID, menuItemID, req.Quantity, req.Customizations)
	if err != nil {
		writeServiceError(w, "add cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// UpdateItem handles PATCH /cart/items/{itemID}. Quantity zero removes.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	menuItemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := h.svc.UpdateItem(r.Context(), claims.UserID, menuItemID, req.Quantity)
	if err != nil {
		writeServiceError(w, "update cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveItem handles DELETE /cart/items/{itemID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	menuItemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu item ID"})
		return
	}

	c, err := h.svc.RemoveItem(r.Context(), claims.UserID, menuItemID)
	if err != nil {
		writeServiceError(w, "remove cart item", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// Clear handles DELETE /cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := h.svc.Clear(r.Context(), claims.UserID); err != nil {
		writeServiceError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCoupon handles POST /cart/coupon.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c, err := h.svc.ApplyCoupon(r.Context(), claims.UserID, req.Code)
	if err != nil {
		writeServiceError(w, "apply coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

// RemoveCoupon handles DELETE /cart/coupon.
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	c, err := h.svc.RemoveCoupon(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "remove coupon", err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}
