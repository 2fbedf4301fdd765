package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devsanbid/quickbite/internal/auth"
	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/metrics"
	"github.com/devsanbid/quickbite/internal/middleware"
	"github.com/devsanbid/quickbite/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*service.CheckoutResult, error)
	Transition(ctx context.Context, actor service.Actor, orderID uuid.UUID, newStatus, note string) (database.Order, error)
	Cancel(ctx context.Context, actor service.Actor, orderID uuid.UUID, reason string) (database.Order, error)
	Reorder(ctx context.Context, userID, orderID uuid.UUID) (*service.ReorderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListStatusHistoryByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusHistory, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers the authenticated order endpoints.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/orders", h.Checkout)
	r.Get("/orders", h.ListMine)
	r.Get("/orders/{id}", h.Get)
	r.Get("/orders/{id}/history", h.History)
	r.Post("/orders/{id}/cancel", h.Cancel)
	r.Post("/orders/{id}/reorder", h.Reorder)
	r.Patch("/orders/{id}/status", h.UpdateStatus)
}

// RegisterOwnerRoutes registers restaurant-scoped order listings, relative
// to /restaurants/{rid}. Expected to be registered behind RequireRestaurant.
func (h *OrderHandler) RegisterOwnerRoutes(r chi.Router) {
	r.Get("/orders", h.ListForRestaurant)
}

// RegisterAdminRoutes registers the platform-wide order listing.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/orders", h.ListAll)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type orderResponse struct {
	ID             uuid.UUID           `json:"id"`
	OrderNumber    string              `json:"order_number"`
	UserID         uuid.UUID           `json:"user_id"`
	RestaurantID   uuid.UUID           `json:"restaurant_id"`
	Status         string              `json:"status"`
	CouponCode     *string             `json:"coupon_code"`
	Subtotal       string              `json:"subtotal"`
	DiscountAmount string              `json:"discount_amount"`
	DeliveryFee    string              `json:"delivery_fee"`
	TotalAmount    string              `json:"total_amount"`
	DeliveredAt    *time.Time          `json:"delivered_at"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	MenuItemID     uuid.UUID `json:"menu_item_id"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPrice      string    `json:"unit_price"`
	Customizations *string   `json:"customizations"`
}

type historyEntryResponse struct {
	Status    string     `json:"status"`
	Note      *string    `json:"note"`
	ActorID   *uuid.UUID `json:"actor_id"`
	CreatedAt time.Time  `json:"created_at"`
}

type checkoutResponse struct {
	orderResponse
	Quote quoteResponse `json:"quote"`
}

type reorderResponse struct {
	cartResponse
	Dropped []string `json:"dropped_items,omitempty"`
}

func dbOrderToResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		RestaurantID:   o.RestaurantID,
		Status:         o.Status,
		CouponCode:     textOrNil(o.CouponCode),
		Subtotal:       numericToString(o.Subtotal),
		DiscountAmount: numericToString(o.DiscountAmount),
		DeliveryFee:    numericToString(o.DeliveryFee),
		TotalAmount:    numericToString(o.TotalAmount),
		DeliveredAt:    timeOrNil(o.DeliveredAt),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func dbOrderItemToResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:             it.ID,
		MenuItemID:     it.MenuItemID,
		Name:           it.Name,
		Quantity:       it.Quantity,
		UnitPrice:      numericToString(it.UnitPrice),
		Customizations: textOrNil(it.Customizations),
	}
}

func actorFromClaims(claims *auth.Claims) service.Actor {
	return service.Actor{
		UserID:       claims.UserID,
		Role:         claims.Role,
		RestaurantID: claims.RestaurantID,
	}
}

// --- Handlers ---

// Checkout handles POST /orders. The body is empty; the order is built
// from the user's cart.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.Checkout(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "checkout", err)
		return
	}
	metrics.OrderPlaced()

	resp := checkoutResponse{
		orderResponse: dbOrderToResponse(result.Order),
		Quote:         toQuoteResponse(result.Quote),
	}
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(it)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListMine handles GET /orders: the caller's own orders.
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	params.UserID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	h.respondList(w, r, params)
}

// ListForRestaurant handles GET /restaurants/{rid}/orders.
func (h *OrderHandler) ListForRestaurant(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	params.RestaurantID = pgtype.UUID{Bytes: rid, Valid: true}
	h.respondList(w, r, params)
}

// ListAll handles GET /admin/orders: every order on the platform, with the
// same filters as the scoped listings plus an optional restaurant_id.
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	params, ok := h.listParams(w, r)
	if !ok {
		return
	}
	if s := r.URL.Query().Get("restaurant_id"); s != "" {
		rid, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant_id"})
			return
		}
		params.RestaurantID = pgtype.UUID{Bytes: rid, Valid: true}
	}
	h.respondList(w, r, params)
}

func (h *OrderHandler) listParams(w http.ResponseWriter, r *http.Request) (database.ListOrdersParams, bool) {
	limit, offset := parsePagination(r)
	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		if !enum.ValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return params, false
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return params, false
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return params, false
		}
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}
	return params, true
}

func (h *OrderHandler) respondList(w http.ResponseWriter, r *http.Request, params database.ListOrdersParams) {
	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeServiceError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orders": resp,
		"limit":  params.Limit,
		"offset": params.Offset,
	})
}

// Get handles GET /orders/{id}. Visible to the customer who placed it,
// the restaurant it belongs to, and admins.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, ok := h.fetchVisibleOrder(w, r, claims, orderID)
	if !ok {
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list order items", err)
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = dbOrderItemToResponse(it)
	}
	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /orders/{id}/history.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	if _, ok := h.fetchVisibleOrder(w, r, claims, orderID); !ok {
		return
	}

	entries, err := h.store.ListStatusHistoryByOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, "list status history", err)
		return
	}

	resp := make([]historyEntryResponse, len(entries))
	for i, e := range entries {
		entry := historyEntryResponse{
			Status:    e.Status,
			Note:      textOrNil(e.Note),
			CreatedAt: e.CreatedAt,
		}
		if e.ActorID.Valid {
			id := uuid.UUID(e.ActorID.Bytes)
			entry.ActorID = &id
		}
		resp[i] = entry
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": resp})
}

// UpdateStatus handles PATCH /orders/{id}/status. Restaurant staff and
// admins only; the service enforces ownership and the transition rules.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	updated, err := h.svc.Transition(r.Context(), actorFromClaims(claims), orderID, req.Status, req.Note)
	if err != nil {
		writeServiceError(w, "update order status", err)
		return
	}
	metrics.OrderTransitioned(updated.Status)
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req cancelRequest
	if r.Body != nil {
		// Body is optional for customer cancels.
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
	}

	updated, err := h.svc.Cancel(r.Context(), actorFromClaims(claims), orderID, req.Reason)
	if err != nil {
		writeServiceError(w, "cancel order", err)
		return
	}
	metrics.OrderTransitioned(updated.Status)
	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// Reorder handles POST /orders/{id}/reorder.
func (h *OrderHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	result, err := h.svc.Reorder(r.Context(), claims.UserID, orderID)
	if err != nil {
		writeServiceError(w, "reorder", err)
		return
	}
	writeJSON(w, http.StatusOK, reorderResponse{
		cartResponse: toCartResponse(result.Cart),
		Dropped:      result.Dropped,
	})
}

// fetchVisibleOrder loads an order and enforces read access.
func (h *OrderHandler) fetchVisibleOrder(w http.ResponseWriter, r *http.Request, claims *auth.Claims, orderID uuid.UUID) (database.Order, bool) {
	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return order, false
		}
		writeServiceError(w, "get order", err)
		return order, false
	}

	isAdmin := claims.Role == enum.RoleAdmin || claims.Role == enum.RoleSuperAdmin
	ownsOrder := order.UserID == claims.UserID
	ownsRestaurant := claims.Role == enum.RoleRestaurant && claims.RestaurantID == order.RestaurantID
	if !isAdmin && !ownsOrder && !ownsRestaurant {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied for this order"})
		return order, false
	}
	return order, true
}
