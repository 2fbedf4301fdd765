package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
)

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// RestaurantStore defines the database methods needed by restaurant handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type RestaurantStore interface {
	CreateRestaurant(ctx context.Context, arg database.CreateRestaurantParams) (database.Restaurant, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
	ListRestaurants(ctx context.Context, arg database.ListRestaurantsParams) ([]database.Restaurant, error)
	UpdateRestaurant(ctx context.Context, arg database.UpdateRestaurantParams) (database.Restaurant, error)
	SetRestaurantActive(ctx context.Context, arg database.SetRestaurantActiveParams) (database.Restaurant, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListMenuItems(ctx context.Context, restaurantID uuid.UUID) ([]database.MenuItem, error)
}

// RestaurantHandler handles restaurant discovery and management endpoints.
type RestaurantHandler struct {
	store         RestaurantStore
	publicBaseURL string
}

// NewRestaurantHandler creates a new RestaurantHandler.
func NewRestaurantHandler(store RestaurantStore, publicBaseURL string) *RestaurantHandler {
	return &RestaurantHandler{store: store, publicBaseURL: publicBaseURL}
}

// RegisterPublicRoutes registers the unauthenticated discovery endpoints,
// relative to /restaurants.
func (h *RestaurantHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/", h.List)
}

// RegisterPublicDetailRoutes registers the public single-restaurant
// endpoints, relative to /restaurants/{rid}.
func (h *RestaurantHandler) RegisterPublicDetailRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Get("/menu", h.Menu)
	r.Get("/qrcode", h.QRCode)
}

// RegisterOwnerRoutes registers restaurant-scoped management endpoints,
// relative to /restaurants/{rid}. Expected to be registered behind
// RequireRestaurant.
func (h *RestaurantHandler) RegisterOwnerRoutes(r chi.Router) {
	r.Put("/", h.Update)
}

// RegisterAdminRoutes registers the admin restaurant endpoints.
func (h *RestaurantHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/restaurants", h.Create)
	r.Patch("/admin/restaurants/{rid}/active", h.SetActive)
}

// --- Request / Response types ---

type restaurantPayload struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	OpensAt        string `json:"opens_at"`
	ClosesAt       string `json:"closes_at"`
	DeliveryFee    string `json:"delivery_fee"`
	MinOrderAmount string `json:"min_order_amount"`
	BankName       string `json:"bank_name"`
	BankAccount    string `json:"bank_account"`
}

type createRestaurantRequest struct {
	restaurantPayload
	OwnerID string `json:"owner_id"`
}

type restaurantResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	Address        *string   `json:"address"`
	Phone          *string   `json:"phone"`
	IsActive       bool      `json:"is_active"`
	OpensAt        *string   `json:"opens_at"`
	ClosesAt       *string   `json:"closes_at"`
	DeliveryFee    string    `json:"delivery_fee"`
	MinOrderAmount string    `json:"min_order_amount"`
	CreatedAt      time.Time `json:"created_at"`
}

type menuItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Price       string    `json:"price"`
	IsAvailable bool      `json:"is_available"`
}

func toRestaurantResponse(rt database.Restaurant) restaurantResponse {
	return restaurantResponse{
		ID:             rt.ID,
		Name:           rt.Name,
		Description:    textOrNil(rt.Description),
		Address:        textOrNil(rt.Address),
		Phone:          textOrNil(rt.Phone),
		IsActive:       rt.IsActive,
		OpensAt:        textOrNil(rt.OpensAt),
		ClosesAt:       textOrNil(rt.ClosesAt),
		DeliveryFee:    numericToString(rt.DeliveryFee),
		MinOrderAmount: numericToString(rt.MinOrderAmount),
		CreatedAt:      rt.CreatedAt,
	}
}

func toMenuItemResponse(m database.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: textOrNil(m.Description),
		Category:    textOrNil(m.Category),
		Price:       numericToString(m.Price),
		IsAvailable: m.IsAvailable,
	}
}

// --- Handlers ---

// List handles GET /restaurants. Only active restaurants are listed.
func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListRestaurantsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}

	restaurants, err := h.store.ListRestaurants(r.Context(), params)
	if err != nil {
		writeServiceError(w, "list restaurants", err)
		return
	}

	resp := make([]restaurantResponse, len(restaurants))
	for i, rt := range restaurants {
		resp[i] = toRestaurantResponse(rt)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restaurants": resp,
		"limit":       limit,
		"offset":      offset,
	})
}

// Get handles GET /restaurants/{rid}.
func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	rt, err := h.store.GetRestaurant(r.Context(), rid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		writeServiceError(w, "get restaurant", err)
		return
	}
	writeJSON(w, http.StatusOK, toRestaurantResponse(rt))
}

// Menu handles GET /restaurants/{rid}/menu.
func (h *RestaurantHandler) Menu(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	if _, err := h.store.GetRestaurant(r.Context(), rid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		writeServiceError(w, "get restaurant", err)
		return
	}

	items, err := h.store.ListMenuItems(r.Context(), rid)
	if err != nil {
		writeServiceError(w, "list menu items", err)
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, m := range items {
		resp[i] = toMenuItemResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": resp})
}

// QRCode handles GET /restaurants/{rid}/qrcode. Returns a PNG that links
// to the restaurant's public menu, for table tents and flyers.
func (h *RestaurantHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	if _, err := h.store.GetRestaurant(r.Context(), rid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		writeServiceError(w, "get restaurant", err)
		return
	}

	url := h.publicBaseURL + "/restaurants/" + rid.String() + "/menu"
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		writeServiceError(w, "encode qr code", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Create handles POST /admin/restaurants. The owner account must already
// exist; creating the restaurant is what makes it an owner.
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" || req.OwnerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and owner_id are required"})
		return
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid owner_id"})
		return
	}

	if _, err := h.store.GetUserByID(r.Context(), ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "owner not found"})
			return
		}
		writeServiceError(w, "get owner", err)
		return
	}

	params := database.CreateRestaurantParams{OwnerID: ownerID, Name: req.Name}
	if msg := fillRestaurantParams(&params.Description, &params.Address, &params.Phone,
		&params.OpensAt, &params.ClosesAt, &params.DeliveryFee, &params.MinOrderAmount,
		req.restaurantPayload); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rt, err := h.store.CreateRestaurant(r.Context(), params)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "owner already has a restaurant"})
			return
		}
		writeServiceError(w, "create restaurant", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRestaurantResponse(rt))
}

// Update handles PUT /restaurants/{rid}. Full replace of the editable fields.
func (h *RestaurantHandler) Update(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req restaurantPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	params := database.UpdateRestaurantParams{ID: rid, Name: req.Name}
	if msg := fillRestaurantParams(&params.Description, &params.Address, &params.Phone,
		&params.OpensAt, &params.ClosesAt, &params.DeliveryFee, &params.MinOrderAmount,
		req); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if req.BankName != "" {
		params.BankName = pgtype.Text{String: req.BankName, Valid: true}
	}
	if req.BankAccount != "" {
		params.BankAccount = pgtype.Text{String: req.BankAccount, Valid: true}
	}

	rt, err := h.store.UpdateRestaurant(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		writeServiceError(w, "update restaurant", err)
		return
	}
	writeJSON(w, http.StatusOK, toRestaurantResponse(rt))
}

// SetActive handles PATCH /admin/restaurants/{rid}/active.
func (h *RestaurantHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rt, err := h.store.SetRestaurantActive(r.Context(), database.SetRestaurantActiveParams{
		ID:       rid,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "restaurant not found"})
			return
		}
		writeServiceError(w, "set restaurant active", err)
		return
	}
	writeJSON(w, http.StatusOK, toRestaurantResponse(rt))
}

// --- Helpers ---

// fillRestaurantParams validates and converts the shared payload fields.
// Returns an error message suitable for a 400 response, or "".
func fillRestaurantParams(description, address, phone, opensAt, closesAt *pgtype.Text,
	deliveryFee, minOrderAmount *pgtype.Numeric, req restaurantPayload) string {
	if req.Description != "" {
		*description = pgtype.Text{String: req.Description, Valid: true}
	}
	if req.Address != "" {
		*address = pgtype.Text{String: req.Address, Valid: true}
	}
	if req.Phone != "" {
		*phone = pgtype.Text{String: req.Phone, Valid: true}
	}
	if req.OpensAt != "" {
		if !hhmmRe.MatchString(req.OpensAt) {
			return "opens_at must be HH:MM"
		}
		*opensAt = pgtype.Text{String: req.OpensAt, Valid: true}
	}
	if req.ClosesAt != "" {
		if !hhmmRe.MatchString(req.ClosesAt) {
			return "closes_at must be HH:MM"
		}
		*closesAt = pgtype.Text{String: req.ClosesAt, Valid: true}
	}

	fee := decimal.Zero
	if req.DeliveryFee != "" {
		var err error
		fee, err = decimal.NewFromString(req.DeliveryFee)
		if err != nil || fee.IsNegative() {
			return "invalid delivery_fee"
		}
	}
	deliveryFee.Scan(fee.StringFixed(2)) //nolint:errcheck

	minOrder := decimal.Zero
	if req.MinOrderAmount != "" {
		var err error
		minOrder, err = decimal.NewFromString(req.MinOrderAmount)
		if err != nil || minOrder.IsNegative() {
			return "invalid min_order_amount"
		}
	}
	minOrderAmount.Scan(minOrder.StringFixed(2)) //nolint:errcheck

	return ""
}
