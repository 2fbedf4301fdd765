package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/devsanbid/quickbite/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserProfile(ctx context.Context, arg database.UpdateUserProfileParams) (database.User, error)
	UpdateUserRole(ctx context.Context, arg database.UpdateUserRoleParams) (database.User, error)
	SetUserActive(ctx context.Context, arg database.SetUserActiveParams) (database.User, error)
	ListUsers(ctx context.Context, arg database.ListUsersParams) ([]database.User, error)
	ArchiveUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	AddFavorite(ctx context.Context, arg database.FavoriteParams) error
	RemoveFavorite(ctx context.Context, arg database.FavoriteParams) error
	ListFavoriteRestaurants(ctx context.Context, userID uuid.UUID) ([]database.Restaurant, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (database.Restaurant, error)
}

// UserHandler handles profile, favorites, and admin user management.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers the authenticated user endpoints.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/me", h.Me)
	r.Patch("/users/me", h.UpdateMe)
	r.Get("/users/me/favorites", h.ListFavorites)
	r.Put("/users/me/favorites/{rid}", h.AddFavorite)
	r.Delete("/users/me/favorites/{rid}", h.RemoveFavorite)
}

// RegisterAdminRoutes registers the admin user management endpoints.
func (h *UserHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/admin/users", h.List)
	r.Patch("/admin/users/{id}/role", h.UpdateRole)
	r.Patch("/admin/users/{id}/active", h.SetActive)
	r.Delete("/admin/users/{id}", h.Archive)
}

type updateProfileRequest struct {
	FullName string `json:"full_name"`
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// Me handles GET /users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeServiceError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateMe handles PATCH /users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name is required"})
		return
	}

	user, err := h.store.UpdateUserProfile(r.Context(), database.UpdateUserProfileParams{
		ID:       claims.UserID,
		FullName: req.FullName,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeServiceError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// ListFavorites handles GET /users/me/favorites.
func (h *UserHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	restaurants, err := h.store.ListFavoriteRestaurants(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "list favorites", err)
		return
	}

	resp := make([]restaurantResponse, len(restaurants))
	for i, rt := range restaurants {
		resp[i] = toRestaurantResponse(rt)
	}
	writeJSON(w, http.StatusOK, map[string]any{"restaurants": resp})
}

// AddFavorite handles PUT /users/me/favorites/{rid}. Adding twice is a no-op.
func (h *UserHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

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

	if err := h.store.AddFavorite(r.Context(), database.FavoriteParams{
		UserID:       claims.UserID,
		RestaurantID: rid,
	}); err != nil {
		writeServiceError(w, "add favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite handles DELETE /users/me/favorites/{rid}.
func (h *UserHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	rid, err := uuid.Parse(chi.URLParam(r, "rid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid restaurant ID"})
		return
	}

	if err := h.store.RemoveFavorite(r.Context(), database.FavoriteParams{
		UserID:       claims.UserID,
		RestaurantID: rid,
	}); err != nil {
		writeServiceError(w, "remove favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /admin/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListUsersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("role"); s != "" {
		if !enum.ValidRole(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
			return
		}
		params.Role = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}

	users, err := h.store.ListUsers(r.Context(), params)
	if err != nil {
		writeServiceError(w, "list users", err)
		return
	}

	resp := make([]userResponse, len(users))
	for i, u := range users {
		resp[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users":  resp,
		"limit":  limit,
		"offset": offset,
	})
}

// UpdateRole handles PATCH /admin/users/{id}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.ValidRole(req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	// Only a super admin may grant admin-level roles.
	claims := middleware.ClaimsFromContext(r.Context())
	if (req.Role == enum.RoleAdmin || req.Role == enum.RoleSuperAdmin) &&
		(claims == nil || claims.Role != enum.RoleSuperAdmin) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only a super admin can grant admin roles"})
		return
	}

	user, err := h.store.UpdateUserRole(r.Context(), database.UpdateUserRoleParams{
		ID:   id,
		Role: req.Role,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeServiceError(w, "update user role", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// SetActive handles PATCH /admin/users/{id}/active.
func (h *UserHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	var req setActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	user, err := h.store.SetUserActive(r.Context(), database.SetUserActiveParams{
		ID:       id,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeServiceError(w, "set user active", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Archive handles DELETE /admin/users/{id}. Soft delete; the row survives
// for order history and reporting.
func (h *UserHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return
	}

	if _, err := h.store.ArchiveUser(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		writeServiceError(w, "archive user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
