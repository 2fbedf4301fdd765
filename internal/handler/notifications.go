package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// NotificationStore defines the database methods needed by notification
// handlers. Satisfied by *database.Queries; narrow interface for testability.
type NotificationStore interface {
	ListNotifications(ctx context.Context, arg database.ListNotificationsParams) ([]database.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, arg database.MarkNotificationReadParams) (database.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteNotification(ctx context.Context, arg database.DeleteNotificationParams) (uuid.UUID, error)
}

// Broadcaster sends an announcement to every active user.
// Satisfied by *service.NotificationService.
type Broadcaster interface {
	Broadcast(ctx context.Context, title, message string) (int, error)
}

// NotificationHandler handles the in-app notification endpoints.
type NotificationHandler struct {
	store       NotificationStore
	broadcaster Broadcaster
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore, broadcaster Broadcaster) *NotificationHandler {
	return &NotificationHandler{store: store, broadcaster: broadcaster}
}

// RegisterRoutes registers the authenticated notification endpoints.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/notifications", h.List)
	r.Get("/notifications/unread-count", h.UnreadCount)
	r.Patch("/notifications/{id}/read", h.MarkRead)
	r.Post("/notifications/read-all", h.MarkAllRead)
	r.Delete("/notifications/{id}", h.Delete)
}

// RegisterAdminRoutes registers the announcement endpoint.
func (h *NotificationHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/admin/announcements", h.Announce)
}

type notificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type announcementRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func toNotificationResponse(n database.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

// List handles GET /notifications. Supports unread_only=true and pagination.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit, offset := parsePagination(r)
	notifications, err := h.store.ListNotifications(r.Context(), database.ListNotificationsParams{
		UserID:     claims.UserID,
		UnreadOnly: r.URL.Query().Get("unread_only") == "true",
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		writeServiceError(w, "list notifications", err)
		return
	}

	resp := make([]notificationResponse, len(notifications))
	for i, n := range notifications {
		resp[i] = toNotificationResponse(n)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": resp})
}

// UnreadCount handles GET /notifications/unread-count.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	count, err := h.store.CountUnreadNotifications(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "count unread notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

// MarkRead handles PATCH /notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	n, err := h.store.MarkNotificationRead(r.Context(), database.MarkNotificationReadParams{
		ID:     id,
		UserID: claims.UserID,
		IsRead: true,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		writeServiceError(w, "mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}

// MarkAllRead handles POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	updated, err := h.store.MarkAllNotificationsRead(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, "mark all notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Delete handles DELETE /notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notification ID"})
		return
	}

	if _, err := h.store.DeleteNotification(r.Context(), database.DeleteNotificationParams{
		ID:     id,
		UserID: pgtype.UUID{Bytes: claims.UserID, Valid: true},
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "notification not found"})
			return
		}
		writeServiceError(w, "delete notification", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Announce handles POST /admin/announcements. Fans out a platform-wide
// announcement to every active user.
func (h *NotificationHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req announcementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	delivered, err := h.broadcaster.Broadcast(r.Context(), req.Title, req.Message)
	if err != nil {
		writeServiceError(w, "broadcast announcement", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"delivered": delivered})
}
