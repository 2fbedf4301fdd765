package service

import (
	"context"
	"fmt"
	"time"

	"github.com/devsanbid/quickbite/internal/database"
	"github.com/devsanbid/quickbite/internal/enum"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NotificationStore defines the DB methods needed by the notification
// service. Satisfied by *database.Queries.
type NotificationStore interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
}

// UserBroadcaster pushes a payload to a user's live websocket connections.
// Satisfied by *ws.Hub.
type UserBroadcaster interface {
	BroadcastToUser(userID uuid.UUID, payload any)
}

// NotificationPayload is the wire shape pushed over websockets.
type NotificationPayload struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationService stores notifications and pushes them to connected
// clients. Delivery is best effort; a failed insert is logged, never
// propagated to the caller's request.
type NotificationService struct {
	store NotificationStore
	hub   UserBroadcaster
}

// NewNotificationService creates a new NotificationService. hub may be nil
// when websockets are disabled.
func NewNotificationService(store NotificationStore, hub UserBroadcaster) *NotificationService {
	return &NotificationService{store: store, hub: hub}
}

// Notify records a notification for the user and pushes it live.
func (s *NotificationService) Notify(ctx context.Context, userID uuid.UUID, title, message, ntype string) {
	n, err := s.store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    ntype,
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("create notification")
		return
	}
	if s.hub != nil {
		s.hub.BroadcastToUser(userID, NotificationPayload{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			CreatedAt: n.CreatedAt,
		})
	}
}

// Broadcast sends an announcement to every user and returns how many were
// notified.
func (s *NotificationService) Broadcast(ctx context.Context, title, message string) (int, error) {
	if title == "" || message == "" {
		return 0, fmt.Errorf("%w: title and message are required", ErrValidation)
	}
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	for _, id := range ids {
		s.Notify(ctx, id, title, message, enum.NotificationAnnouncement)
	}
	return len(ids), nil
}
