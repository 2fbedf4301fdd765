package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const notificationColumns = `id, user_id, title, message, type, is_read, read_at, created_at`

func scanNotification(row interface{ Scan(...any) error }) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	return n, err
}

type CreateNotificationParams struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Type    string
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, type)
		VALUES ($1, $2, $3, $4)
		RETURNING `+notificationColumns,
		arg.UserID, arg.Title, arg.Message, arg.Type)
	return scanNotification(row)
}

type ListNotificationsParams struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Limit      int32
	Offset     int32
}

func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2::bool OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`,
		arg.UserID, arg.UnreadOnly, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (q *Queries) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `
		SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`, userID).Scan(&count)
	return count, err
}

type MarkNotificationReadParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	IsRead bool
}

// MarkNotificationRead toggles read state; read_at follows the flag.
func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE notifications SET
			is_read = $3,
			read_at = CASE WHEN $3 THEN now() ELSE NULL END
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns,
		arg.ID, arg.UserID, arg.IsRead)
	return scanNotification(row)
}

func (q *Queries) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE notifications SET is_read = true, read_at = now()
		WHERE user_id = $1 AND NOT is_read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type DeleteNotificationParams struct {
	ID     uuid.UUID
	UserID pgtype.UUID // unset for admin deletes
}

func (q *Queries) DeleteNotification(ctx context.Context, arg DeleteNotificationParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, `
		DELETE FROM notifications
		WHERE id = $1 AND ($2::uuid IS NULL OR user_id = $2)
		RETURNING id`, arg.ID, arg.UserID).Scan(&id)
	return id, err
}
