package repository

import (
	"context"
	"database/sql"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/pkg/errors"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (user_id, title, message, type, metadata, read)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.Metadata,
		n.Read,
	).Scan(&n.ID, &n.CreatedAt)
	return errors.Wrap(err, "failed to create notification")
}

func (r *notificationRepository) List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, metadata, read, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly, limitOrDefault(limit), offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list notifications")
	}
	defer rows.Close()

	var out []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.Metadata,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan notification")
		}
		out = append(out, &n)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate notifications")
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`, userID).Scan(&count)
	return count, errors.Wrap(err, "failed to count unread notifications")
}

// MarkAsRead only touches the row when it belongs to userID.
func (r *notificationRepository) MarkAsRead(ctx context.Context, userID, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return errors.Wrap(err, "failed to mark notification as read")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return entity.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to mark notifications as read")
	}
	n, err := result.RowsAffected()
	return n, errors.Wrap(err, "failed to get rows affected")
}
