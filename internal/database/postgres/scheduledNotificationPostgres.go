package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/pkg/errors"
)

const scheduledColumns = `id, scheduled_for, title, message, type, user_id, metadata, send_email, send_push,
	sent, failed, attempts, last_error, next_attempt_at, created_at`

type scheduledNotificationRepository struct {
	db *sql.DB
}

func NewScheduledNotificationRepository(db *sql.DB) ScheduledNotificationRepository {
	return &scheduledNotificationRepository{db: db}
}

func scanScheduled(s rowScanner) (*entity.ScheduledNotification, error) {
	var (
		sn          entity.ScheduledNotification
		sendEmail   sql.NullBool
		sendPush    sql.NullBool
		nextAttempt sql.NullTime
	)
	err := s.Scan(
		&sn.ID,
		&sn.ScheduledFor,
		&sn.Title,
		&sn.Message,
		&sn.Type,
		&sn.UserID,
		&sn.Metadata,
		&sendEmail,
		&sendPush,
		&sn.Sent,
		&sn.Failed,
		&sn.Attempts,
		&sn.LastError,
		&nextAttempt,
		&sn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if sendEmail.Valid {
		sn.SendEmail = &sendEmail.Bool
	}
	if sendPush.Valid {
		sn.SendPush = &sendPush.Bool
	}
	if nextAttempt.Valid {
		sn.NextAttemptAt = &nextAttempt.Time
	}
	return &sn, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func (r *scheduledNotificationRepository) Create(ctx context.Context, sn *entity.ScheduledNotification) error {
	query := `
		INSERT INTO scheduled_notifications (scheduled_for, title, message, type, user_id, metadata, send_email, send_push)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		sn.ScheduledFor,
		sn.Title,
		sn.Message,
		sn.Type,
		sn.UserID,
		sn.Metadata,
		nullBool(sn.SendEmail),
		nullBool(sn.SendPush),
	).Scan(&sn.ID, &sn.CreatedAt)
	return errors.Wrap(err, "failed to create scheduled notification")
}

func (r *scheduledNotificationRepository) GetByID(ctx context.Context, id int64) (*entity.ScheduledNotification, error) {
	query := `SELECT ` + scheduledColumns + ` FROM scheduled_notifications WHERE id = $1`

	sn, err := scanScheduled(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, entity.ErrScheduledNotificationNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get scheduled notification")
	}
	return sn, nil
}

func (r *scheduledNotificationRepository) List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*entity.ScheduledNotification, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_notifications
		WHERE ($1 = FALSE OR (sent = FALSE AND failed = FALSE))
		ORDER BY scheduled_for, id
		LIMIT $2 OFFSET $3
	`
	return r.query(ctx, query, pendingOnly, limitOrDefault(limit), offset)
}

// FindDue returns unsent, live rows whose time and retry delay have passed.
func (r *scheduledNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.ScheduledNotification, error) {
	query := `
		SELECT ` + scheduledColumns + `
		FROM scheduled_notifications
		WHERE sent = FALSE
		  AND failed = FALSE
		  AND scheduled_for <= $1
		  AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		ORDER BY scheduled_for, id
		LIMIT $2
	`
	return r.query(ctx, query, now, limitOrDefault(limit))
}

func (r *scheduledNotificationRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.ScheduledNotification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query scheduled notifications")
	}
	defer rows.Close()

	var out []*entity.ScheduledNotification
	for rows.Next() {
		sn, err := scanScheduled(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scheduled notification")
		}
		out = append(out, sn)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate scheduled notifications")
}

func (r *scheduledNotificationRepository) MarkSent(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE scheduled_notifications SET sent = TRUE, next_attempt_at = NULL WHERE id = $1`, id)
}

func (r *scheduledNotificationRepository) RecordFailure(ctx context.Context, id int64, attempts int, lastError string, nextAttemptAt time.Time) error {
	return r.exec(ctx,
		`UPDATE scheduled_notifications SET attempts = $2, last_error = $3, next_attempt_at = $4 WHERE id = $1`,
		id, attempts, lastError, nextAttemptAt,
	)
}

func (r *scheduledNotificationRepository) MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error {
	return r.exec(ctx,
		`UPDATE scheduled_notifications SET failed = TRUE, attempts = $2, last_error = $3, next_attempt_at = NULL WHERE id = $1`,
		id, attempts, lastError,
	)
}

func (r *scheduledNotificationRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to update scheduled notification")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return entity.ErrScheduledNotificationNotFound
	}
	return nil
}

func (r *scheduledNotificationRepository) DeleteUnsent(ctx context.Context, id int64) error {
	var deleted, sent bool
	err := r.db.QueryRowContext(ctx, `
		WITH deleted AS (
			DELETE FROM scheduled_notifications WHERE id = $1 AND sent = FALSE RETURNING id
		)
		SELECT EXISTS(SELECT 1 FROM deleted), EXISTS(SELECT 1 FROM scheduled_notifications WHERE id = $1 AND sent = TRUE)
	`, id).Scan(&deleted, &sent)
	if err != nil {
		return errors.Wrap(err, "failed to delete scheduled notification")
	}

	switch {
	case deleted:
		return nil
	case sent:
		return entity.ErrScheduledAlreadySent
	default:
		return entity.ErrScheduledNotificationNotFound
	}
}
