package repository

import (
	"context"
	"database/sql"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

type preferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, userID int64) (*entity.NotificationPreference, error) {
	query := `SELECT user_id, email, push, types, updated_at FROM notification_preferences WHERE user_id = $1`

	var (
		p     entity.NotificationPreference
		types []string
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.Email,
		&p.Push,
		pq.Array(&types),
		&p.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get notification preferences")
	}

	p.Types = make([]entity.NotificationType, 0, len(types))
	for _, t := range types {
		p.Types = append(p.Types, entity.NotificationType(t))
	}
	return &p, nil
}

func (r *preferenceRepository) Upsert(ctx context.Context, p *entity.NotificationPreference) error {
	types := make([]string, len(p.Types))
	for i, t := range p.Types {
		types[i] = string(t)
	}

	query := `
		INSERT INTO notification_preferences (user_id, email, push, types, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email, push = EXCLUDED.push, types = EXCLUDED.types, updated_at = NOW()
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query, p.UserID, p.Email, p.Push, pq.Array(types)).Scan(&p.UpdatedAt)
	return errors.Wrap(err, "failed to save notification preferences")
}

type pushTokenRepository struct {
	db *sql.DB
}

func NewPushTokenRepository(db *sql.DB) PushTokenRepository {
	return &pushTokenRepository{db: db}
}

func (r *pushTokenRepository) ListByUser(ctx context.Context, userID int64) ([]*entity.PushToken, error) {
	query := `SELECT id, user_id, token, platform, created_at FROM push_tokens WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list push tokens")
	}
	defer rows.Close()

	var tokens []*entity.PushToken
	for rows.Next() {
		var t entity.PushToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan push token")
		}
		tokens = append(tokens, &t)
	}
	return tokens, errors.Wrap(rows.Err(), "failed to iterate push tokens")
}

// Upsert registers the token for the user. A token already registered to
// another user moves to this one.
func (r *pushTokenRepository) Upsert(ctx context.Context, t *entity.PushToken) error {
	query := `
		INSERT INTO push_tokens (user_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, t.UserID, t.Token, t.Platform).Scan(&t.ID, &t.CreatedAt)
	return errors.Wrap(err, "failed to register push token")
}

func (r *pushTokenRepository) Delete(ctx context.Context, userID int64, token string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE user_id = $1 AND token = $2`, userID, token)
	if err != nil {
		return errors.Wrap(err, "failed to delete push token")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return entity.ErrPushTokenNotFound
	}
	return nil
}

func (r *pushTokenRepository) DeleteTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE token = ANY($1)`, pq.Array(tokens))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete push tokens")
	}
	n, err := result.RowsAffected()
	return n, errors.Wrap(err, "failed to get rows affected")
}
