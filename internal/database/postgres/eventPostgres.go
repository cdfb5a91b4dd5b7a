package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/pkg/errors"
)

const eventColumns = `id, title, description, category, venue, starts_at, status, created_at, updated_at`

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(s rowScanner) (*entity.Event, error) {
	var e entity.Event
	err := s.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Category,
		&e.Venue,
		&e.StartsAt,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts the event and its ticket types in one transaction.
func (r *eventRepository) Create(ctx context.Context, event *entity.Event, ticketTypes []*entity.TicketType) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO events (title, description, category, venue, starts_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Category,
		event.Venue,
		event.StartsAt,
		event.Status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create event")
	}

	for _, tt := range ticketTypes {
		tt.EventID = event.ID
		if err := insertTicketType(ctx, tx, tt); err != nil {
			return err
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, entity.ErrEventNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get event")
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Title != "" {
		add("title ILIKE $%d", "%"+filter.Title+"%")
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("starts_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("starts_at <= $%d", *filter.To)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)
	query += fmt.Sprintf(" ORDER BY starts_at, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		events = append(events, e)
	}
	return events, errors.Wrap(rows.Err(), "failed to iterate events")
}

func (r *eventRepository) Update(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET title = $1, description = $2, category = $3, venue = $4, starts_at = $5, status = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.Category,
		event.Venue,
		event.StartsAt,
		event.Status,
		event.ID,
	).Scan(&event.UpdatedAt)
	if isNoRows(err) {
		return entity.ErrEventNotFound
	}
	return errors.Wrap(err, "failed to update event")
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id int64, status entity.EventStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return errors.Wrap(err, "failed to update event status")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return entity.ErrEventNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// Lock the event so no order is confirmed between the check and the delete.
	var locked int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if isNoRows(err) {
		return entity.ErrEventNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to lock event")
	}

	var confirmed int
	query := `SELECT COUNT(*) FROM orders WHERE event_id = $1 AND status = 'confirmed'`
	if err := tx.QueryRowContext(ctx, query, id).Scan(&confirmed); err != nil {
		return errors.Wrap(err, "failed to check event orders")
	}
	if confirmed > 0 {
		return entity.ErrEventHasBookings
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "failed to delete event")
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}
