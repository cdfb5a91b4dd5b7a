package repository

import (
	"context"
	"database/sql"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/pkg/errors"
)

const ticketTypeColumns = `id, event_id, name, price, quantity, available, max_per_order, created_at, updated_at`

type ticketTypeRepository struct {
	db *sql.DB
}

func NewTicketTypeRepository(db *sql.DB) TicketTypeRepository {
	return &ticketTypeRepository{db: db}
}

func scanTicketType(s rowScanner) (*entity.TicketType, error) {
	var tt entity.TicketType
	err := s.Scan(
		&tt.ID,
		&tt.EventID,
		&tt.Name,
		&tt.Price,
		&tt.Quantity,
		&tt.Available,
		&tt.MaxPerOrder,
		&tt.CreatedAt,
		&tt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

func (r *ticketTypeRepository) Create(ctx context.Context, tt *entity.TicketType) error {
	return insertTicketType(ctx, r.db, tt)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertTicketType(ctx context.Context, q queryRower, tt *entity.TicketType) error {
	query := `
		INSERT INTO ticket_types (event_id, name, price, quantity, available, max_per_order)
		VALUES ($1, $2, $3, $4, $4, $5)
		RETURNING id, available, created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		tt.EventID,
		tt.Name,
		tt.Price,
		tt.Quantity,
		tt.MaxPerOrder,
	).Scan(&tt.ID, &tt.Available, &tt.CreatedAt, &tt.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to create ticket type")
	}
	return nil
}

func (r *ticketTypeRepository) GetByID(ctx context.Context, id int64) (*entity.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`

	tt, err := scanTicketType(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, entity.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get ticket type")
	}
	return tt, nil
}

func (r *ticketTypeRepository) GetByEventID(ctx context.Context, eventID int64) ([]*entity.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ticket types")
	}
	defer rows.Close()

	var out []*entity.TicketType
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan ticket type")
		}
		out = append(out, tt)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate ticket types")
}

// Decrement takes quantity units if and only if that many are available.
// When nothing matched it tells a missing row apart from an empty one.
func (r *ticketTypeRepository) Decrement(ctx context.Context, id int64, quantity int) (*entity.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET available = available - $2, updated_at = NOW()
		WHERE id = $1 AND available >= $2
		RETURNING ` + ticketTypeColumns

	tt, err := scanTicketType(r.db.QueryRowContext(ctx, query, id, quantity))
	if isNoRows(err) {
		return nil, r.missingOr(ctx, id, entity.ErrInsufficientInventory)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decrement ticket inventory")
	}
	return tt, nil
}

// Increment returns quantity units, never beyond the ticket type's quantity.
func (r *ticketTypeRepository) Increment(ctx context.Context, id int64, quantity int) (*entity.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET available = available + $2, updated_at = NOW()
		WHERE id = $1 AND available + $2 <= quantity
		RETURNING ` + ticketTypeColumns

	tt, err := scanTicketType(r.db.QueryRowContext(ctx, query, id, quantity))
	if isNoRows(err) {
		return nil, r.missingOr(ctx, id, entity.ErrInventoryOverflow)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to increment ticket inventory")
	}
	return tt, nil
}

func (r *ticketTypeRepository) IncreaseQuantity(ctx context.Context, id int64, delta int) (*entity.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET quantity = quantity + $2, available = available + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + ticketTypeColumns

	tt, err := scanTicketType(r.db.QueryRowContext(ctx, query, id, delta))
	if isNoRows(err) {
		return nil, entity.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to increase ticket quantity")
	}
	return tt, nil
}

func (r *ticketTypeRepository) missingOr(ctx context.Context, id int64, otherwise error) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM ticket_types WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return errors.Wrap(err, "failed to check ticket type")
	}
	if !exists {
		return entity.ErrTicketTypeNotFound
	}
	return otherwise
}
