package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

const orderColumns = `id, reference, user_id, event_id, status, total_amount, currency, payment_method, transaction_ref, expires_at, created_at, updated_at`

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func scanOrder(s rowScanner) (*entity.Order, error) {
	var o entity.Order
	err := s.Scan(
		&o.ID,
		&o.Reference,
		&o.UserID,
		&o.EventID,
		&o.Status,
		&o.TotalAmount,
		&o.Currency,
		&o.PaymentMethod,
		&o.TransactionRef,
		&o.ExpiresAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts a pending order and its items in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (reference, user_id, event_id, status, total_amount, currency, payment_method, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRowContext(ctx, query,
		order.Reference,
		order.UserID,
		order.EventID,
		order.Status,
		order.TotalAmount,
		order.Currency,
		order.PaymentMethod,
		order.ExpiresAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return errors.Wrap(entity.ErrConflict, "duplicate order reference")
		}
		return errors.Wrap(err, "failed to create order")
	}

	itemQuery := `INSERT INTO order_items (order_id, ticket_type_id, quantity, unit_price) VALUES ($1, $2, $3, $4)`
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		it := order.Items[i]
		if _, err := tx.ExecContext(ctx, itemQuery, it.OrderID, it.TicketTypeID, it.Quantity, it.UnitPrice); err != nil {
			return errors.Wrap(err, "failed to create order item")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if isNoRows(err) {
		return nil, entity.ErrOrderNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get order")
	}

	if err := r.attachItems(ctx, []*entity.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	return r.queryOrders(ctx, query, userID, limitOrDefault(limit), offset)
}

func (r *orderRepository) FindExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE status = 'pending' AND expires_at < $1 ORDER BY expires_at LIMIT $2`
	return r.queryOrders(ctx, query, before, limitOrDefault(limit))
}

func (r *orderRepository) queryOrders(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query orders")
	}
	defer rows.Close()

	var orders []*entity.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate orders")
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) attachItems(ctx context.Context, orders []*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int64]*entity.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	query := `SELECT order_id, ticket_type_id, quantity, unit_price FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, ticket_type_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "failed to load order items")
	}
	defer rows.Close()

	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.OrderID, &it.TicketTypeID, &it.Quantity, &it.UnitPrice); err != nil {
			return errors.Wrap(err, "failed to scan order item")
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return errors.Wrap(rows.Err(), "failed to iterate order items")
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func transition(ctx context.Context, db execer, id int64, to entity.OrderStatus, from []entity.OrderStatus) error {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	result, err := db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1 AND status = ANY($3)`,
		id, to, pq.Array(states),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update order status")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return entity.ErrInvalidOrderStatus
	}
	return nil
}

// Transition moves the order to `to` only if it is currently in one of
// `from`. Concurrent callers racing on the same order see exactly one winner.
func (r *orderRepository) Transition(ctx context.Context, id int64, to entity.OrderStatus, from ...entity.OrderStatus) error {
	return transition(ctx, r.db, id, to, from)
}

func (r *orderRepository) Confirm(ctx context.Context, id int64, transactionRef string, tickets []*entity.Ticket) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// Share-lock the event; Delete holds it FOR UPDATE while it counts
	// confirmed orders, so the two never interleave.
	var eventID int64
	lock := `SELECT e.id FROM events e JOIN orders o ON o.event_id = e.id WHERE o.id = $1 FOR SHARE OF e`
	err = tx.QueryRowContext(ctx, lock, id).Scan(&eventID)
	if isNoRows(err) {
		return entity.ErrOrderNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to lock event")
	}

	if err := transition(ctx, tx, id, entity.OrderStatusConfirmed, []entity.OrderStatus{entity.OrderStatusPending}); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET transaction_ref = $2 WHERE id = $1`, id, transactionRef); err != nil {
		return errors.Wrap(err, "failed to set transaction reference")
	}

	query := `
		INSERT INTO tickets (order_id, ticket_type_id, user_id, code, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	for _, t := range tickets {
		t.OrderID = id
		if t.Status == "" {
			t.Status = entity.TicketStatusValid
		}
		err := tx.QueryRowContext(ctx, query, t.OrderID, t.TicketTypeID, t.UserID, t.Code, t.Status).Scan(&t.ID, &t.CreatedAt)
		if err != nil {
			return errors.Wrap(err, "failed to issue ticket")
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// Cancel moves a pending or confirmed order to cancelled and voids its tickets.
func (r *orderRepository) Cancel(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	err = transition(ctx, tx, id, entity.OrderStatusCancelled,
		[]entity.OrderStatus{entity.OrderStatusPending, entity.OrderStatusConfirmed})
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE tickets SET status = 'void' WHERE order_id = $1`, id); err != nil {
		return errors.Wrap(err, "failed to void tickets")
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

func (r *orderRepository) GetTickets(ctx context.Context, orderID int64) ([]*entity.Ticket, error) {
	query := `SELECT id, order_id, ticket_type_id, user_id, code, status, created_at FROM tickets WHERE order_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tickets")
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		var t entity.Ticket
		if err := rows.Scan(&t.ID, &t.OrderID, &t.TicketTypeID, &t.UserID, &t.Code, &t.Status, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan ticket")
		}
		tickets = append(tickets, &t)
	}
	return tickets, errors.Wrap(rows.Err(), "failed to iterate tickets")
}

// TicketHolders returns the distinct users holding a valid ticket for the event.
func (r *orderRepository) TicketHolders(ctx context.Context, eventID int64) ([]int64, error) {
	query := `
		SELECT DISTINCT t.user_id
		FROM tickets t
		JOIN orders o ON o.id = t.order_id
		WHERE o.event_id = $1 AND o.status = 'confirmed' AND t.status = 'valid'
		ORDER BY t.user_id
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list ticket holders")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan ticket holder")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "failed to iterate ticket holders")
}
