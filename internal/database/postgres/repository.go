package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
)

type TicketTypeRepository interface {
	Create(ctx context.Context, tt *entity.TicketType) error
	GetByID(ctx context.Context, id int64) (*entity.TicketType, error)
	GetByEventID(ctx context.Context, eventID int64) ([]*entity.TicketType, error)

	// Inventory counters. Each is a single conditional statement; no
	// read-then-write.
	Decrement(ctx context.Context, id int64, quantity int) (*entity.TicketType, error)
	Increment(ctx context.Context, id int64, quantity int) (*entity.TicketType, error)
	IncreaseQuantity(ctx context.Context, id int64, delta int) (*entity.TicketType, error)
}

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event, ticketTypes []*entity.TicketType) error
	GetByID(ctx context.Context, id int64) (*entity.Event, error)
	List(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, error)
	Update(ctx context.Context, event *entity.Event) error
	UpdateStatus(ctx context.Context, id int64, status entity.EventStatus) error

	// Delete refuses events with confirmed orders.
	Delete(ctx context.Context, id int64) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*entity.Order, error)
	FindExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entity.Order, error)

	// Status transitions succeed only from one of the listed states.
	Transition(ctx context.Context, id int64, to entity.OrderStatus, from ...entity.OrderStatus) error
	Confirm(ctx context.Context, id int64, transactionRef string, tickets []*entity.Ticket) error
	Cancel(ctx context.Context, id int64) error

	GetTickets(ctx context.Context, orderID int64) ([]*entity.Ticket, error)
	TicketHolders(ctx context.Context, eventID int64) ([]int64, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, userID, id int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
}

type ScheduledNotificationRepository interface {
	Create(ctx context.Context, sn *entity.ScheduledNotification) error
	GetByID(ctx context.Context, id int64) (*entity.ScheduledNotification, error)
	List(ctx context.Context, pendingOnly bool, limit, offset int) ([]*entity.ScheduledNotification, error)

	FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.ScheduledNotification, error)
	MarkSent(ctx context.Context, id int64) error
	RecordFailure(ctx context.Context, id int64, attempts int, lastError string, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, lastError string) error

	// DeleteUnsent removes a row that has not been sent yet.
	DeleteUnsent(ctx context.Context, id int64) error
}

type PreferenceRepository interface {
	// Get returns nil, nil when the user has no stored preferences.
	Get(ctx context.Context, userID int64) (*entity.NotificationPreference, error)
	Upsert(ctx context.Context, p *entity.NotificationPreference) error
}

type PushTokenRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]*entity.PushToken, error)
	Upsert(ctx context.Context, t *entity.PushToken) error
	Delete(ctx context.Context, userID int64, token string) error
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
}
