package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/afritix/internal/entity"
)

// InventoryService owns the per-ticket-type availability counters.
type InventoryService interface {
	Reserve(ctx context.Context, ticketTypeID int64, quantity int) error
	Release(ctx context.Context, ticketTypeID int64, quantity int) error
	IncreaseQuantity(ctx context.Context, ticketTypeID int64, delta int) (*entity.TicketType, error)
	Availability(ctx context.Context, ticketTypeID int64) (*entity.TicketType, error)
}

// NotificationService creates notifications and fans them out to the
// realtime, email and push channels.
type NotificationService interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (*entity.Notification, error)

	// Read side
	List(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)

	// Preferences and devices
	GetPreferences(ctx context.Context, userID int64) (*entity.NotificationPreference, error)
	UpdatePreferences(ctx context.Context, userID int64, req *UpdatePreferencesRequest) (*entity.NotificationPreference, error)
	RegisterPushToken(ctx context.Context, userID int64, req *RegisterPushTokenRequest) (*entity.PushToken, error)
	RemovePushToken(ctx context.Context, userID int64, token string) error

	// Scheduling
	Schedule(ctx context.Context, req *ScheduleRequest) (*entity.ScheduledNotification, error)
	CancelScheduled(ctx context.Context, id int64) error
	ListScheduled(ctx context.Context, pendingOnly bool, limit, offset int) ([]*entity.ScheduledNotification, error)

	BroadcastAnnouncement(ctx context.Context, eventID int64, title, message string) (int, error)
}

type BookingService interface {
	Purchase(ctx context.Context, userID int64, req *PurchaseRequest) (*OrderDetails, error)
	CancelOrder(ctx context.Context, userID, orderID int64) (*entity.Order, error)
	ExpirePendingOrders(ctx context.Context, before time.Time) (int, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*OrderDetails, error)
	ListUserOrders(ctx context.Context, userID int64, limit, offset int) ([]*entity.Order, error)
}

type PaymentService interface {
	Validate(details *PaymentDetails) error
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, transactionRef string) error
}

type EventService interface {
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.EventWithTicketTypes, error)
	GetEvent(ctx context.Context, id int64) (*entity.EventWithTicketTypes, error)
	ListEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, error)
	UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error)
	CancelEvent(ctx context.Context, id int64) (*entity.Event, error)
	DeleteEvent(ctx context.Context, id int64) error
	AddTicketType(ctx context.Context, eventID int64, req *TicketTypeRequest) (*entity.TicketType, error)
}

// DispatchRequest is one notification to deliver to one user.
type DispatchRequest struct {
	UserID    int64                   `json:"userId" binding:"required,min=1"`
	Title     string                  `json:"title" binding:"max=255"`
	Message   string                  `json:"message"`
	Type      entity.NotificationType `json:"type" binding:"required"`
	Metadata  entity.Metadata         `json:"metadata"`
	SendEmail bool                    `json:"sendEmail"`
	SendPush  bool                    `json:"sendPush"`
}

type ScheduleRequest struct {
	UserID       int64           `json:"userId" binding:"required,min=1"`
	ScheduledFor time.Time       `json:"scheduledFor" binding:"required"`
	Title        string          `json:"title" binding:"required,max=255"`
	Message      string          `json:"message" binding:"required"`
	Type         string          `json:"type" binding:"required"`
	Metadata     entity.Metadata `json:"metadata"`
	SendEmail    *bool           `json:"sendEmail"`
	SendPush     *bool           `json:"sendPush"`
}

type UpdatePreferencesRequest struct {
	Email *bool    `json:"email"`
	Push  *bool    `json:"push"`
	Types []string `json:"types"`
}

type RegisterPushTokenRequest struct {
	Token    string `json:"token" binding:"required,max=4096"`
	Platform string `json:"platform" binding:"omitempty,oneof=android ios web"`
}

type PurchaseItem struct {
	TicketTypeID int64 `json:"ticketTypeId" binding:"required,min=1"`
	Quantity     int   `json:"quantity" binding:"required,min=1"`
}

type PurchaseRequest struct {
	EventID int64          `json:"eventId" binding:"required,min=1"`
	Items   []PurchaseItem `json:"items" binding:"required,min=1,dive"`
	Payment PaymentDetails `json:"payment" binding:"required"`
}

// PaymentDetails carries the fields of whichever method is chosen.
type PaymentDetails struct {
	Method     string `json:"method" binding:"required,oneof=card mobile_money"`
	CardNumber string `json:"cardNumber,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Provider   string `json:"provider,omitempty"`
}

type ChargeRequest struct {
	OrderReference string
	Amount         float64
	Currency       string
	Details        *PaymentDetails
}

type ChargeResult struct {
	TransactionRef string `json:"transactionRef"`
}

type OrderDetails struct {
	Order   *entity.Order    `json:"order"`
	Event   *entity.Event    `json:"event,omitempty"`
	Tickets []*entity.Ticket `json:"tickets,omitempty"`
}

type TicketTypeRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=255"`
	Price       float64 `json:"price" binding:"min=0"`
	Quantity    int     `json:"quantity" binding:"required,min=1"`
	MaxPerOrder int     `json:"maxPerOrder" binding:"omitempty,min=1"`
}

type CreateEventRequest struct {
	Title       string              `json:"title" binding:"required,min=1,max=255"`
	Description string              `json:"description" binding:"max=5000"`
	Category    string              `json:"category" binding:"max=100"`
	Venue       string              `json:"venue" binding:"max=255"`
	StartsAt    time.Time           `json:"startsAt" binding:"required"`
	Status      entity.EventStatus  `json:"status" binding:"omitempty,oneof=draft published"`
	TicketTypes []TicketTypeRequest `json:"ticketTypes" binding:"dive"`
}

type UpdateEventRequest struct {
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	Category    *string             `json:"category,omitempty"`
	Venue       *string             `json:"venue,omitempty"`
	StartsAt    *time.Time          `json:"startsAt,omitempty"`
	Status      *entity.EventStatus `json:"status,omitempty"`
}
