package entity

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusFailed    OrderStatus = "failed"
)

type Order struct {
	ID             int64       `json:"id" db:"id"`
	Reference      string      `json:"reference" db:"reference"`
	UserID         int64       `json:"user_id" db:"user_id"`
	EventID        int64       `json:"event_id" db:"event_id"`
	Status         OrderStatus `json:"status" db:"status"`
	TotalAmount    float64     `json:"total_amount" db:"total_amount"`
	Currency       string      `json:"currency" db:"currency"`
	PaymentMethod  string      `json:"payment_method" db:"payment_method"`
	TransactionRef string      `json:"transaction_ref,omitempty" db:"transaction_ref"`
	ExpiresAt      time.Time   `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	Items          []OrderItem `json:"items"`
}

// Cancellable reports whether the order still holds inventory.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

type OrderItem struct {
	OrderID      int64   `json:"order_id" db:"order_id"`
	TicketTypeID int64   `json:"ticket_type_id" db:"ticket_type_id"`
	Quantity     int     `json:"quantity" db:"quantity"`
	UnitPrice    float64 `json:"unit_price" db:"unit_price"`
}

type TicketStatus string

const (
	TicketStatusValid TicketStatus = "valid"
	TicketStatusVoid  TicketStatus = "void"
)

type Ticket struct {
	ID           int64        `json:"id" db:"id"`
	OrderID      int64        `json:"order_id" db:"order_id"`
	TicketTypeID int64        `json:"ticket_type_id" db:"ticket_type_id"`
	UserID       int64        `json:"user_id" db:"user_id"`
	Code         string       `json:"code" db:"code"`
	Status       TicketStatus `json:"status" db:"status"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// TotalQuantity is the number of tickets the order holds.
func (o *Order) TotalQuantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
