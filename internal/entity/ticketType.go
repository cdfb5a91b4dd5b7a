package entity

import "time"

// TicketType holds the inventory counters for one kind of ticket.
// Invariant: 0 <= Available <= Quantity.
type TicketType struct {
	ID          int64     `json:"id" db:"id"`
	EventID     int64     `json:"event_id" db:"event_id"`
	Name        string    `json:"name" db:"name"`
	Price       float64   `json:"price" db:"price"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Available   int       `json:"available" db:"available"`
	MaxPerOrder int       `json:"max_per_order" db:"max_per_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (t *TicketType) SoldOut() bool {
	return t.Available == 0
}

// InventoryChange is the payload of a ticketUpdate push.
type InventoryChange struct {
	TicketTypeID int64 `json:"ticketTypeId"`
	EventID      int64 `json:"eventId"`
	Available    int   `json:"available"`
	Quantity     int   `json:"quantity,omitempty"`
}
