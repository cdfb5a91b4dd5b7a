package entity

import (
	"time"
)

type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
)

type Event struct {
	ID          int64       `json:"id" db:"id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	Category    string      `json:"category" db:"category"`
	Venue       string      `json:"venue" db:"venue"`
	StartsAt    time.Time   `json:"starts_at" db:"starts_at"`
	Status      EventStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// Bookable reports whether tickets can be sold for the event at now.
func (e *Event) Bookable(now time.Time) bool {
	return e.Status == EventStatusPublished && e.StartsAt.After(now)
}

type EventWithTicketTypes struct {
	Event
	TicketTypes []*TicketType `json:"ticket_types"`
}

// EventFilter narrows ListEvents. Zero values mean "any".
type EventFilter struct {
	Title    string
	Category string
	Status   EventStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}
