package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type NotificationType string

const (
	NotificationTicketPurchased    NotificationType = "TICKET_PURCHASED"
	NotificationPaymentSuccess     NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed      NotificationType = "PAYMENT_FAILED"
	NotificationOrderCancelled     NotificationType = "ORDER_CANCELLED"
	NotificationOrderExpired       NotificationType = "ORDER_EXPIRED"
	NotificationEventReminder      NotificationType = "EVENT_REMINDER"
	NotificationEventUpdate        NotificationType = "EVENT_UPDATE"
	NotificationEventCancelled     NotificationType = "EVENT_CANCELLED"
	NotificationSystemAnnouncement NotificationType = "SYSTEM_ANNOUNCEMENT"
)

// NotificationTypes lists every known type, in display order.
var NotificationTypes = []NotificationType{
	NotificationTicketPurchased,
	NotificationPaymentSuccess,
	NotificationPaymentFailed,
	NotificationOrderCancelled,
	NotificationOrderExpired,
	NotificationEventReminder,
	NotificationEventUpdate,
	NotificationEventCancelled,
	NotificationSystemAnnouncement,
}

func (t NotificationType) Valid() bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RequiredMetadata returns the metadata keys a notification of this type must carry.
func (t NotificationType) RequiredMetadata() []string {
	switch t {
	case NotificationTicketPurchased, NotificationPaymentSuccess, NotificationPaymentFailed,
		NotificationOrderCancelled, NotificationOrderExpired:
		return []string{MetaOrderID}
	case NotificationEventReminder, NotificationEventUpdate, NotificationEventCancelled:
		return []string{MetaEventID}
	}
	return nil
}

func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownNotificationType)
	}
	return t, nil
}

type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	Metadata  Metadata         `json:"metadata,omitempty" db:"metadata"`
	Read      bool             `json:"read" db:"read"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

const (
	MetaEventID      = "eventId"
	MetaOrderID      = "orderId"
	MetaTicketTypeID = "ticketTypeId"
)

// Metadata is an opaque JSON object attached to notifications.
type Metadata map[string]interface{}

func (m Metadata) Int64(key string) (int64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

func (m Metadata) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (m Metadata) EventID() (int64, bool)      { return m.Int64(MetaEventID) }
func (m Metadata) OrderID() (int64, bool)      { return m.Int64(MetaOrderID) }
func (m Metadata) TicketTypeID() (int64, bool) { return m.Int64(MetaTicketTypeID) }

// ValidateFor checks that the keys required by t are present and numeric.
func (m Metadata) ValidateFor(t NotificationType) error {
	for _, key := range t.RequiredMetadata() {
		if _, ok := m.Int64(key); !ok {
			return NewValidationError("metadata."+key, fmt.Sprintf("required for %s", t))
		}
	}
	return nil
}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into Metadata", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(raw, m)
}
