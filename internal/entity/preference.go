package entity

import "time"

type NotificationPreference struct {
	UserID    int64              `json:"user_id" db:"user_id"`
	Email     bool               `json:"email" db:"email"`
	Push      bool               `json:"push" db:"push"`
	Types     []NotificationType `json:"types" db:"types"`
	UpdatedAt time.Time          `json:"updated_at" db:"updated_at"`
}

// DefaultPreference enables every channel and type.
func DefaultPreference(userID int64) *NotificationPreference {
	types := make([]NotificationType, len(NotificationTypes))
	copy(types, NotificationTypes)
	return &NotificationPreference{
		UserID: userID,
		Email:  true,
		Push:   true,
		Types:  types,
	}
}

func (p *NotificationPreference) Allows(t NotificationType) bool {
	for _, enabled := range p.Types {
		if enabled == t {
			return true
		}
	}
	return false
}

type PushToken struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
