package entity

import "time"

type ScheduledNotification struct {
	ID            int64      `json:"id" db:"id"`
	ScheduledFor  time.Time  `json:"scheduled_for" db:"scheduled_for"`
	Title         string     `json:"title" db:"title"`
	Message       string     `json:"message" db:"message"`
	Type          string     `json:"type" db:"type"`
	UserID        int64      `json:"user_id" db:"user_id"`
	Metadata      Metadata   `json:"metadata,omitempty" db:"metadata"`
	SendEmail     *bool      `json:"send_email,omitempty" db:"send_email"`
	SendPush      *bool      `json:"send_push,omitempty" db:"send_push"`
	Sent          bool       `json:"sent" db:"sent"`
	Failed        bool       `json:"failed" db:"failed"`
	Attempts      int        `json:"attempts" db:"attempts"`
	LastError     string     `json:"last_error,omitempty" db:"last_error"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty" db:"next_attempt_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Due reports whether the row should be picked up by a scheduler tick at now.
func (s *ScheduledNotification) Due(now time.Time) bool {
	if s.Sent || s.Failed || s.ScheduledFor.After(now) {
		return false
	}
	return s.NextAttemptAt == nil || !s.NextAttemptAt.After(now)
}

func (s *ScheduledNotification) EmailRequested() bool {
	return s.SendEmail == nil || *s.SendEmail
}

func (s *ScheduledNotification) PushRequested() bool {
	return s.SendPush == nil || *s.SendPush
}
