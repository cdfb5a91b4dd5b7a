package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataInt64(t *testing.T) {
	var decoded Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"eventId":12,"orderId":"34","ratio":1.5}`), &decoded))

	id, ok := decoded.EventID()
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	id, ok = decoded.OrderID()
	assert.True(t, ok)
	assert.Equal(t, int64(34), id)

	_, ok = decoded.Int64("ratio")
	assert.False(t, ok, "fractional numbers are not ids")

	_, ok = decoded.TicketTypeID()
	assert.False(t, ok)
}

func TestMetadataValidateFor(t *testing.T) {
	assert.NoError(t, Metadata{MetaOrderID: 1}.ValidateFor(NotificationTicketPurchased))
	assert.NoError(t, Metadata(nil).ValidateFor(NotificationSystemAnnouncement))

	err := Metadata{MetaOrderID: 1}.ValidateFor(NotificationEventCancelled)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "metadata.eventId", verr.Field)
}

func TestMetadataScan(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"eventId":5}`)))
	id, _ := m.EventID()
	assert.Equal(t, int64(5), id)

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)

	assert.Error(t, m.Scan(42))

	v, err := Metadata(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), v)
}

func TestParseNotificationType(t *testing.T) {
	nt, err := ParseNotificationType("EVENT_REMINDER")
	require.NoError(t, err)
	assert.Equal(t, NotificationEventReminder, nt)

	_, err = ParseNotificationType("event_reminder")
	assert.ErrorIs(t, err, ErrUnknownNotificationType)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScheduledNotificationDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	tests := []struct {
		name string
		sn   ScheduledNotification
		due  bool
	}{
		{"in the past", ScheduledNotification{ScheduledFor: now.Add(-time.Hour)}, true},
		{"exactly now", ScheduledNotification{ScheduledFor: now}, true},
		{"in the future", ScheduledNotification{ScheduledFor: later}, false},
		{"already sent", ScheduledNotification{ScheduledFor: now, Sent: true}, false},
		{"dead-lettered", ScheduledNotification{ScheduledFor: now, Failed: true}, false},
		{"waiting for retry", ScheduledNotification{ScheduledFor: now, NextAttemptAt: &later}, false},
		{"retry elapsed", ScheduledNotification{ScheduledFor: now.Add(-time.Hour), NextAttemptAt: &now}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.due, tt.sn.Due(now))
		})
	}
}

func TestScheduledChannelDefaults(t *testing.T) {
	off := false
	sn := ScheduledNotification{SendPush: &off}
	assert.True(t, sn.EmailRequested())
	assert.False(t, sn.PushRequested())
}

func TestPreferenceDefaultsAllowEverything(t *testing.T) {
	p := DefaultPreference(3)
	for _, nt := range NotificationTypes {
		assert.True(t, p.Allows(nt), string(nt))
	}

	p.Types = p.Types[:1]
	assert.False(t, p.Allows(NotificationSystemAnnouncement))
	assert.Len(t, DefaultPreference(3).Types, len(NotificationTypes))
}

func TestEventBookable(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Event{Status: EventStatusPublished, StartsAt: now.Add(time.Hour)}
	assert.True(t, e.Bookable(now))

	e.Status = EventStatusDraft
	assert.False(t, e.Bookable(now))

	e.Status = EventStatusPublished
	e.StartsAt = now
	assert.False(t, e.Bookable(now))
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, fmt.Errorf("load: %w", ErrOrderNotFound), ErrNotFound)
	assert.ErrorIs(t, ErrInvalidOrderStatus, ErrConflict)
	assert.NotErrorIs(t, ErrInsufficientInventory, ErrConflict)

	chErr := &ChannelError{Channel: "email", Err: errors.New("smtp down")}
	assert.ErrorIs(t, chErr, ErrChannelDelivery)
	assert.Equal(t, "email channel: smtp down", chErr.Error())
	assert.Equal(t, "quantity: must be positive", NewValidationError("quantity", "must be positive").Error())
}
