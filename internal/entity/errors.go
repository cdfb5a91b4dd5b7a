package entity

import (
	"errors"
	"fmt"
)

var (
	// Base kinds; specific errors below wrap one of them.
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden operation")
	ErrChannelDelivery = errors.New("channel delivery failed")
	ErrPaymentFailed   = errors.New("payment failed")

	// Event errors
	ErrEventNotFound     = fmt.Errorf("event %w", ErrNotFound)
	ErrEventNotBookable  = fmt.Errorf("event is not open for booking: %w", ErrConflict)
	ErrEventHasBookings  = fmt.Errorf("event has confirmed orders: %w", ErrConflict)
	ErrEventDatePast     = fmt.Errorf("event date cannot be in the past: %w", ErrInvalidInput)
	ErrTicketTypeMissing = fmt.Errorf("ticket type does not belong to event: %w", ErrInvalidInput)

	// Inventory errors
	ErrTicketTypeNotFound    = fmt.Errorf("ticket type %w", ErrNotFound)
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInventoryOverflow     = fmt.Errorf("release exceeds ticket type quantity: %w", ErrConflict)

	// Order errors
	ErrOrderNotFound      = fmt.Errorf("order %w", ErrNotFound)
	ErrInvalidOrderStatus = fmt.Errorf("invalid order status: %w", ErrConflict)

	// User errors
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)

	// Notification errors
	ErrNotificationNotFound          = fmt.Errorf("notification %w", ErrNotFound)
	ErrScheduledNotificationNotFound = fmt.Errorf("scheduled notification %w", ErrNotFound)
	ErrScheduledAlreadySent          = fmt.Errorf("scheduled notification already sent: %w", ErrConflict)
	ErrUnknownNotificationType       = fmt.Errorf("unknown notification type: %w", ErrInvalidInput)
	ErrPushTokenNotFound             = fmt.Errorf("push token %w", ErrNotFound)
)

// ValidationError reports malformed input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ChannelError is a failed delivery on one notification channel.
type ChannelError struct {
	Channel string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("%s channel: %v", e.Channel, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

func (e *ChannelError) Is(target error) bool {
	return target == ErrChannelDelivery
}
