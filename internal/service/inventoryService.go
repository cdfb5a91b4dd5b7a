package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	repository "github.com/ds124wfegd/afritix/internal/database/postgres"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/realtime"
	"github.com/ds124wfegd/afritix/pkg/kafka"
	"github.com/ds124wfegd/afritix/pkg/metrics"
	"github.com/sirupsen/logrus"
)

type inventoryService struct {
	ticketTypes repository.TicketTypeRepository
	broadcaster realtime.Broadcaster
	events      kafka.Producer
}

func NewInventoryService(
	ticketTypes repository.TicketTypeRepository,
	broadcaster realtime.Broadcaster,
	events kafka.Producer,
) InventoryService {
	return &inventoryService{
		ticketTypes: ticketTypes,
		broadcaster: broadcaster,
		events:      events,
	}
}

// Reserve takes quantity units or fails without touching the counter.
func (s *inventoryService) Reserve(ctx context.Context, ticketTypeID int64, quantity int) error {
	if quantity <= 0 {
		return entity.NewValidationError("quantity", "must be greater than zero")
	}

	tt, err := s.ticketTypes.Decrement(ctx, ticketTypeID, quantity)
	if err != nil {
		metrics.InventoryReservations.WithLabelValues(reservationResult(err)).Inc()
		if errors.Is(err, entity.ErrInsufficientInventory) || errors.Is(err, entity.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to reserve tickets: %w", err)
	}
	metrics.InventoryReservations.WithLabelValues("ok").Inc()

	s.announce(ctx, tt)
	return nil
}

func reservationResult(err error) string {
	switch {
	case errors.Is(err, entity.ErrInsufficientInventory):
		return "insufficient"
	case errors.Is(err, entity.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// Release gives quantity units back.
func (s *inventoryService) Release(ctx context.Context, ticketTypeID int64, quantity int) error {
	if quantity <= 0 {
		return entity.NewValidationError("quantity", "must be greater than zero")
	}

	tt, err := s.ticketTypes.Increment(ctx, ticketTypeID, quantity)
	if err != nil {
		return fmt.Errorf("failed to release tickets: %w", err)
	}

	s.announce(ctx, tt)
	return nil
}

func (s *inventoryService) IncreaseQuantity(ctx context.Context, ticketTypeID int64, delta int) (*entity.TicketType, error) {
	if delta <= 0 {
		return nil, entity.NewValidationError("delta", "must be greater than zero")
	}

	tt, err := s.ticketTypes.IncreaseQuantity(ctx, ticketTypeID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to increase ticket quantity: %w", err)
	}

	s.announce(ctx, tt)
	return tt, nil
}

func (s *inventoryService) Availability(ctx context.Context, ticketTypeID int64) (*entity.TicketType, error) {
	tt, err := s.ticketTypes.GetByID(ctx, ticketTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket type: %w", err)
	}
	return tt, nil
}

// announce pushes the new counters to the event room and the event stream.
// Both are best effort.
func (s *inventoryService) announce(ctx context.Context, tt *entity.TicketType) {
	change := entity.InventoryChange{
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		Available:    tt.Available,
		Quantity:     tt.Quantity,
	}

	log := logrus.WithFields(logrus.Fields{
		"ticket_type_id": tt.ID,
		"available":      tt.Available,
	})

	if err := s.broadcaster.Broadcast(ctx, realtime.EventRoom(tt.EventID), realtime.EventTicketUpdate, change); err != nil {
		log.WithError(err).Warn("Failed to broadcast ticket update")
	}
	if err := s.events.Publish(ctx, strconv.FormatInt(tt.ID, 10), kafka.EventInventoryChanged, change); err != nil {
		log.WithError(err).Warn("Failed to publish inventory event")
	}
}
