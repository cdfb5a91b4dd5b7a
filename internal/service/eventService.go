package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ds124wfegd/afritix/internal/clock"
	repository "github.com/ds124wfegd/afritix/internal/database/postgres"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/internal/realtime"
	"github.com/sirupsen/logrus"
)

type eventService struct {
	events      repository.EventRepository
	ticketTypes repository.TicketTypeRepository
	orders      repository.OrderRepository
	broadcaster realtime.Broadcaster
	notifier    Dispatcher
	clock       clock.Clock
}

func NewEventService(
	events repository.EventRepository,
	ticketTypes repository.TicketTypeRepository,
	orders repository.OrderRepository,
	broadcaster realtime.Broadcaster,
	notifier Dispatcher,
	clk clock.Clock,
) EventService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &eventService{
		events:      events,
		ticketTypes: ticketTypes,
		orders:      orders,
		broadcaster: broadcaster,
		notifier:    notifier,
		clock:       clk,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*entity.EventWithTicketTypes, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, entity.NewValidationError("title", "is required")
	}
	if !req.StartsAt.After(s.clock.Now()) {
		return nil, entity.ErrEventDatePast
	}

	status := req.Status
	if status == "" {
		status = entity.EventStatusDraft
	}
	if status != entity.EventStatusDraft && status != entity.EventStatusPublished {
		return nil, entity.NewValidationError("status", "must be draft or published")
	}

	ticketTypes := make([]*entity.TicketType, 0, len(req.TicketTypes))
	for i := range req.TicketTypes {
		tt, err := newTicketType(&req.TicketTypes[i])
		if err != nil {
			return nil, err
		}
		ticketTypes = append(ticketTypes, tt)
	}

	event := &entity.Event{
		Title:       title,
		Description: req.Description,
		Category:    req.Category,
		Venue:       req.Venue,
		StartsAt:    req.StartsAt.UTC(),
		Status:      status,
	}
	if err := s.events.Create(ctx, event, ticketTypes); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"event_id":     event.ID,
		"ticket_types": len(ticketTypes),
	}).Info("Event created")

	return &entity.EventWithTicketTypes{Event: *event, TicketTypes: ticketTypes}, nil
}

func newTicketType(req *TicketTypeRequest) (*entity.TicketType, error) {
	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		return nil, entity.NewValidationError("ticketTypes.name", "is required")
	case req.Quantity < 1:
		return nil, entity.NewValidationError("ticketTypes.quantity", "must be at least 1")
	case req.Price < 0:
		return nil, entity.NewValidationError("ticketTypes.price", "must not be negative")
	case req.MaxPerOrder < 0:
		return nil, entity.NewValidationError("ticketTypes.maxPerOrder", "must be at least 1")
	}

	maxPerOrder := req.MaxPerOrder
	if maxPerOrder == 0 {
		maxPerOrder = 10
	}
	return &entity.TicketType{
		Name:        name,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Available:   req.Quantity,
		MaxPerOrder: maxPerOrder,
	}, nil
}

func (s *eventService) GetEvent(ctx context.Context, id int64) (*entity.EventWithTicketTypes, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	ticketTypes, err := s.ticketTypes.GetByEventID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket types: %w", err)
	}

	return &entity.EventWithTicketTypes{Event: *event, TicketTypes: ticketTypes}, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter entity.EventFilter) ([]*entity.Event, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, entity.NewValidationError("to", "must not be before from")
	}

	events, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// UpdateEvent applies the set fields and tells everyone watching the event.
func (s *eventService) UpdateEvent(ctx context.Context, id int64, req *UpdateEventRequest) (*entity.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event.Status == entity.EventStatusCancelled {
		return nil, fmt.Errorf("event is cancelled: %w", entity.ErrConflict)
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, entity.NewValidationError("title", "must not be empty")
		}
		event.Title = title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Category != nil {
		event.Category = *req.Category
	}
	if req.Venue != nil {
		event.Venue = *req.Venue
	}
	if req.StartsAt != nil {
		if !req.StartsAt.After(s.clock.Now()) {
			return nil, entity.ErrEventDatePast
		}
		event.StartsAt = req.StartsAt.UTC()
	}
	if req.Status != nil {
		if *req.Status != entity.EventStatusDraft && *req.Status != entity.EventStatusPublished {
			return nil, entity.NewValidationError("status", "must be draft or published")
		}
		event.Status = *req.Status
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.broadcast(ctx, event.ID, event)
	return event, nil
}

// CancelEvent stops sales and notifies every ticket holder.
func (s *eventService) CancelEvent(ctx context.Context, id int64) (*entity.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event.Status == entity.EventStatusCancelled {
		return nil, fmt.Errorf("event already cancelled: %w", entity.ErrConflict)
	}

	if err := s.events.UpdateStatus(ctx, id, entity.EventStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel event: %w", err)
	}
	event.Status = entity.EventStatusCancelled

	s.broadcast(ctx, event.ID, event)

	holders, err := s.orders.TicketHolders(ctx, id)
	if err != nil {
		logrus.WithError(err).WithField("event_id", id).Error("Failed to list ticket holders")
		return event, nil
	}

	for _, userID := range holders {
		if s.notifier == nil {
			break
		}
		_, err := s.notifier.Dispatch(ctx, &DispatchRequest{
			UserID:    userID,
			Title:     "Event cancelled",
			Message:   fmt.Sprintf("%s has been cancelled.", event.Title),
			Type:      entity.NotificationEventCancelled,
			Metadata:  entity.Metadata{entity.MetaEventID: event.ID},
			SendEmail: true,
			SendPush:  true,
		})
		if err != nil {
			logrus.WithError(err).WithField("user_id", userID).Error("Failed to notify ticket holder")
		}
	}

	logrus.WithFields(logrus.Fields{
		"event_id": id,
		"holders":  len(holders),
	}).Info("Event cancelled")
	return event, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, id int64) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	logrus.WithField("event_id", id).Info("Event deleted")
	return nil
}

func (s *eventService) AddTicketType(ctx context.Context, eventID int64, req *TicketTypeRequest) (*entity.TicketType, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event.Status == entity.EventStatusCancelled {
		return nil, fmt.Errorf("event is cancelled: %w", entity.ErrConflict)
	}

	tt, err := newTicketType(req)
	if err != nil {
		return nil, err
	}
	tt.EventID = eventID

	if err := s.ticketTypes.Create(ctx, tt); err != nil {
		return nil, fmt.Errorf("failed to create ticket type: %w", err)
	}

	change := entity.InventoryChange{
		TicketTypeID: tt.ID,
		EventID:      eventID,
		Available:    tt.Available,
		Quantity:     tt.Quantity,
	}
	if err := s.broadcaster.Broadcast(ctx, realtime.EventRoom(eventID), realtime.EventTicketUpdate, change); err != nil {
		logrus.WithError(err).WithField("ticket_type_id", tt.ID).Warn("Failed to broadcast ticket update")
	}
	return tt, nil
}

func (s *eventService) broadcast(ctx context.Context, eventID int64, event *entity.Event) {
	if err := s.broadcaster.Broadcast(ctx, realtime.EventRoom(eventID), realtime.EventEventUpdate, event); err != nil {
		logrus.WithError(err).WithField("event_id", eventID).Warn("Failed to broadcast event update")
	}
}
