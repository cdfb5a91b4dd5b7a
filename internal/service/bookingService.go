package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ds124wfegd/afritix/config"
	"github.com/ds124wfegd/afritix/internal/clock"
	repository "github.com/ds124wfegd/afritix/internal/database/postgres"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/pkg/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	expiryBatchSize = 100

	// compensationTimeout bounds releases and refunds that must finish even
	// after the caller's context is gone.
	compensationTimeout = 10 * time.Second
)

// Dispatcher is the part of NotificationService other services notify through.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (*entity.Notification, error)
}

// TicketPurchased is the payload of the ticket.purchased stream event.
type TicketPurchased struct {
	OrderID   int64   `json:"orderId"`
	Reference string  `json:"reference"`
	UserID    int64   `json:"userId"`
	EventID   int64   `json:"eventId"`
	Tickets   int     `json:"tickets"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
}

type bookingService struct {
	events      repository.EventRepository
	ticketTypes repository.TicketTypeRepository
	orders      repository.OrderRepository
	inventory   InventoryService
	payments    PaymentService
	notifier    Dispatcher
	stream      kafka.Producer
	clock       clock.Clock
	cfg         config.BookingConfig
}

func NewBookingService(
	events repository.EventRepository,
	ticketTypes repository.TicketTypeRepository,
	orders repository.OrderRepository,
	inventory InventoryService,
	payments PaymentService,
	notifier Dispatcher,
	stream kafka.Producer,
	clk clock.Clock,
	cfg config.BookingConfig,
) BookingService {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = 15 * time.Minute
	}
	if cfg.Currency == "" {
		cfg.Currency = "XOF"
	}
	return &bookingService{
		events:      events,
		ticketTypes: ticketTypes,
		orders:      orders,
		inventory:   inventory,
		payments:    payments,
		notifier:    notifier,
		stream:      stream,
		clock:       clk,
		cfg:         cfg,
	}
}

// Purchase reserves the requested units, charges the buyer and issues
// tickets. Every unit reserved is handed back if a later step fails.
func (s *bookingService) Purchase(ctx context.Context, userID int64, req *PurchaseRequest) (*OrderDetails, error) {
	items, err := aggregateItems(req.Items)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if !event.Bookable(s.clock.Now()) {
		return nil, entity.ErrEventNotBookable
	}

	var total float64
	for i := range items {
		tt, err := s.ticketTypes.GetByID(ctx, items[i].TicketTypeID)
		if err != nil {
			return nil, fmt.Errorf("failed to get ticket type: %w", err)
		}
		if tt.EventID != event.ID {
			return nil, entity.ErrTicketTypeMissing
		}
		if tt.MaxPerOrder > 0 && items[i].Quantity > tt.MaxPerOrder {
			return nil, entity.NewValidationError("quantity",
				fmt.Sprintf("at most %d %s tickets per order", tt.MaxPerOrder, tt.Name))
		}
		items[i].UnitPrice = tt.Price
		total += tt.Price * float64(items[i].Quantity)
	}

	if err := s.payments.Validate(&req.Payment); err != nil {
		return nil, err
	}

	reserved, err := s.reserveAll(ctx, items)
	if err != nil {
		s.releaseAll(ctx, reserved)
		return nil, err
	}

	now := s.clock.Now()
	order := &entity.Order{
		Reference:     uuid.NewString(),
		UserID:        userID,
		EventID:       event.ID,
		Status:        entity.OrderStatusPending,
		TotalAmount:   total,
		Currency:      s.cfg.Currency,
		PaymentMethod: req.Payment.Method,
		ExpiresAt:     now.Add(s.cfg.PendingTimeout),
		Items:         items,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseAll(ctx, items)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log := logrus.WithFields(logrus.Fields{
		"order_id":  order.ID,
		"reference": order.Reference,
		"user_id":   userID,
	})

	charge, err := s.payments.Charge(ctx, &ChargeRequest{
		OrderReference: order.Reference,
		Amount:         total,
		Currency:       order.Currency,
		Details:        &req.Payment,
	})
	if err != nil {
		log.WithError(err).Warn("Payment failed")
		s.failOrder(ctx, order, event)
		if !errors.Is(err, entity.ErrPaymentFailed) {
			err = fmt.Errorf("%w: %v", entity.ErrPaymentFailed, err)
		}
		return nil, err
	}

	tickets := issueTickets(order)
	if err := s.orders.Confirm(ctx, order.ID, charge.TransactionRef, tickets); err != nil {
		// The expiry worker or a cancel got there first and already
		// released the units.
		if !errors.Is(err, entity.ErrInvalidOrderStatus) {
			s.failOrder(ctx, order, event)
		}
		rctx, cancel := detach(ctx)
		if rerr := s.payments.Refund(rctx, charge.TransactionRef); rerr != nil {
			log.WithError(rerr).Error("Failed to refund payment")
		}
		cancel()
		return nil, fmt.Errorf("failed to confirm order: %w", err)
	}
	order.Status = entity.OrderStatusConfirmed
	order.TransactionRef = charge.TransactionRef

	log.WithField("tickets", len(tickets)).Info("Order confirmed")

	s.notify(ctx, &DispatchRequest{
		UserID:  userID,
		Title:   "Tickets confirmed",
		Message: fmt.Sprintf("Your %d ticket(s) for %s are confirmed.", len(tickets), event.Title),
		Type:    entity.NotificationTicketPurchased,
		Metadata: entity.Metadata{
			entity.MetaOrderID: order.ID,
			entity.MetaEventID: event.ID,
			"reference":        order.Reference,
			"eventTitle":       event.Title,
		},
		SendEmail: true,
		SendPush:  true,
	})

	s.publish(ctx, order.Reference, kafka.EventTicketPurchased, TicketPurchased{
		OrderID:   order.ID,
		Reference: order.Reference,
		UserID:    userID,
		EventID:   event.ID,
		Tickets:   len(tickets),
		Amount:    total,
		Currency:  order.Currency,
	})

	return &OrderDetails{Order: order, Event: event, Tickets: tickets}, nil
}

// aggregateItems merges repeated ticket types and sorts by id so concurrent
// purchases touch rows in the same order.
func aggregateItems(in []PurchaseItem) ([]entity.OrderItem, error) {
	if len(in) == 0 {
		return nil, entity.NewValidationError("items", "at least one item is required")
	}

	qty := make(map[int64]int, len(in))
	for _, it := range in {
		if it.Quantity <= 0 {
			return nil, entity.NewValidationError("quantity", "must be greater than zero")
		}
		qty[it.TicketTypeID] += it.Quantity
	}

	items := make([]entity.OrderItem, 0, len(qty))
	for id, q := range qty {
		items = append(items, entity.OrderItem{TicketTypeID: id, Quantity: q})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TicketTypeID < items[j].TicketTypeID })
	return items, nil
}

// reserveAll returns the items it managed to reserve even on failure.
func (s *bookingService) reserveAll(ctx context.Context, items []entity.OrderItem) ([]entity.OrderItem, error) {
	reserved := make([]entity.OrderItem, 0, len(items))
	for _, it := range items {
		if err := s.inventory.Reserve(ctx, it.TicketTypeID, it.Quantity); err != nil {
			return reserved, err
		}
		reserved = append(reserved, it)
	}
	return reserved, nil
}

// detach returns a context that outlives the cancellation of ctx but keeps its
// values. Units taken from inventory must be given back even when the request
// that took them was abandoned.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}

func (s *bookingService) releaseAll(ctx context.Context, items []entity.OrderItem) {
	ctx, cancel := detach(ctx)
	defer cancel()

	for _, it := range items {
		if err := s.inventory.Release(ctx, it.TicketTypeID, it.Quantity); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"ticket_type_id": it.TicketTypeID,
				"quantity":       it.Quantity,
			}).Error("Failed to release reserved tickets")
		}
	}
}

// failOrder marks a pending order failed and gives its units back. Units are
// only released by whoever wins the status change.
func (s *bookingService) failOrder(ctx context.Context, order *entity.Order, event *entity.Event) {
	ctx, cancel := detach(ctx)
	defer cancel()

	err := s.orders.Transition(ctx, order.ID, entity.OrderStatusFailed, entity.OrderStatusPending)
	if err != nil {
		if !errors.Is(err, entity.ErrInvalidOrderStatus) {
			logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to mark order failed")
		}
		return
	}
	order.Status = entity.OrderStatusFailed
	s.releaseAll(ctx, order.Items)

	s.notify(ctx, &DispatchRequest{
		UserID:  order.UserID,
		Title:   "Payment failed",
		Message: fmt.Sprintf("Payment for your %s order did not go through.", event.Title),
		Type:    entity.NotificationPaymentFailed,
		Metadata: entity.Metadata{
			entity.MetaOrderID: order.ID,
			entity.MetaEventID: order.EventID,
			"reference":        order.Reference,
		},
		SendEmail: true,
		SendPush:  true,
	})
}

func issueTickets(order *entity.Order) []*entity.Ticket {
	tickets := make([]*entity.Ticket, 0, order.TotalQuantity())
	for _, it := range order.Items {
		for i := 0; i < it.Quantity; i++ {
			tickets = append(tickets, &entity.Ticket{
				OrderID:      order.ID,
				TicketTypeID: it.TicketTypeID,
				UserID:       order.UserID,
				Code:         uuid.NewString(),
				Status:       entity.TicketStatusValid,
			})
		}
	}
	return tickets
}

func (s *bookingService) notify(ctx context.Context, req *DispatchRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Dispatch(ctx, req); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"type":    req.Type,
		}).Error("Failed to dispatch notification")
	}
}

func (s *bookingService) publish(ctx context.Context, key, eventType string, payload interface{}) {
	if s.stream == nil {
		return
	}
	if err := s.stream.Publish(ctx, key, eventType, payload); err != nil {
		logrus.WithError(err).WithField("event_type", eventType).Warn("Failed to publish stream event")
	}
}

// CancelOrder cancels one of the caller's own orders and releases its units.
func (s *bookingService) CancelOrder(ctx context.Context, userID, orderID int64) (*entity.Order, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Cancellable() {
		return nil, entity.ErrInvalidOrderStatus
	}

	if err := s.orders.Cancel(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}

	// The cancel is committed; what follows must not depend on the caller.
	ctx, cancel := detach(ctx)
	defer cancel()

	wasConfirmed := order.Status == entity.OrderStatusConfirmed
	order.Status = entity.OrderStatusCancelled
	s.releaseAll(ctx, order.Items)

	if wasConfirmed && order.TransactionRef != "" {
		if err := s.payments.Refund(ctx, order.TransactionRef); err != nil {
			logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to refund cancelled order")
		}
	}

	s.notify(ctx, &DispatchRequest{
		UserID:  order.UserID,
		Title:   "Order cancelled",
		Message: fmt.Sprintf("Order %s was cancelled.", order.Reference),
		Type:    entity.NotificationOrderCancelled,
		Metadata: entity.Metadata{
			entity.MetaOrderID: order.ID,
			entity.MetaEventID: order.EventID,
			"reference":        order.Reference,
		},
		SendEmail: true,
		SendPush:  true,
	})
	s.publish(ctx, order.Reference, kafka.EventOrderCancelled, map[string]interface{}{
		"orderId":   order.ID,
		"reference": order.Reference,
		"userId":    order.UserID,
		"eventId":   order.EventID,
	})

	logrus.WithField("order_id", order.ID).Info("Order cancelled")
	return order, nil
}

// ExpirePendingOrders expires pending orders whose hold ran out before the
// given time and returns how many it expired.
func (s *bookingService) ExpirePendingOrders(ctx context.Context, before time.Time) (int, error) {
	orders, err := s.orders.FindExpiredPending(ctx, before, expiryBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired orders: %w", err)
	}

	expired := 0
	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}
		if s.expire(ctx, order) {
			expired++
		}
	}
	return expired, nil
}

// expire moves one order to expired and, if this call won the transition,
// releases its units on a context that survives worker shutdown.
func (s *bookingService) expire(ctx context.Context, order *entity.Order) bool {
	ctx, cancel := detach(ctx)
	defer cancel()

	err := s.orders.Transition(ctx, order.ID, entity.OrderStatusExpired, entity.OrderStatusPending)
	if errors.Is(err, entity.ErrInvalidOrderStatus) {
		return false
	}
	if err != nil {
		logrus.WithError(err).WithField("order_id", order.ID).Error("Failed to expire order")
		return false
	}

	s.releaseAll(ctx, order.Items)

	s.notify(ctx, &DispatchRequest{
		UserID:  order.UserID,
		Title:   "Order expired",
		Message: fmt.Sprintf("Order %s expired before payment completed.", order.Reference),
		Type:    entity.NotificationOrderExpired,
		Metadata: entity.Metadata{
			entity.MetaOrderID: order.ID,
			entity.MetaEventID: order.EventID,
			"reference":        order.Reference,
		},
		SendPush: true,
	})
	return true
}

func (s *bookingService) GetOrder(ctx context.Context, userID, orderID int64) (*OrderDetails, error) {
	order, err := s.ownOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	event, err := s.events.GetByID(ctx, order.EventID)
	if err != nil && !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	tickets, err := s.orders.GetTickets(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets: %w", err)
	}

	return &OrderDetails{Order: order, Event: event, Tickets: tickets}, nil
}

func (s *bookingService) ListUserOrders(ctx context.Context, userID int64, limit, offset int) ([]*entity.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ownOrder hides other users' orders behind not-found.
func (s *bookingService) ownOrder(ctx context.Context, userID, orderID int64) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}
	if order.UserID != userID {
		return nil, entity.ErrOrderNotFound
	}
	return order, nil
}
