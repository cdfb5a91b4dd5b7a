package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ds124wfegd/afritix/config"
	"github.com/ds124wfegd/afritix/internal/clock"
	"github.com/ds124wfegd/afritix/internal/entity"
	"github.com/ds124wfegd/afritix/pkg/mailer"
	"github.com/ds124wfegd/afritix/pkg/push"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeTicketTypes struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.TicketType
}

func newFakeTicketTypes() *fakeTicketTypes {
	return &fakeTicketTypes{rows: make(map[int64]*entity.TicketType)}
}

func (f *fakeTicketTypes) Create(_ context.Context, tt *entity.TicketType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	tt.ID = f.nextID
	cp := *tt
	f.rows[tt.ID] = &cp
	return nil
}

func (f *fakeTicketTypes) GetByID(_ context.Context, id int64) (*entity.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrTicketTypeNotFound
	}
	cp := *tt
	return &cp, nil
}

func (f *fakeTicketTypes) GetByEventID(_ context.Context, eventID int64) ([]*entity.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.TicketType
	for _, tt := range f.rows {
		if tt.EventID == eventID {
			cp := *tt
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTicketTypes) Decrement(ctx context.Context, id int64, quantity int) (*entity.TicketType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrTicketTypeNotFound
	}
	if tt.Available < quantity {
		return nil, entity.ErrInsufficientInventory
	}
	tt.Available -= quantity
	cp := *tt
	return &cp, nil
}

func (f *fakeTicketTypes) Increment(ctx context.Context, id int64, quantity int) (*entity.TicketType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrTicketTypeNotFound
	}
	if tt.Available+quantity > tt.Quantity {
		return nil, entity.ErrInventoryOverflow
	}
	tt.Available += quantity
	cp := *tt
	return &cp, nil
}

func (f *fakeTicketTypes) IncreaseQuantity(_ context.Context, id int64, delta int) (*entity.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tt, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrTicketTypeNotFound
	}
	tt.Quantity += delta
	tt.Available += delta
	cp := *tt
	return &cp, nil
}

func (f *fakeTicketTypes) available(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Available
}

type fakeEvents struct {
	mu          sync.Mutex
	nextID      int64
	rows        map[int64]*entity.Event
	ticketTypes *fakeTicketTypes
	hasBookings map[int64]bool
}

func newFakeEvents(tt *fakeTicketTypes) *fakeEvents {
	return &fakeEvents{
		rows:        make(map[int64]*entity.Event),
		ticketTypes: tt,
		hasBookings: make(map[int64]bool),
	}
}

func (f *fakeEvents) Create(ctx context.Context, event *entity.Event, ticketTypes []*entity.TicketType) error {
	f.mu.Lock()
	f.nextID++
	event.ID = f.nextID
	event.CreatedAt = testNow
	event.UpdatedAt = testNow
	cp := *event
	f.rows[event.ID] = &cp
	f.mu.Unlock()

	for _, tt := range ticketTypes {
		tt.EventID = event.ID
		if err := f.ticketTypes.Create(ctx, tt); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEvents) GetByID(_ context.Context, id int64) (*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) List(_ context.Context, filter entity.EventFilter) ([]*entity.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Event
	for _, e := range f.rows {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeEvents) Update(_ context.Context, event *entity.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[event.ID]; !ok {
		return entity.ErrEventNotFound
	}
	cp := *event
	f.rows[event.ID] = &cp
	return nil
}

func (f *fakeEvents) UpdateStatus(_ context.Context, id int64, status entity.EventStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return entity.ErrEventNotFound
	}
	e.Status = status
	return nil
}

func (f *fakeEvents) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return entity.ErrEventNotFound
	}
	if f.hasBookings[id] {
		return entity.ErrEventHasBookings
	}
	delete(f.rows, id)
	return nil
}

type fakeOrders struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*entity.Order
	tickets map[int64][]*entity.Ticket

	// Hooks run while the call is in flight, e.g. to cancel the caller.
	beforeCreate func()
	afterCancel  func()
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{
		rows:    make(map[int64]*entity.Order),
		tickets: make(map[int64][]*entity.Ticket),
	}
}

func copyOrder(o *entity.Order) *entity.Order {
	cp := *o
	cp.Items = append([]entity.OrderItem(nil), o.Items...)
	return &cp
}

func (f *fakeOrders) Create(ctx context.Context, order *entity.Order) error {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	order.ID = f.nextID
	order.CreatedAt = testNow
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	f.rows[order.ID] = copyOrder(order)
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID int64, limit, offset int) ([]*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Order
	for _, o := range f.rows {
		if o.UserID == userID {
			out = append(out, copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeOrders) FindExpiredPending(_ context.Context, before time.Time, limit int) ([]*entity.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Order
	for _, o := range f.rows {
		if o.Status == entity.OrderStatusPending && o.ExpiresAt.Before(before) {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (f *fakeOrders) transitionLocked(id int64, to entity.OrderStatus, from []entity.OrderStatus) error {
	o, ok := f.rows[id]
	if !ok {
		return entity.ErrInvalidOrderStatus
	}
	for _, s := range from {
		if o.Status == s {
			o.Status = to
			return nil
		}
	}
	return entity.ErrInvalidOrderStatus
}

func (f *fakeOrders) Transition(ctx context.Context, id int64, to entity.OrderStatus, from ...entity.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transitionLocked(id, to, from)
}

func (f *fakeOrders) Confirm(_ context.Context, id int64, transactionRef string, tickets []*entity.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.transitionLocked(id, entity.OrderStatusConfirmed, []entity.OrderStatus{entity.OrderStatusPending}); err != nil {
		return err
	}
	f.rows[id].TransactionRef = transactionRef
	for i, t := range tickets {
		t.ID = int64(i + 1)
		t.OrderID = id
	}
	f.tickets[id] = tickets
	return nil
}

func (f *fakeOrders) Cancel(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	err := f.transitionLocked(id, entity.OrderStatusCancelled,
		[]entity.OrderStatus{entity.OrderStatusPending, entity.OrderStatusConfirmed})
	if err == nil {
		for _, t := range f.tickets[id] {
			t.Status = entity.TicketStatusVoid
		}
	}
	f.mu.Unlock()

	if err == nil && f.afterCancel != nil {
		f.afterCancel()
	}
	return err
}

func (f *fakeOrders) GetTickets(_ context.Context, orderID int64) ([]*entity.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[orderID], nil
}

func (f *fakeOrders) TicketHolders(_ context.Context, eventID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[int64]bool)
	var out []int64
	for id, o := range f.rows {
		if o.EventID != eventID || o.Status != entity.OrderStatusConfirmed {
			continue
		}
		for _, t := range f.tickets[id] {
			if t.Status == entity.TicketStatusValid && !seen[t.UserID] {
				seen[t.UserID] = true
				out = append(out, t.UserID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *fakeOrders) status(id int64) entity.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Status
}

type fakeUsers struct {
	rows map[int64]*entity.User
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrUserNotFound
	}
	return u, nil
}

type fakeNotifications struct {
	mu     sync.Mutex
	nextID int64
	rows   []*entity.Notification
}

func (f *fakeNotifications) Create(_ context.Context, n *entity.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n.ID = f.nextID
	n.CreatedAt = testNow
	cp := *n
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeNotifications) List(_ context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Notification
	for _, n := range f.rows {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNotifications) CountUnread(_ context.Context, userID int64) (int, error) {
	list, _ := f.List(context.Background(), userID, true, 0, 0)
	return len(list), nil
}

func (f *fakeNotifications) MarkAsRead(_ context.Context, userID, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return entity.ErrNotificationNotFound
}

func (f *fakeNotifications) MarkAllAsRead(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.UserID == userID && !row.Read {
			row.Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) forUser(userID int64) []*entity.Notification {
	list, _ := f.List(context.Background(), userID, false, 0, 0)
	return list
}

type fakeScheduled struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.ScheduledNotification
}

func newFakeScheduled() *fakeScheduled {
	return &fakeScheduled{rows: make(map[int64]*entity.ScheduledNotification)}
}

func (f *fakeScheduled) Create(_ context.Context, sn *entity.ScheduledNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sn.ID = f.nextID
	cp := *sn
	f.rows[sn.ID] = &cp
	return nil
}

func (f *fakeScheduled) GetByID(_ context.Context, id int64) (*entity.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sn, ok := f.rows[id]
	if !ok {
		return nil, entity.ErrScheduledNotificationNotFound
	}
	cp := *sn
	return &cp, nil
}

func (f *fakeScheduled) List(_ context.Context, pendingOnly bool, limit, offset int) ([]*entity.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ScheduledNotification
	for _, sn := range f.rows {
		if pendingOnly && (sn.Sent || sn.Failed) {
			continue
		}
		cp := *sn
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeScheduled) FindDue(_ context.Context, now time.Time, limit int) ([]*entity.ScheduledNotification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.ScheduledNotification
	for _, sn := range f.rows {
		if sn.Due(now) {
			cp := *sn
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeScheduled) MarkSent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[id].Sent = true
	return nil
}

func (f *fakeScheduled) RecordFailure(_ context.Context, id int64, attempts int, lastError string, next time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sn := f.rows[id]
	sn.Attempts, sn.LastError, sn.NextAttemptAt = attempts, lastError, &next
	return nil
}

func (f *fakeScheduled) MarkFailed(_ context.Context, id int64, attempts int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sn := f.rows[id]
	sn.Attempts, sn.LastError, sn.Failed = attempts, lastError, true
	return nil
}

func (f *fakeScheduled) DeleteUnsent(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	sn, ok := f.rows[id]
	if !ok {
		return entity.ErrScheduledNotificationNotFound
	}
	if sn.Sent {
		return entity.ErrScheduledAlreadySent
	}
	delete(f.rows, id)
	return nil
}

type fakePreferences struct {
	mu   sync.Mutex
	rows map[int64]*entity.NotificationPreference
}

func (f *fakePreferences) Get(_ context.Context, userID int64) (*entity.NotificationPreference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.Types = append([]entity.NotificationType(nil), p.Types...)
	return &cp, nil
}

func (f *fakePreferences) Upsert(_ context.Context, p *entity.NotificationPreference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.rows[p.UserID] = &cp
	return nil
}

type fakePushTokens struct {
	mu   sync.Mutex
	rows []*entity.PushToken
}

func (f *fakePushTokens) ListByUser(_ context.Context, userID int64) ([]*entity.PushToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.PushToken
	for _, t := range f.rows {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakePushTokens) Upsert(_ context.Context, t *entity.PushToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Token == t.Token {
			row.UserID, row.Platform = t.UserID, t.Platform
			return nil
		}
	}
	t.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, t)
	return nil
}

func (f *fakePushTokens) Delete(_ context.Context, userID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range f.rows {
		if row.UserID == userID && row.Token == token {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return entity.ErrPushTokenNotFound
}

func (f *fakePushTokens) DeleteTokens(_ context.Context, tokens []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		drop[t] = true
	}
	kept := f.rows[:0]
	var n int64
	for _, row := range f.rows {
		if drop[row.Token] {
			n++
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return n, nil
}

func (f *fakePushTokens) tokens(userID int64) []string {
	list, _ := f.ListByUser(context.Background(), userID)
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Token
	}
	return out
}

type broadcastCall struct {
	room, event string
	payload     interface{}
	except      string
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, room, event string, payload interface{}) error {
	return f.BroadcastExcept(ctx, room, event, payload, "")
}

func (f *fakeBroadcaster) BroadcastExcept(_ context.Context, room, event string, payload interface{}, except string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{room: room, event: event, payload: payload, except: except})
	return nil
}

func (f *fakeBroadcaster) sent(room, event string) []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []broadcastCall
	for _, c := range f.calls {
		if c.room == room && c.event == event {
			out = append(out, c)
		}
	}
	return out
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) SendNotificationEmail(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, mailer.Message{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakePush struct {
	mu    sync.Mutex
	calls [][]string
	// failures maps a token to the error the provider reports for it.
	failures map[string]error
	err      error
}

func (f *fakePush) SendMulticast(_ context.Context, tokens []string, _ push.Message) (*push.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), tokens...))
	if f.err != nil {
		return nil, f.err
	}
	resp := &push.BatchResponse{}
	for _, t := range tokens {
		r := push.SendResult{Token: t, Error: f.failures[t]}
		if r.Error == nil {
			resp.SuccessCount++
		} else {
			resp.FailureCount++
		}
		resp.Responses = append(resp.Responses, r)
	}
	return resp, nil
}

func (f *fakePush) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type publishedEvent struct {
	key, eventType string
	payload        interface{}
}

type fakeProducer struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeProducer) Publish(_ context.Context, key, eventType string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{key: key, eventType: eventType, payload: payload})
	return nil
}

func (f *fakeProducer) Close() error { return nil }

func (f *fakeProducer) ofType(eventType string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// testEnv wires every service against in-memory fakes.
type testEnv struct {
	ticketTypes   *fakeTicketTypes
	events        *fakeEvents
	orders        *fakeOrders
	users         *fakeUsers
	notifications *fakeNotifications
	scheduled     *fakeScheduled
	prefs         *fakePreferences
	pushTokens    *fakePushTokens
	broadcaster   *fakeBroadcaster
	mailer        *fakeMailer
	push          *fakePush
	producer      *fakeProducer

	inventory     InventoryService
	notifier      NotificationService
	payments      PaymentService
	booking       BookingService
	eventsService EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := clock.NewFixed(testNow)
	tt := newFakeTicketTypes()
	env := &testEnv{
		ticketTypes:   tt,
		events:        newFakeEvents(tt),
		orders:        newFakeOrders(),
		users:         &fakeUsers{rows: map[int64]*entity.User{}},
		notifications: &fakeNotifications{},
		scheduled:     newFakeScheduled(),
		prefs:         &fakePreferences{rows: map[int64]*entity.NotificationPreference{}},
		pushTokens:    &fakePushTokens{},
		broadcaster:   &fakeBroadcaster{},
		mailer:        &fakeMailer{},
		push:          &fakePush{failures: map[string]error{}},
		producer:      &fakeProducer{},
	}

	env.inventory = NewInventoryService(env.ticketTypes, env.broadcaster, env.producer)
	env.notifier = NewNotificationService(NotificationDeps{
		Notifications: env.notifications,
		Scheduled:     env.scheduled,
		Preferences:   env.prefs,
		PushTokens:    env.pushTokens,
		Users:         env.users,
		Events:        env.events,
		Orders:        env.orders,
		Broadcaster:   env.broadcaster,
		Mailer:        env.mailer,
		Push:          env.push,
		Templates:     DefaultTemplates(),
		Clock:         clk,
	})
	env.payments = NewPaymentService(clk)
	env.booking = NewBookingService(env.events, env.ticketTypes, env.orders, env.inventory,
		env.payments, env.notifier, env.producer, clk,
		config.BookingConfig{PendingTimeout: 15 * time.Minute, Currency: "XOF"})
	env.eventsService = NewEventService(env.events, env.ticketTypes, env.orders,
		env.broadcaster, env.notifier, clk)
	return env
}

func (e *testEnv) addUser(id int64, email string) {
	e.users.rows[id] = &entity.User{ID: id, Email: email, Name: "user", Role: "user"}
}

// seedEvent creates a published event a week out with one ticket type.
func (e *testEnv) seedEvent(t *testing.T, quantity, maxPerOrder int) (*entity.Event, *entity.TicketType) {
	t.Helper()
	event := &entity.Event{
		Title:    "Afrobeats Night",
		Venue:    "Palais de la Culture",
		StartsAt: testNow.Add(7 * 24 * time.Hour),
		Status:   entity.EventStatusPublished,
	}
	tt := &entity.TicketType{Name: "Standard", Price: 5000, Quantity: quantity, Available: quantity, MaxPerOrder: maxPerOrder}
	if err := e.events.Create(context.Background(), event, []*entity.TicketType{tt}); err != nil {
		t.Fatal(err)
	}
	return event, tt
}

func validCard() PaymentDetails {
	return PaymentDetails{Method: PaymentMethodCard, CardNumber: "4242424242424242", Expiry: "12/30", CVV: "123"}
}

func declinedCard() PaymentDetails {
	return PaymentDetails{Method: PaymentMethodCard, CardNumber: "4000000000000002", Expiry: "12/30", CVV: "123"}
}
