package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/ds124wfegd/afritix/pkg/metrics"
)

// Server to client event names.
const (
	EventNotification     = "notification"
	EventNotificationRead = "notificationRead"
	EventNewChatMessage   = "newChatMessage"
	EventUserTyping       = "userTyping"
	EventEventUpdate      = "eventUpdate"
	EventTicketUpdate     = "ticketUpdate"
)

func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

func EventRoom(eventID int64) string {
	return "event:" + strconv.FormatInt(eventID, 10)
}

// Broadcaster is what services use to reach connected clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, payload interface{}) error
	BroadcastExcept(ctx context.Context, room, event string, payload interface{}, exceptSocketID string) error
}

// Conn is one member of a room.
type Conn interface {
	ID() string
	UserID() int64
	// Send enqueues without blocking and reports whether the message was accepted.
	Send(msg []byte) bool
}

// Envelope is the frame written to clients for every server event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeEnvelope(event string, payload interface{}) ([]byte, error) {
	msg, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return msg, nil
}

// Hub groups local connections into rooms.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
	// reverse index so LeaveAll does not scan every room
	joined map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms:  make(map[string]map[string]Conn),
		joined: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) JoinRoom(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]Conn)
		h.rooms[room] = members
	}
	members[c.ID()] = c

	rooms, ok := h.joined[c.ID()]
	if !ok {
		rooms = make(map[string]struct{})
		h.joined[c.ID()] = rooms
	}
	rooms[room] = struct{}{}
}

func (h *Hub) LeaveRoom(c Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c.ID(), room)
}

func (h *Hub) LeaveAll(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.joined[c.ID()] {
		h.leaveLocked(c.ID(), room)
	}
	delete(h.joined, c.ID())
}

func (h *Hub) leaveLocked(connID, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.joined[connID]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.joined, connID)
		}
	}
}

func (h *Hub) InRoom(c Conn, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[room][c.ID()]
	return ok
}

func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast delivers event to every connection in room. An empty room is a
// no-op.
func (h *Hub) Broadcast(ctx context.Context, room, event string, payload interface{}) error {
	return h.BroadcastExcept(ctx, room, event, payload, "")
}

func (h *Hub) BroadcastExcept(_ context.Context, room, event string, payload interface{}, exceptSocketID string) error {
	msg, err := encodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	metrics.WSBroadcasts.WithLabelValues(event).Inc()
	h.Deliver(room, msg, exceptSocketID)
	return nil
}

// Deliver hands an encoded frame to each member's send buffer and returns how
// many accepted it. Members with a full buffer miss this frame.
func (h *Hub) Deliver(room string, msg []byte, exceptSocketID string) int {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[room]))
	for id, c := range h.rooms[room] {
		if id != exceptSocketID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if c.Send(msg) {
			delivered++
		}
	}
	return delivered
}
