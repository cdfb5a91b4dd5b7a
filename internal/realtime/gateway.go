package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ds124wfegd/afritix/pkg/auth"
	"github.com/ds124wfegd/afritix/pkg/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client to server event names.
const (
	clientAuth        = "auth"
	clientJoinEvent   = "joinEvent"
	clientLeaveEvent  = "leaveEvent"
	clientChatMessage = "chatMessage"
	clientTyping      = "typing"
	clientMarkAsRead  = "markAsRead"
)

const maxChatLength = 1000

// requestIDHeader is set by the HTTP access logger in front of the gateway.
const requestIDHeader = "X-Request-ID"

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// ReadMarker marks a notification as read for its owner.
type ReadMarker interface {
	MarkAsRead(ctx context.Context, userID, notificationID int64) error
}

type GatewayConfig struct {
	AllowedOrigins []string
	AuthTimeout    time.Duration
	SendBuffer     int
}

type Gateway struct {
	hub         *Hub
	registry    Registry
	broadcaster Broadcaster
	verifier    TokenVerifier
	reads       ReadMarker
	upgrader    websocket.Upgrader
	cfg         GatewayConfig
}

func NewGateway(hub *Hub, registry Registry, broadcaster Broadcaster, verifier TokenVerifier, reads ReadMarker, cfg GatewayConfig) *Gateway {
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Second
	}
	g := &Gateway{
		hub:         hub,
		registry:    registry,
		broadcaster: broadcaster,
		verifier:    verifier,
		reads:       reads,
		cfg:         cfg,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServeHTTP upgrades the request and runs the connection until it closes.
// A missing or invalid token closes the socket without an error frame.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	claims, err := g.authenticate(conn, handshakeToken(r))
	if err != nil {
		logrus.WithError(err).Debug("Websocket authentication failed")
		conn.Close()
		return
	}

	c := newClient(socketID(r), claims.UserID, conn, g.cfg.SendBuffer)
	g.hub.JoinRoom(c, UserRoom(c.userID))
	g.registry.Add(c.userID, c.id)
	metrics.WSConnections.Inc()

	log := logrus.WithFields(logrus.Fields{"socket_id": c.id, "user_id": c.userID})
	log.Info("Socket connected")

	go c.writePump()
	g.readPump(r.Context(), c, log)

	g.hub.LeaveAll(c)
	if offline := g.registry.Remove(c.userID, c.id); offline {
		log.Info("User offline")
	}
	metrics.WSConnections.Dec()
	c.close()
	log.Info("Socket disconnected")
}

// socketID reuses the request id assigned by the HTTP access logger when
// there is one.
func socketID(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

func handshakeToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authenticate verifies the handshake token, or waits for an auth frame when
// the handshake carried none.
func (g *Gateway) authenticate(conn *websocket.Conn, token string) (*auth.Claims, error) {
	if token == "" {
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(g.cfg.AuthTimeout))

		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return nil, err
		}
		if msg.Event != clientAuth {
			return nil, errors.New("first frame is not auth")
		}
		var data struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return nil, err
		}
		token = data.Token
	}
	return g.verifier.Verify(token)
}

func (g *Gateway) readPump(ctx context.Context, c *Client, log *logrus.Entry) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("Socket closed unexpectedly")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.WithError(err).Debug("Ignoring malformed frame")
			continue
		}
		if err := g.handle(ctx, c, msg); err != nil {
			log.WithError(err).WithField("event", msg.Event).Debug("Client event rejected")
		}
	}
}

func (g *Gateway) handle(ctx context.Context, c *Client, msg inbound) error {
	switch msg.Event {
	case clientJoinEvent:
		id, err := parseID(msg.Data, "eventId")
		if err != nil {
			return err
		}
		g.hub.JoinRoom(c, EventRoom(id))
		return nil

	case clientLeaveEvent:
		id, err := parseID(msg.Data, "eventId")
		if err != nil {
			return err
		}
		g.hub.LeaveRoom(c, EventRoom(id))
		return nil

	case clientChatMessage:
		return g.chat(ctx, c, msg.Data)

	case clientTyping:
		return g.typing(ctx, c, msg.Data)

	case clientMarkAsRead:
		id, err := parseID(msg.Data, "notificationId")
		if err != nil {
			return err
		}
		return g.reads.MarkAsRead(ctx, c.userID, id)
	}
	return errors.New("unknown event")
}

type ChatMessage struct {
	EventID   int64     `json:"eventId"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type TypingIndicator struct {
	EventID  int64 `json:"eventId"`
	UserID   int64 `json:"userId"`
	IsTyping bool  `json:"isTyping"`
}

var errNotInRoom = errors.New("not a member of the event room")

func (g *Gateway) chat(ctx context.Context, c *Client, data json.RawMessage) error {
	var in struct {
		EventID int64  `json:"eventId"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	text := strings.TrimSpace(in.Message)
	if n := utf8.RuneCountInString(text); n == 0 || n > maxChatLength {
		return errors.New("chat message must be 1 to 1000 characters")
	}

	room := EventRoom(in.EventID)
	if !g.hub.InRoom(c, room) {
		return errNotInRoom
	}

	return g.broadcaster.Broadcast(ctx, room, EventNewChatMessage, ChatMessage{
		EventID:   in.EventID,
		UserID:    c.userID,
		Message:   text,
		Timestamp: time.Now().UTC(),
	})
}

func (g *Gateway) typing(ctx context.Context, c *Client, data json.RawMessage) error {
	var in struct {
		EventID  int64 `json:"eventId"`
		IsTyping bool  `json:"isTyping"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	room := EventRoom(in.EventID)
	if !g.hub.InRoom(c, room) {
		return errNotInRoom
	}

	return g.broadcaster.BroadcastExcept(ctx, room, EventUserTyping, TypingIndicator{
		EventID:  in.EventID,
		UserID:   c.userID,
		IsTyping: in.IsTyping,
	}, c.id)
}

// parseID accepts 42, "42" or {"<key>": 42}.
func parseID(data json.RawMessage, key string) (int64, error) {
	var v interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}

	if obj, ok := v.(map[string]interface{}); ok {
		v = obj[key]
	}

	var (
		id  int64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		id, err = t.Int64()
	case string:
		id, err = strconv.ParseInt(t, 10, 64)
	default:
		err = errors.New("missing id")
	}
	if err == nil && id <= 0 {
		err = errors.New("id must be positive")
	}
	return id, err
}
