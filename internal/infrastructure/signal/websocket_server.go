package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"
	"pairlink/internal/core/services"
	"pairlink/pkg/tracing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SignalMessage is the inbound client frame. Target carries the partner's
// connection id for signaling and end-call; TargetUserID is only used by
// direct-call invites. Payload is passed through to the partner untouched.
type SignalMessage struct {
	Type         string              `json:"type"`
	Target       domain.ConnectionID `json:"target,omitempty"`
	TargetUserID domain.UserID       `json:"target_user_id,omitempty"`
	Payload      json.RawMessage     `json:"payload,omitempty"`
}

// client is one live WebSocket session. Outbound events are queued on send
// and drained by a dedicated writer goroutine, so delivery order per
// connection matches the order the broker emitted them.
type client struct {
	conn *websocket.Conn
	send chan domain.Event
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WebSocketServer owns the WebSocket side of the broker: it authenticates
// the handshake, pumps client frames into the session broker and delivers
// broker events back out. It implements ports.EventSender, which the broker
// calls while holding its lock, so Send never blocks.
type WebSocketServer struct {
	broker ports.SessionBroker
	auth   services.AuthService

	clients map[domain.ConnectionID]*client
	mu      sync.RWMutex

	upgrader websocket.Upgrader

	pingInterval   time.Duration
	pongTimeout    time.Duration
	writeTimeout   time.Duration
	sendBufferSize int
	maxMessageSize int64

	msgRate  rate.Limit
	msgBurst int

	logger *zap.SugaredLogger
}

func NewWebSocketServer(auth services.AuthService, allowedOrigins []string, logger *zap.SugaredLogger) *WebSocketServer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &WebSocketServer{
		auth:           auth,
		clients:        make(map[domain.ConnectionID]*client),
		pingInterval:   30 * time.Second,
		pongTimeout:    60 * time.Second,
		writeTimeout:   10 * time.Second,
		sendBufferSize: 32,
		maxMessageSize: 64 * 1024,
		logger:         logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return s
}

// SetBroker wires the session broker in after construction. The broker needs
// an EventSender to be built, and this server is that sender, so the two are
// connected in this order at startup.
func (s *WebSocketServer) SetBroker(b ports.SessionBroker) {
	s.broker = b
}

func (s *WebSocketServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

func (s *WebSocketServer) SetPongTimeout(timeout time.Duration) {
	s.pongTimeout = timeout
}

func (s *WebSocketServer) SetWriteTimeout(timeout time.Duration) {
	s.writeTimeout = timeout
}

func (s *WebSocketServer) SetSendBufferSize(size int) {
	if size > 0 {
		s.sendBufferSize = size
	}
}

func (s *WebSocketServer) SetMaxMessageSize(size int64) {
	if size > 0 {
		s.maxMessageSize = size
	}
}

// SetMessageRateLimit caps inbound frames per connection. Zero disables the
// limiter.
func (s *WebSocketServer) SetMessageRateLimit(perSecond float64, burst int) {
	s.msgRate = rate.Limit(perSecond)
	s.msgBurst = burst
}

func originChecker(allowed []string) func(r *http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Send queues an event for one connection. Delivery is best-effort: a client
// whose buffer is full is too far behind to hold a usable call, so the event
// is dropped and the slow session torn down by its own read loop eventually.
func (s *WebSocketServer) Send(id domain.ConnectionID, event domain.Event) {
	s.mu.RLock()
	c, ok := s.clients[id]
	s.mu.RUnlock()
	if !ok {
		return
	}

	select {
	case c.send <- event:
	default:
		s.logger.Warnw("dropping event for slow client",
			"connection_id", id, "event_type", event.Type)
	}
}

// ConnectionCount reports live WebSocket sessions, for health reporting.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	connID := domain.ConnectionID(uuid.NewString())
	userID := claims.UserID

	c := &client{
		conn: conn,
		send: make(chan domain.Event, s.sendBufferSize),
		done: make(chan struct{}),
	}

	// The client must be reachable before Connect: the broker emits the
	// connected event, and possibly paired, from inside Connect.
	s.mu.Lock()
	s.clients[connID] = c
	s.mu.Unlock()

	go s.writePump(connID, c)

	s.broker.Connect(connID, userID)
	s.logger.Infow("client connected", "connection_id", connID, "user_id", userID)

	s.readPump(connID, userID, c)

	s.mu.Lock()
	delete(s.clients, connID)
	s.mu.Unlock()

	s.broker.Disconnect(connID)
	c.close()
	s.logger.Infow("client disconnected", "connection_id", connID, "user_id", userID)
}

// writePump is the single writer for one connection. It serializes queued
// events and keepalive pings onto the socket.
func (s *WebSocketServer) writePump(id domain.ConnectionID, c *client) {
	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteJSON(event); err != nil {
				s.logger.Debugw("write failed", "connection_id", id, "error", err)
				c.close()
				return
			}

		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}

		case <-c.done:
			return
		}
	}
}

func (s *WebSocketServer) readPump(connID domain.ConnectionID, userID domain.UserID, c *client) {
	c.conn.SetReadLimit(s.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	var limiter *rate.Limiter
	if s.msgRate > 0 {
		limiter = rate.NewLimiter(s.msgRate, s.msgBurst)
	}

	for {
		var msg SignalMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debugw("read failed", "connection_id", connID, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(s.pongTimeout))

		if limiter != nil && !limiter.Allow() {
			s.logger.Warnw("message rate limit exceeded",
				"connection_id", connID, "user_id", userID, "type", msg.Type)
			continue
		}

		if err := s.handleMessage(connID, msg); err != nil {
			s.logger.Infow("rejected client message",
				"connection_id", connID, "type", msg.Type, "error", err)
			s.Send(connID, domain.ErrorEvent(err.Error()))
		}
	}
}

func (s *WebSocketServer) handleMessage(connID domain.ConnectionID, msg SignalMessage) error {
	_, span := tracing.TraceBrokerEvent(context.Background(), msg.Type, string(connID))
	defer span.End()

	switch msg.Type {
	case "offer", "answer", "ice-candidate":
		if msg.Target == "" {
			return fmt.Errorf("%s requires a target", msg.Type)
		}
		s.broker.Relay(connID, domain.SignalKind(msg.Type), msg.Target, msg.Payload)
		return nil

	case "direct-call":
		if msg.TargetUserID == "" {
			return fmt.Errorf("direct-call requires target_user_id")
		}
		s.broker.DirectCall(connID, msg.TargetUserID)
		return nil

	case "next-call":
		s.broker.NextCall(connID)
		return nil

	case "end-call":
		if msg.Target == "" {
			return fmt.Errorf("end-call requires a target")
		}
		s.broker.EndCall(connID, msg.Target)
		return nil

	case "":
		return fmt.Errorf("message type is required")

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}
