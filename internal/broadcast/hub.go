// Package broadcast fans match updates and notifications out to connected
// application views over WebSocket, and relays their control messages.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/albapepper/matchwatch/internal/metrics"
	"github.com/albapepper/matchwatch/internal/notifications"
)

// Message types exchanged with views.
const (
	TypeMatchesUpdated   = "MATCHES_UPDATED"
	TypeShowNotification = "SHOW_NOTIFICATION"

	TypeStartScheduler = "START_NOTIFICATION_SCHEDULER"
	TypeStopScheduler  = "STOP_NOTIFICATION_SCHEDULER"
	TypeSync           = "SYNC"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 4096
	queueSize      = 32
)

// ErrNoViews is returned by Send when no view is connected to display the
// notification.
var ErrNoViews = errors.New("no views connected")

// Message is the envelope for every frame.
type Message struct {
	Type         string                      `json:"type"`
	Matches      []json.RawMessage           `json:"matches,omitempty"`
	Notification *notifications.Notification `json:"notification,omitempty"`
}

// ControlFunc handles an inbound control message from a view.
type ControlFunc func(ctx context.Context, msgType string) error

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks connected views. The zero value is not usable; use NewHub.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	clients map[*client]struct{}
	control ControlFunc
}

// NewHub creates a Hub. allowedOrigins restricts the WebSocket handshake;
// an empty list or "*" accepts any origin.
func NewHub(allowedOrigins []string, m *metrics.Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:  logger,
		metrics: m,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// OnControl registers the handler for inbound control messages.
func (h *Hub) OnControl(fn ControlFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.control = fn
}

// Count returns the number of connected views.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the view until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, queueSize)}
	h.register(c)
	h.logger.Info("View connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(r.Context(), c)

	h.unregister(c)
	h.logger.Info("View disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.ViewsConnected(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	h.metrics.ViewsConnected(n)
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("View read error", "error", err)
			}
			return
		}
		h.dispatch(ctx, msg.Type)
	}
}

func (h *Hub) dispatch(ctx context.Context, msgType string) {
	switch msgType {
	case TypeStartScheduler, TypeStopScheduler, TypeSync:
	default:
		h.logger.Debug("Ignoring view message", "type", msgType)
		return
	}

	h.mu.Lock()
	fn := h.control
	h.mu.Unlock()
	if fn == nil {
		return
	}
	if err := fn(ctx, msgType); err != nil {
		h.logger.Warn("Control message failed", "type", msgType, "error", err)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcast queues frame for every view and returns how many accepted it.
// A view whose queue is full is disconnected.
func (h *Hub) broadcast(frame []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- frame:
			delivered++
		default:
			delete(h.clients, c)
			c.close()
			h.logger.Warn("Dropping slow view", "remote", c.conn.RemoteAddr())
		}
	}
	h.metrics.ViewsConnected(len(h.clients))
	return delivered
}

// BroadcastMatches sends the match list, verbatim, to every view.
func (h *Hub) BroadcastMatches(matches []json.RawMessage) {
	if matches == nil {
		matches = []json.RawMessage{}
	}
	frame, err := json.Marshal(struct {
		Type    string            `json:"type"`
		Matches []json.RawMessage `json:"matches"`
	}{TypeMatchesUpdated, matches})
	if err != nil {
		h.logger.Error("Encode match broadcast", "error", err)
		return
	}
	h.broadcast(frame)
}

// Send displays n on every connected view. It fails with ErrNoViews when no
// view received it, so the caller can retry on a later cycle.
func (h *Hub) Send(_ context.Context, n notifications.Notification) error {
	frame, err := json.Marshal(Message{Type: TypeShowNotification, Notification: &n})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if h.broadcast(frame) == 0 {
		return ErrNoViews
	}
	return nil
}

// Close disconnects every view.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	h.metrics.ViewsConnected(0)
}
