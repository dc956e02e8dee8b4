package viz

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/clubgraph/clubgraph/internal/engine"
	"github.com/clubgraph/clubgraph/internal/filter"
	"github.com/clubgraph/clubgraph/internal/observability"
	"github.com/clubgraph/clubgraph/internal/render"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Slow consumers are dropped rather than allowed to block broadcasts.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local visualization tool; the browser client runs on a
		// different port than the API.
		return true
	},
}

// Hub fans engine events out to connected websocket clients and feeds
// client intents back into the engine.
type Hub struct {
	engine *engine.Engine
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]bool

	unsubscribe func()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// Intent is a client-originated command. Only the fields relevant to
// the action are populated.
type Intent struct {
	Action   string           `json:"action"`
	Criteria *filter.Criteria `json:"criteria,omitempty"`
	Nodes    []int            `json:"nodes,omitempty"`
	Mode     string           `json:"mode,omitempty"`
	Viewport *render.Viewport `json:"viewport,omitempty"`
}

// NewHub creates a hub bound to the engine. Engine events are relayed
// to every connected client until Close is called.
func NewHub(eng *engine.Engine, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		engine:  eng,
		logger:  logger,
		clients: make(map[*client]bool),
	}
	h.unsubscribe = eng.Subscribe(h.onEvent)
	return h
}

// Close detaches the hub from the engine and disconnects all clients.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	for c := range h.clients {
		c.close()
	}
	h.clients = make(map[*client]bool)
	h.mu.Unlock()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) onEvent(ev engine.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", "type", ev.Type, "error", err)
		return
	}
	h.broadcast(data)
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Buffer full: the client is too slow to keep up.
			h.logger.Warn("dropping event for slow websocket client")
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	observability.Metrics().WebsocketClients.Set(float64(n))
	h.logger.Info("websocket client connected", "clients", n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	n := len(h.clients)
	h.mu.Unlock()
	observability.Metrics().WebsocketClients.Set(float64(n))
	h.logger.Info("websocket client disconnected", "clients", n)
}

// HandleWebSocket upgrades the connection and runs the client pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	h.register(c)

	// Greet with the current state so a late joiner does not have to
	// wait for the next mutation.
	if greeting, err := json.Marshal(h.snapshotEvent()); err == nil {
		c.send <- greeting
	}

	go c.writePump()
	c.readPump()
}

// snapshotEvent builds a synthetic snapshot.replaced event from the
// engine's current view.
func (h *Hub) snapshotEvent() engine.Event {
	snap := h.engine.Snapshot()
	criteria := h.engine.Criteria()
	return engine.Event{
		Type:      engine.EventSnapshotReplaced,
		Meta:      &snap.Meta,
		Criteria:  &criteria,
		Selection: h.engine.Selection(),
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// writePump drains the send channel to the connection and keeps the
// link alive with pings. One per client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes intents from the connection until it drops.
func (c *client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(64 << 10)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var intent Intent
		if err := json.Unmarshal(msg, &intent); err != nil {
			c.hub.logger.Warn("malformed intent", "error", err)
			continue
		}
		c.hub.dispatch(&intent)
	}
}

// dispatch applies a client intent to the engine. Failures are logged
// but never terminate the connection; the client learns the outcome
// from the resulting event stream (or its absence).
func (h *Hub) dispatch(in *Intent) {
	ctx := context.Background()
	switch in.Action {
	case "filter":
		criteria := filter.Criteria{}
		if in.Criteria != nil {
			criteria = *in.Criteria
		}
		if err := h.engine.ApplyFilters(ctx, criteria); err != nil {
			h.logger.Warn("filter intent rejected", "error", err)
		}
	case "select":
		if err := h.engine.SelectNodes(in.Nodes); err != nil {
			h.logger.Warn("select intent rejected", "error", err)
		}
	case "undo":
		h.engine.Undo()
	case "redo":
		h.engine.Redo()
	case "mode":
		if err := h.engine.SetPerformanceMode(in.Mode); err != nil {
			h.logger.Warn("mode intent rejected", "mode", in.Mode, "error", err)
		}
	case "auto-mode":
		h.engine.SetAutoPerformanceMode()
	case "viewport":
		if in.Viewport != nil {
			h.engine.ViewportChanged(*in.Viewport)
		}
	case "frame":
		h.engine.Frame()
	default:
		h.logger.Warn("unknown intent", "action", in.Action)
	}
}
