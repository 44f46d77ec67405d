package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/trackside/internal/logger"
	"github.com/yourusername/trackside/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Client message types
const (
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"
)

// Server message types
const (
	MsgHorses = "horses"
	MsgPong   = "pong"
	MsgError  = "error"
)

// ClientMsg is a request from a websocket client
type ClientMsg struct {
	Type   string `json:"type"`
	RaceID string `json:"raceId,omitempty"`
}

// ServerMsg is pushed to websocket clients
type ServerMsg struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	*HorseListUpdate
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks websocket clients and the races each one follows
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// raceID -> set of clients
	subs    map[uuid.UUID]map[*client]struct{}
	clients map[*client]struct{}
	logger  *logrus.Entry
}

// NewHub creates a hub. allowOrigin nil accepts same-origin requests only.
func NewHub(allowOrigin func(r *http.Request) bool, log *logrus.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[uuid.UUID]map[*client]struct{}),
		clients:  make(map[*client]struct{}),
		logger:   logger.OrDiscard(log).WithField("component", "ws_hub"),
	}
}

// AllowOrigins returns a CheckOrigin func accepting the listed origins; "*" accepts all
func AllowOrigins(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		return allowed["*"] || allowed[r.Header.Get("Origin")]
	}
}

// HandleWS upgrades the connection and serves subscribe, unsubscribe and ping messages
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WebsocketConnected()

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMsg
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case MsgSubscribe, MsgUnsubscribe:
			raceID, err := uuid.Parse(msg.RaceID)
			if err != nil {
				h.reply(c, ServerMsg{Type: MsgError, Error: "invalid raceId"})
				continue
			}
			if msg.Type == MsgSubscribe {
				h.subscribe(c, raceID)
			} else {
				h.unsubscribe(c, raceID)
			}
		case MsgPing:
			h.reply(c, ServerMsg{Type: MsgPong})
		default:
			h.reply(c, ServerMsg{Type: MsgError, Error: "unknown message type"})
		}
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
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

func (h *Hub) subscribe(c *client, raceID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[raceID]; !ok {
		h.subs[raceID] = make(map[*client]struct{})
	}
	h.subs[raceID][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, raceID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[raceID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, raceID)
		}
	}
}

// remove drops the client from every race and closes its send queue
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for raceID, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, raceID)
		}
	}
	close(c.send)
	h.mu.Unlock()
	metrics.WebsocketDisconnected()
}

func (h *Hub) reply(c *client, msg ServerMsg) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		h.enqueue(c, b)
	}
}

// enqueue must be called with h.mu held. Slow clients drop messages.
func (h *Hub) enqueue(c *client, b []byte) {
	select {
	case c.send <- b:
	default:
		h.logger.Warn("Websocket client too slow, dropping message")
	}
}

// Broadcast pushes an update to every client following its race
func (h *Hub) Broadcast(update HorseListUpdate) {
	b, err := json.Marshal(ServerMsg{Type: MsgHorses, HorseListUpdate: &update})
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode horse list update")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.subs[update.RaceID] {
		h.enqueue(c, b)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns the number of clients following raceID
func (h *Hub) Subscribers(raceID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[raceID])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}
