package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/pkg/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by main server)
		return true
	},
}

// transport is the subset of *websocket.Conn the hub needs; tests
// substitute a fake.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Hub tracks live market data connections. Add on handshake, Remove on
// disconnect, read error, or send failure; removal of a non-member is
// a no-op. Publish never blocks on a slow client: a full send buffer
// marks the connection dead, and dead connections are pruned and
// closed after the fanout pass.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	log     *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		log:     log,
	}
}

// Add registers a connected client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	metrics.StreamClients.Set(float64(n))
	h.log.Infow("client connected", "id", c.id, "total", n)
}

// Remove deregisters a client and closes its transport. Idempotent.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.shutdown()
	metrics.StreamClients.Set(float64(n))
	h.log.Infow("client disconnected", "id", c.id, "total", n)
}

// Publish fans one message out to every live client. Clients whose
// send buffer is full are collected as dead and removed once the pass
// completes.
func (h *Hub) Publish(message []byte) {
	var dead []*Client

	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- message:
		default:
			// Client send buffer full, disconnect
			dead = append(dead, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range dead {
		metrics.BroadcastDrops.Inc()
		h.log.Warnw("dropping slow client", "id", c.id)
		h.Remove(c)
	}
}

// Len reports the live connection count.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every remaining connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
	metrics.StreamClients.Set(0)
}

// Client is one market data subscriber.
type Client struct {
	id   string
	hub  *Hub
	conn transport

	send chan []byte
	done chan struct{}

	writeTimeout time.Duration
	closeOnce    sync.Once
}

// NewClient wraps an accepted connection. Callers must start the pumps.
func NewClient(hub *Hub, conn transport, sendBuffer int, writeTimeout time.Duration) *Client {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Client{
		id:           uuid.NewString(),
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (c *Client) ID() string { return c.id }

// shutdown releases the transport and stops the write pump. Close
// failures are expected when the peer already went away.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.hub.log.Debugw("close transport", "id", c.id, "err", err)
		}
	})
}

// writePump drains the send buffer onto the wire. Every write carries
// a deadline so one stuck peer cannot hold the pump.
func (c *Client) writePump() {
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.Remove(c)
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards inbound frames; the stream is server-push only.
// Reading is what detects a client disconnect.
func (c *Client) readPump() {
	defer c.hub.Remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnw("read error", "id", c.id, "err", err)
			}
			return
		}
	}
}

// handleMarketData upgrades the request and attaches the client to the
// hub.
func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := NewClient(s.hub, conn, s.cfg.MarketData.SendBuffer, s.cfg.MarketData.WriteTimeout)
	s.hub.Add(client)

	go client.writePump()
	go client.readPump()
}
