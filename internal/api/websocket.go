package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mjelva/netwarden/internal/logging"
	"github.com/mjelva/netwarden/internal/metrics"
	"github.com/mjelva/netwarden/internal/session"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsPingInterval  = 30 * time.Second
	wsSendQueueSize = 16
)

// wsMessage is the envelope pushed to websocket clients.
type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// wsHub fans session status changes out to connected websocket clients.
// A client that cannot keep up is disconnected rather than allowed to
// stall the rest.
type wsHub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger
	metrics  *metrics.Metrics
	state    *session.State

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	stopped bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan wsMessage
	done chan struct{}
	once sync.Once
}

func newWSHub(logger *logging.Logger, m *metrics.Metrics) *wsHub {
	return &wsHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		metrics: m,
		clients: make(map[*wsClient]struct{}),
	}
}

// start hooks the hub into session state changes.
func (h *wsHub) start(state *session.State) {
	h.state = state
	state.OnChange(func(status session.Status) {
		h.broadcast(wsMessage{Type: "status", Data: status})
	})
}

// stop disconnects every client. New connections are rejected afterwards.
func (h *wsHub) stop() {
	h.mu.Lock()
	h.stopped = true
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.drop(c)
	}
}

func (h *wsHub) serveWS(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed", "error", err)
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan wsMessage, wsSendQueueSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.metrics.AddWSClients(1)
	h.logger.Debug("Websocket client connected", "clients", count)

	// Seed the new client with the current state so it does not have to
	// wait for the next change.
	if h.state != nil {
		client.send <- wsMessage{Type: "status", Data: h.state.Status()}
		client.send <- wsMessage{Type: "devices", Data: deviceSetSummary{
			Devices:     h.state.Devices(),
			HealthScore: h.state.HealthScore(),
		}}
	}

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *wsHub) broadcast(msg wsMessage) {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("Websocket client too slow, dropping")
			h.drop(c)
		}
	}
}

func (h *wsHub) drop(c *wsClient) {
	c.once.Do(func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(c.done)
		_ = c.conn.Close()
		h.metrics.AddWSClients(-1)
	})
}

func (h *wsHub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteJSON(msg); err != nil {
				h.drop(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c)
				return
			}
		}
	}
}

// readLoop drains client frames to surface disconnects; inbound payloads
// are ignored.
func (h *wsHub) readLoop(c *wsClient) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
