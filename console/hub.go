package console

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Hub streams console messages to websocket clients as JSON. Clients may
// restrict the stream to one instance by connecting with a `key` query
// parameter. Slow clients lose messages rather than blocking the emitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	feed    *Feed
}

var _ Sink = (*Hub)(nil)
var _ http.Handler = (*Hub)(nil)

// Client is one websocket connection of a hub.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	key  string
	hub  *Hub
}

// NewHub creates a hub. If feed is non-nil, the hub subscribes to it and
// replays a key's history to clients connecting with a key filter.
func NewHub(feed *Feed) *Hub {
	h := &Hub{clients: make(map[*Client]bool), feed: feed}
	if feed != nil {
		feed.Subscribe(h.Emit)
	}
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit broadcasts a message to all clients interested in its key.
func (h *Hub) Emit(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		tracer().Errorf("cannot encode console message: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if client.key != "" && client.key != m.Key {
			continue
		}
		select {
		case client.send <- data:
		default:
			tracer().Debugf("console client too slow, dropping message")
		}
	}
}

// ServeHTTP upgrades the connection to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		tracer().Errorf("console websocket upgrade failed: %v", err)
		return
	}
	client := &Client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		key:  r.URL.Query().Get("key"),
		hub:  h,
	}
	if h.feed != nil && client.key != "" {
		for _, m := range h.feed.History(client.key) {
			if data, err := json.Marshal(m); err == nil {
				select {
				case client.send <- data:
				default:
				}
			}
		}
	}
	h.addClient(client)
	tracer().Infof("console client connected, key=%q", client.key)
	go client.writePump()
	go client.readPump()
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *Client) writePump() {
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

// readPump only drains control frames; console clients do not talk back.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		tracer().Infof("console client disconnected")
	}()
	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
