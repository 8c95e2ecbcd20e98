package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 5 * time.Second

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one subscribed socket, scoped to an establishment ("" = all).
type Client struct {
	Topic string
	Conn  Conn

	mu sync.Mutex
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteMessage(messageType, data)
}

// Ping sends a websocket ping control frame.
func (c *Client) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

// Hub fans scan events out to the screens watching an establishment.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

// Register subscribes c to its topic.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.clients[c.Topic] == nil {
		h.clients[c.Topic] = make(map[*Client]struct{})
	}
	h.clients[c.Topic][c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c and closes its connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set := h.clients[c.Topic]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.Topic)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// Count returns the number of subscribers of a topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// Publish sends payload to subscribers of topic and to global subscribers.
// Clients whose write fails are dropped.
func (h *Hub) Publish(topic string, payload any) {
	msg, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("realtime payload not serializable", zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[topic])+len(h.clients[""]))
	for c := range h.clients[topic] {
		targets = append(targets, c)
	}
	if topic != "" {
		for c := range h.clients[""] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.write(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("realtime client dropped", zap.String("topic", c.Topic), zap.Error(err))
			h.Unregister(c)
		}
	}
}
