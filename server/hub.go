package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	outboxSize   = 16
	pingInterval = 30 * time.Second
	pongWait     = 2 * pingInterval
	writeWait    = 5 * time.Second
)

type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func encode(msgType string, payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Err(err).Str("type", msgType).Msg("ws-encode")
		return nil
	}
	data, err := json.Marshal(wsMessage{Type: msgType, Payload: raw})
	if err != nil {
		log.Err(err).Str("type", msgType).Msg("ws-encode")
		return nil
	}
	return data
}

// Hub fans committed game state out to every connected websocket client.
// Messages are encoded once and copied into each client's outbox; a client
// whose outbox is full misses the message.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	fanout  chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		fanout:  make(chan []byte, 64),
	}
}

func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case data := <-h.fanout:
			h.mu.Lock()
			for c := range h.clients {
				c.offer(data)
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues a message for every client. It reports false, dropping the
// message, when the hub is backed up, so a game step never blocks on it.
func (h *Hub) Publish(msgType string, payload any) bool {
	data := encode(msgType, payload)
	if data == nil {
		return false
	}
	select {
	case h.fanout <- data:
		return true
	default:
		return false
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister closes the client's outbox, which ends its write loop.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.outbox)
	}
	h.mu.Unlock()
}

// Client is one websocket connection. Only writeLoop writes data frames.
type Client struct {
	conn   *websocket.Conn
	outbox chan []byte
}

func newClient(conn *websocket.Conn) *Client {
	c := &Client{conn: conn, outbox: make(chan []byte, outboxSize)}
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	return c
}

func (c *Client) offer(data []byte) {
	select {
	case c.outbox <- data:
	default:
	}
}

func (c *Client) send(msgType string, payload any) {
	if data := encode(msgType, payload); data != nil {
		c.offer(data)
	}
}

// writeLoop drains the outbox onto the connection and pings on every tick.
// The pong handler keeps the read side alive.
func (c *Client) writeLoop() error {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case data, ok := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}
