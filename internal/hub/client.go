package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weiawesome/wes-io-dm/internal/config"
	"github.com/weiawesome/wes-io-dm/pkg/log"
)

var (
	ErrClientClosed = errors.New("connection closed")
	ErrSendBuffer   = errors.New("send buffer full")
)

// Conn is the subset of *websocket.Conn used by Client.
type Conn interface {
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live connection of an authenticated user. It implements
// presence.Handle.
type Client struct {
	ID     string
	UserID string
	Hub    *Hub
	Conn   Conn
	Send   chan []byte

	config config.WebSocketConfig
	mu     sync.Mutex
	closed bool
}

func NewClient(id, userID string, hub *Hub, conn Conn, cfg config.WebSocketConfig) *Client {
	buf := cfg.SendBuffer
	if buf <= 0 {
		buf = 256
	}
	return &Client{
		ID:     id,
		UserID: userID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, buf),
		config: cfg,
	}
}

// Push serializes event and queues it for the write pump. It fails rather
// than blocks when the connection is closed or saturated.
func (c *Client) Push(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return ErrSendBuffer
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// ReadPump reads frames until the connection fails, then unregisters.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	if c.config.MaxMessageSize > 0 {
		c.Conn.SetReadLimit(c.config.MaxMessageSize)
	}
	c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				l := log.L()
				l.Warn().Err(err).Str(log.FieldConnID, c.ID).Str(log.FieldUserID, c.UserID).Msg("websocket read error")
			}
			break
		}

		handler(c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
