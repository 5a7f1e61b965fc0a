package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/chessmatch/internal/model"
	"github.com/mcoot/chessmatch/internal/services/registry"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between pings; must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Largest inbound message accepted
	maxMessageSize = 64 * 1024

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrBufferFull       = errors.New("send buffer full")
)

// Connection is a WebSocket client. Writes go through a single writer goroutine.
type Connection struct {
	id     registry.ConnID
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// Ensure Connection implements registry.Conn
var _ registry.Conn = (*Connection)(nil)

func newConnection(conn *websocket.Conn, logger *slog.Logger) *Connection {
	id := registry.ConnID(uuid.NewString())
	return &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		logger: logger.With(slog.String("conn_id", string(id))),
	}
}

// ID returns the connection id
func (c *Connection) ID() registry.ConnID {
	return c.id
}

// Send queues a message without blocking. A full buffer drops the message.
func (c *Connection) Send(msg model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", msg.Event, err)
	}

	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	default:
		return ErrBufferFull
	}
}

// Close stops the writer, which then closes the socket
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump delivers queued messages and keepalive pings until the connection closes
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("write failed", slog.Any("error", err))
				c.Close()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}
