package gateway

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wanjiru/triagedesk/internal/logging"
)

// ErrClientClosed is returned when sending on a closed connection.
var ErrClientClosed = errors.New("client connection closed")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	sendBufferSize = 128
)

// Client is one WebSocket connection. Outbound frames go through a
// buffered channel drained by a single write pump, so a slow reader
// never blocks a broadcast; when the buffer fills the connection is
// dropped instead.
type Client struct {
	connID string
	ws     *websocket.Conn
	log    *logging.Logger

	send   chan []byte
	once   sync.Once
	closed chan struct{}
}

// NewClient wraps an upgraded WebSocket connection.
func NewClient(ws *websocket.Conn, log *logging.Logger) *Client {
	return &Client{
		connID: uuid.New().String(),
		ws:     ws,
		log:    log,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// ID returns the connection id assigned at upgrade time.
func (c *Client) ID() string { return c.connID }

// Start launches the write pump. Call exactly once.
func (c *Client) Start() {
	go c.writePump()
}

// Send enqueues an event frame for delivery.
func (c *Client) Send(event string, payload any) error {
	msg, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.closed:
		return ErrClientClosed
	case c.send <- msg:
		return nil
	default:
		c.log.Warn().Str("conn", c.connID).Str("event", event).Msg("send buffer full, dropping client")
		c.Close()
		return errors.New("send buffer exceeded")
	}
}

// Close terminates the connection and stops the write pump. Safe to
// call more than once.
func (c *Client) Close() error {
	c.once.Do(func() {
		close(c.closed)
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.ws.Close()
	})
	return nil
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug().Err(err).Str("conn", c.connID).Msg("write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
