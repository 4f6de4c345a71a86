package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"todoshi/internal/room"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 64 * 1024

	// Outbound frames buffered per connection before events are dropped.
	sendQueueSize = 256

	// Upper bound for handling one inbound event.
	eventTimeout = 15 * time.Second
)

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client is a websocket connection owned by one verified user
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	router *Router
	send   chan []byte

	mu     sync.Mutex
	closed bool
	log    *logrus.Entry
}

func NewClient(conn *websocket.Conn, userID string, hub *Hub, router *Router) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		hub:    hub,
		router: router,
		send:   make(chan []byte, sendQueueSize),
		log: logrus.WithFields(logrus.Fields{
			"component":     "client",
			"connection_id": id,
			"user_id":       userID,
		}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }

func (c *Client) Emit(event string, payload any) bool {
	frame, err := json.Marshal(outbound{Event: event, Data: payload})
	if err != nil {
		c.log.WithError(err).WithField("event", event).Error("encode event")
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the socket and ends the read pump
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Run starts both pumps. ctx bounds the lifetime of event handlers.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	go c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Leave(c)
		c.Close()
		c.conn.Close()
		c.log.Info("connection closed")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.WithError(err).Warn("unexpected close")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.Emit(room.EventServerError, map[string]string{"message": "malformed frame"})
			continue
		}

		// events of one connection are handled in arrival order
		eventCtx, cancel := context.WithTimeout(ctx, eventTimeout)
		c.router.Dispatch(eventCtx, c, frame)
		cancel()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}
