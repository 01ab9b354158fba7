package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a client may fall behind before it is dropped.
	sendBuffer = 16
)

// Conn is the part of a websocket connection the hub writes to.
// *websocket.Conn satisfies it.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteJSON(v interface{}) error
	Close() error
}

type client struct {
	conn Conn
	send chan Event
}

// Hub tracks kitchen and admin websocket connections and pushes order events to them.
// Every client has its own writer goroutine, so one slow socket never holds up
// Publish or the other clients.
type Hub struct {
	clients map[Conn]*client
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[Conn]*client)}
}

func (h *Hub) Register(conn Conn) {
	c := &client{conn: conn, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	h.clients[conn] = c
	h.mu.Unlock()

	go h.writeLoop(c)
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", conn)).Info("Client registered with order hub.")
}

func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	if c, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(c.send)
	}
	h.mu.Unlock()
	logrus.WithField("conn_ptr", fmt.Sprintf("%p", conn)).Info("Client unregistered from order hub.")
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish queues event for every client without waiting on the network.
// A client whose queue is full is dropped and its connection closed.
func (h *Hub) Publish(ctx context.Context, event Event) error {
	var stalled []*client

	h.mu.Lock()
	for conn, c := range h.clients {
		select {
		case c.send <- event:
		default:
			delete(h.clients, conn)
			close(c.send)
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		logrus.WithField("conn_ptr", fmt.Sprintf("%p", c.conn)).Warn("Client fell behind, dropping it from order hub.")
		c.conn.Close()
	}
	return nil
}

func (h *Hub) writeLoop(c *client) {
	for event := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(event); err != nil {
			logrus.WithError(err).WithField("conn_ptr", fmt.Sprintf("%p", c.conn)).Warn("Failed to push event, dropping client.")
			h.remove(c)
			c.conn.Close()
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.conn] == c {
		delete(h.clients, c.conn)
		close(c.send)
	}
}
