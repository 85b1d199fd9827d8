package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/metrics"
)

// Client is a connected websocket client.
type Client struct {
	ctx  context.Context
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	metrics.LiveSessions.Set(float64(len(h.clients)))
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.LiveSessions.Set(float64(len(h.clients)))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// enqueue sends msg to c unless it has been unregistered or is full.
func (h *Hub) enqueue(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Ctx(c.ctx).DebugContext(c.ctx, "live write failed", slog.Any("error", err))
			return
		}
	}
}
