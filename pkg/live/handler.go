// Package live serves the websocket that recomputes an estimate whenever a
// client changes one of its inputs.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pvsizer/pvsizer/pkg/log"
	"github.com/pvsizer/pvsizer/pkg/report"
	"github.com/pvsizer/pvsizer/pkg/types"
)

// Handler upgrades requests to live sessions.
type Handler struct {
	hub      *Hub
	builder  *report.Builder
	upgrader websocket.Upgrader

	// Initial returns the configuration a new session starts from, such as
	// the user's saved one.
	Initial func(r *http.Request) types.SavedConfiguration

	// MaxMessageBytes closes a session that sends a larger message.
	MaxMessageBytes int64
}

// DefaultMaxMessageBytes is the message limit of a new Handler.
const DefaultMaxMessageBytes = 32 << 20

func NewHandler(hub *Hub, builder *report.Builder) *Handler {
	return &Handler{
		hub:             hub,
		builder:         builder,
		MaxMessageBytes: DefaultMaxMessageBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}
	if h.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.MaxMessageBytes)
	}

	var cfg types.SavedConfiguration
	if h.Initial != nil {
		cfg = h.Initial(r)
	}

	client := &Client{
		ctx:  ctx,
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.hub.Register(client)
	go client.writePump()

	h.readPump(client, NewSession(h.builder, cfg))
}

func (h *Handler) readPump(c *Client, s *Session) {
	ctx := c.ctx
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Ctx(ctx).WarnContext(ctx, "websocket read error", slog.Any("error", err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			h.sendError(c, err)
			continue
		}
		if err := s.Apply(env); err != nil {
			h.sendError(c, err)
			continue
		}
		if !s.HasData() {
			continue
		}
		res, err := s.Recompute(ctx)
		if err != nil {
			h.sendError(c, err)
			continue
		}
		h.send(c, TypeResult, res)
	}
}

func (h *Handler) sendError(c *Client, err error) {
	log.Ctx(c.ctx).DebugContext(c.ctx, "live session error", slog.Any("error", err))
	h.send(c, TypeError, ErrorPayload{Error: err.Error()})
}

func (h *Handler) send(c *Client, t string, payload any) {
	msg, err := NewEnvelope(t, payload)
	if err != nil {
		log.Ctx(c.ctx).ErrorContext(c.ctx, "failed to encode live message", slog.Any("error", err))
		return
	}
	if !h.hub.enqueue(c, msg) {
		log.Ctx(c.ctx).WarnContext(c.ctx, "live client buffer full, dropping message")
	}
}
