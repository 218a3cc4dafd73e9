package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/common/errors"
	"github.com/chatbridge/chatbridge/pkg/events"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The bridge is a single-tenant local service; origin checks are the
	// deployment's concern.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEventsWS mirrors the SSE stream over a WebSocket: each normalized
// event is one JSON text frame, and the connection closes cleanly once the
// session's output channel drains. A session's output channel has a single
// consumer; whichever transport attaches first owns the stream.
// GET /api/v1/sessions/:sessionId/ws
func (h *Handler) StreamEventsWS(c *gin.Context) {
	s := h.manager.Get(c.Param("sessionId"))
	if s == nil {
		appErr := errors.NotFound("session", c.Param("sessionId"))
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.WithSessionID(s.ID)
	log.Debug("WebSocket subscriber attached")

	// Discard client frames but service pong handling; the read loop also
	// notices a dropped peer and cancels the write side via closed.
	closed := make(chan struct{})
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Drain the output channel into a send buffer so the write pump can
	// interleave pings with events.
	ctx := c.Request.Context()
	send := make(chan events.AgentEvent, 64)
	go func() {
		defer close(send)
		out := s.Events()
		for {
			e, ok := out.Next(ctx)
			if !ok {
				return
			}
			select {
			case send <- e:
			case <-closed:
				// e was already consumed from the single-consumer output
				// queue and cannot be re-queued; it is lost with the
				// connection that owned the stream.
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case e, ok := <-send:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))
				return
			}

			data, err := json.Marshal(e)
			if err != nil {
				log.Error("failed to marshal event", zap.Error(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug("WebSocket write failed, client gone", zap.Error(err))
				return
			}
		}
	}
}
