package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/common/errors"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// StreamEvents subscribes to a session's normalized event stream over SSE.
// Each event is one "data: {json}\n\n" frame; the stream ends with
// "data: [DONE]\n\n" once the session's output channel closes.
// GET /api/v1/sessions/:sessionId/events
func (h *Handler) StreamEvents(c *gin.Context) {
	s := h.manager.Get(c.Param("sessionId"))
	if s == nil {
		appErr := errors.NotFound("session", c.Param("sessionId"))
		c.JSON(appErr.HTTPStatus, appErr)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	log := h.logger.WithSessionID(s.ID)
	log.Debug("SSE subscriber attached")

	// The request context ends when the client disconnects; Next unblocks
	// and the handler returns. The session driver keeps running either way.
	ctx := c.Request.Context()
	for {
		e, ok := s.Events().Next(ctx)
		if !ok {
			break
		}
		if err := writeEvent(c.Writer, e); err != nil {
			log.Debug("SSE write failed, client gone", zap.Error(err))
			return
		}
		c.Writer.Flush()
	}

	// End-of-stream: either the session completed or the client went away.
	if _, err := io.WriteString(c.Writer, events.EncodeDone()); err == nil {
		c.Writer.Flush()
	}
	log.Debug("SSE subscriber detached")
}

func writeEvent(w io.Writer, e events.AgentEvent) error {
	frame, err := events.EncodeEvent(e)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, frame)
	return err
}
