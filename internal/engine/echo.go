// Package engine provides built-in engine factories. The bridge treats the
// engine as an opaque message source; a production deployment plugs its own
// session.QueryFunc into the manager, while Echo gives the binary a working
// loopback engine for local development and smoke testing.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/chatbridge/chatbridge/internal/bridge/channel"
	"github.com/chatbridge/chatbridge/internal/bridge/session"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// Echo returns an engine factory that answers every user turn with a
// streamed echo of its text. Each turn ends with a success result; the
// invocation runs until the prompt channel closes or the context is
// cancelled.
func Echo(log *logger.Logger) session.QueryFunc {
	return func(ctx context.Context, req session.QueryRequest) (*session.EngineHandle, error) {
		out := channel.New[events.EngineMessage]()

		go func() {
			defer out.Close()

			out.Push(events.EngineMessage{
				"type":       "system",
				"subtype":    "init",
				"session_id": uuid.NewString(),
			})

			for {
				msg, ok := req.Prompt.Next(ctx)
				if !ok {
					return
				}
				text := msg.Map("message").Str("content")

				out.Push(events.EngineMessage{
					"type":  "stream_event",
					"event": map[string]any{"type": "message_start"},
				})
				out.Push(events.EngineMessage{
					"type": "stream_event",
					"event": map[string]any{
						"type": "content_block_delta",
						"delta": map[string]any{
							"type": "text_delta",
							"text": fmt.Sprintf("You said: %s", text),
						},
					},
				})
				out.Push(events.EngineMessage{"type": "result", "subtype": "success"})
			}
		}()

		return &session.EngineHandle{
			Messages:  out,
			Interrupt: func() { log.Debug("echo engine: interrupt is a no-op") },
			Abort:     out.Close,
		}, nil
	}
}
