package session

import (
	"context"

	"github.com/chatbridge/chatbridge/internal/bridge/channel"
	"github.com/chatbridge/chatbridge/internal/bridge/gate"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// PermissionHandler is the tool-gate callback handed to the engine. The
// engine calls it before executing a tool and blocks on the returned
// channel until the user responds.
type PermissionHandler func(toolName string, input map[string]any, rctx *gate.RequestContext) <-chan gate.PermissionResult

// QueryRequest is the input handed to an engine invocation.
type QueryRequest struct {
	// Prompt carries user turns as engine-shaped user messages. The
	// engine drains it; when empty it suspends until the next turn is
	// pushed, which is what enables multi-turn conversations over one
	// invocation.
	Prompt *channel.Queue[events.EngineMessage]

	// CanUseTool is the permission gate callback.
	CanUseTool PermissionHandler
}

// EngineHandle is what an engine invocation returns: its output stream and
// its control handles.
type EngineHandle struct {
	// Messages yields the engine's heterogeneous output messages and is
	// closed by the engine when the invocation finishes.
	Messages *channel.Queue[events.EngineMessage]

	// Interrupt asks the engine to stop the current turn.
	Interrupt func()

	// Abort tears the invocation down.
	Abort func()
}

// QueryFunc starts an engine invocation. The context is cancelled when the
// owning session is aborted.
type QueryFunc func(ctx context.Context, req QueryRequest) (*EngineHandle, error)
