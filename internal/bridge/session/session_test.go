package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbridge/chatbridge/internal/bridge/channel"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/pkg/events"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	return log
}

// scriptedEngine returns a QueryFunc whose invocation runs script in its
// own goroutine and closes the message stream when it returns.
func scriptedEngine(script func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage])) QueryFunc {
	return func(ctx context.Context, req QueryRequest) (*EngineHandle, error) {
		out := channel.New[events.EngineMessage]()
		go func() {
			defer out.Close()
			script(ctx, req, out)
		}()
		return &EngineHandle{Messages: out}, nil
	}
}

// drainEvents collects every event until the output channel closes.
func drainEvents(t *testing.T, s *Session) []events.AgentEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out []events.AgentEvent
	for {
		e, ok := s.Events().Next(ctx)
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

func TestSession_TextStreaming(t *testing.T) {
	engine := scriptedEngine(func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage]) {
		// The engine consumes the initial prompt first.
		prompt, ok := req.Prompt.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, "user", prompt.Type())
		assert.Equal(t, "Hello", prompt.Map("message").Str("content"))

		out.Push(events.EngineMessage{"type": "system", "subtype": "init", "session_id": "int-1"})
		out.Push(events.EngineMessage{"type": "stream_event", "event": map[string]any{"type": "message_start"}})
		out.Push(events.EngineMessage{"type": "stream_event", "event": map[string]any{
			"type":  "content_block_delta",
			"delta": map[string]any{"type": "text_delta", "text": "Hello "},
		}})
		out.Push(events.EngineMessage{"type": "stream_event", "event": map[string]any{
			"type":  "content_block_delta",
			"delta": map[string]any{"type": "text_delta", "text": "world!"},
		}})
		out.Push(events.EngineMessage{"type": "assistant", "message": map[string]any{"content": []any{}}})
		out.Push(events.EngineMessage{"type": "result", "subtype": "success"})
	})

	m := NewManager(engine, nil, testLogger(t))
	s, err := m.Create("Hello")
	require.NoError(t, err)

	got := drainEvents(t, s)
	want := []events.AgentEvent{
		events.NewSessionInit("int-1"),
		events.NewMessageStart(""),
		events.NewTextDelta("Hello "),
		events.NewTextDelta("world!"),
		events.NewResult(nil),
	}
	assert.Equal(t, want, got)
}

func TestSession_MultiTurn(t *testing.T) {
	engine := scriptedEngine(func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage]) {
		for turn := 0; turn < 2; turn++ {
			if _, ok := req.Prompt.Next(ctx); !ok {
				return
			}
			out.Push(events.EngineMessage{"type": "stream_event", "event": map[string]any{"type": "message_start"}})
			out.Push(events.EngineMessage{"type": "stream_event", "event": map[string]any{
				"type":  "content_block_delta",
				"delta": map[string]any{"type": "text_delta", "text": "turn"},
			}})
		}
		out.Push(events.EngineMessage{"type": "result", "subtype": "success"})
	})

	m := NewManager(engine, nil, testLogger(t))
	s, err := m.Create("first")
	require.NoError(t, err)

	s.PushMessage("second")

	got := drainEvents(t, s)
	starts := 0
	for _, e := range got {
		if e.Type == events.EventMessageStart {
			starts++
		}
	}
	assert.Equal(t, 2, starts)
	assert.Equal(t, events.EventResult, got[len(got)-1].Type)
}

func TestSession_PermissionRoundTrip(t *testing.T) {
	resultCh := make(chan string, 1)

	engine := scriptedEngine(func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage]) {
		if _, ok := req.Prompt.Next(ctx); !ok {
			return
		}

		fut := req.CanUseTool("Bash", map[string]any{"command": "ls"}, nil)
		res := <-fut
		resultCh <- res.Behavior

		out.Push(events.EngineMessage{"type": "result", "subtype": "success"})
	})

	m := NewManager(engine, nil, testLogger(t))
	s, err := m.Create("run ls")
	require.NoError(t, err)

	// First event out must be the permission request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, ok := s.Events().Next(ctx)
	require.True(t, ok)
	require.Equal(t, events.EventPermissionRequest, e.Type)

	require.NoError(t, s.Gate().Resolve(e.ID, events.BehaviorAllow, nil))
	assert.Equal(t, events.BehaviorAllow, <-resultCh)

	rest := drainEvents(t, s)
	require.Len(t, rest, 2)
	assert.Equal(t, events.EventPermissionResolved, rest[0].Type)
	assert.Equal(t, events.EventResult, rest[1].Type)
}

func TestSession_Abort(t *testing.T) {
	var aborted atomic.Bool

	engine := func(ctx context.Context, req QueryRequest) (*EngineHandle, error) {
		out := channel.New[events.EngineMessage]()
		go func() {
			// Engine never completes on its own; it waits for cancellation.
			<-ctx.Done()
			out.Close()
		}()
		return &EngineHandle{
			Messages: out,
			Abort:    func() { aborted.Store(true) },
		}, nil
	}

	m := NewManager(engine, nil, testLogger(t))
	s, err := m.Create("hang")
	require.NoError(t, err)

	s.Abort()

	_, ok := s.Events().Next(context.Background())
	assert.False(t, ok, "output must be closed after abort")
	assert.True(t, aborted.Load(), "engine abort handle must be signalled")

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("driver did not exit after abort")
	}

	// Abort is idempotent.
	s.Abort()
}

func TestManager_GetAndDelete(t *testing.T) {
	engine := scriptedEngine(func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage]) {
		<-ctx.Done()
	})

	m := NewManager(engine, nil, testLogger(t))
	s, err := m.Create("hi")
	require.NoError(t, err)

	assert.Same(t, s, m.Get(s.ID))
	assert.Nil(t, m.Get("missing"))
	assert.Len(t, m.List(), 1)

	require.NoError(t, m.Delete(s.ID))
	assert.Nil(t, m.Get(s.ID))
	assert.Error(t, m.Delete(s.ID))
}

func TestManager_SessionIDsAreUnique(t *testing.T) {
	engine := scriptedEngine(func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage]) {})

	m := NewManager(engine, nil, testLogger(t))
	a, err := m.Create("a")
	require.NoError(t, err)
	b, err := m.Create("b")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
}
