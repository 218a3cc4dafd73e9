package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbridge/chatbridge/internal/bridge/channel"
	"github.com/chatbridge/chatbridge/internal/events/bus"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// recordingBus captures everything published to it.
type recordingBus struct {
	mu        sync.Mutex
	published []publishedEvent
}

type publishedEvent struct {
	subject string
	event   *bus.Event
}

func (b *recordingBus) Publish(_ context.Context, subject string, event *bus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedEvent{subject: subject, event: event})
	return nil
}

func (b *recordingBus) Close()            {}
func (b *recordingBus) IsConnected() bool { return true }

func (b *recordingBus) all() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedEvent(nil), b.published...)
}

func TestSession_MirrorsEventsToBus(t *testing.T) {
	engine := scriptedEngine(func(ctx context.Context, req QueryRequest, out *channel.Queue[events.EngineMessage]) {
		if _, ok := req.Prompt.Next(ctx); !ok {
			return
		}
		out.Push(events.EngineMessage{"type": "system", "subtype": "init", "session_id": "int-1"})
		out.Push(events.EngineMessage{"type": "result", "subtype": "success"})
	})

	rec := &recordingBus{}
	m := NewManager(engine, rec, testLogger(t))
	s, err := m.Create("hi")
	require.NoError(t, err)

	drainEvents(t, s)

	published := rec.all()
	require.Len(t, published, 2)

	wantSubject := bus.SessionEventSubject(s.ID)
	for _, p := range published {
		assert.Equal(t, wantSubject, p.subject)
		assert.Equal(t, "chatbridge", p.event.Source)
	}
	assert.Equal(t, string(events.EventSessionInit), published[0].event.Type)
	assert.Equal(t, string(events.EventResult), published[1].event.Type)
}
