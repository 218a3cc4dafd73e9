// Package bus provides the event bus used to mirror session events to
// external consumers.
package bus

import (
	"context"
	"fmt"
	"time"
)

// Event is the envelope published to the bus.
type Event struct {
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType, source string, data any) *Event {
	return &Event{
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventBus publishes events to interested subscribers.
type EventBus interface {
	Publish(ctx context.Context, subject string, event *Event) error
	Close()
	IsConnected() bool
}

// SessionEventSubject returns the subject carrying one session's agent
// events.
func SessionEventSubject(sessionID string) string {
	return fmt.Sprintf("chatbridge.session.%s.events", sessionID)
}

// Noop is an EventBus that drops everything. Used when no bus is
// configured.
type Noop struct{}

// NewNoop creates a no-op event bus.
func NewNoop() *Noop { return &Noop{} }

func (*Noop) Publish(context.Context, string, *Event) error { return nil }
func (*Noop) Close()                                        {}
func (*Noop) IsConnected() bool                             { return false }
