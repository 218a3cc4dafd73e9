// Package session owns per-conversation state: one engine invocation, its
// input and output channels, a stream translator and a permission gate.
package session

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/bridge/channel"
	"github.com/chatbridge/chatbridge/internal/bridge/gate"
	"github.com/chatbridge/chatbridge/internal/bridge/translator"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/internal/events/bus"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// Session multiplexes one long-running engine invocation: user turns flow
// in through the input channel, normalized events flow out through the
// output channel, and the gate carries out-of-band approvals.
type Session struct {
	ID string

	input    *channel.Queue[events.EngineMessage]
	output   *channel.Queue[events.AgentEvent]
	trans    *translator.Translator
	gate     *gate.Gate
	handle   *EngineHandle
	eventBus bus.EventBus
	logger   *logger.Logger

	cancel  context.CancelFunc
	aborted atomic.Bool
	done    chan struct{}
}

// newSession wires the channels, translator and gate, starts the engine
// invocation with the initial prompt, and spawns the driver goroutine.
func newSession(id string, queryFn QueryFunc, initialPrompt string, eventBus bus.EventBus, log *logger.Logger) (*Session, error) {
	s := &Session{
		ID:       id,
		input:    channel.New[events.EngineMessage](),
		output:   channel.New[events.AgentEvent](),
		trans:    translator.New(),
		eventBus: eventBus,
		logger:   log.WithSessionID(id),
		done:     make(chan struct{}),
	}
	s.gate = gate.New(s.publish, s.logger)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	handle, err := queryFn(ctx, QueryRequest{
		Prompt:     s.input,
		CanUseTool: s.gate.Request,
	})
	if err != nil {
		cancel()
		s.input.Close()
		s.output.Close()
		return nil, fmt.Errorf("engine invocation failed: %w", err)
	}
	s.handle = handle

	s.input.Push(events.NewUserMessage(initialPrompt))

	go s.run(ctx)
	return s, nil
}

// run is the driver: it drains the engine's output, translates each
// message, and pushes the resulting events contiguously onto the output
// channel. On exit (completion, abort, or panic) the output channel is
// closed so the SSE responder sees end-of-stream.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.output.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session driver panicked", zap.Any("panic", r))
			s.publish(events.NewError(fmt.Sprintf("%v", r)))
		}
	}()

	s.logger.Debug("session driver started")

	for {
		msg, ok := s.handle.Messages.Next(ctx)
		if !ok {
			s.logger.Debug("engine stream ended")
			return
		}
		if s.aborted.Load() {
			return
		}

		for _, e := range s.trans.Translate(msg) {
			s.publish(e)
		}
	}
}

// publish pushes an event onto the output channel and mirrors it to the
// event bus when one is configured.
func (s *Session) publish(e events.AgentEvent) {
	s.output.Push(e)

	if s.eventBus == nil {
		return
	}
	subject := bus.SessionEventSubject(s.ID)
	event := bus.NewEvent(string(e.Type), "chatbridge", e)
	if err := s.eventBus.Publish(context.Background(), subject, event); err != nil {
		s.logger.Warn("failed to mirror event to bus",
			zap.String("subject", subject),
			zap.Error(err))
	}
}

// Events returns the session's output channel.
func (s *Session) Events() *channel.Queue[events.AgentEvent] {
	return s.output
}

// Gate returns the session's permission gate.
func (s *Session) Gate() *gate.Gate {
	return s.gate
}

// PushMessage feeds a follow-up user turn to the engine.
func (s *Session) PushMessage(text string) {
	s.input.Push(events.NewUserMessage(text))
}

// Interrupt asks the engine to stop the current turn without tearing the
// session down.
func (s *Session) Interrupt() {
	if s.handle != nil && s.handle.Interrupt != nil {
		s.handle.Interrupt()
	}
}

// Abort terminates the session: the driver stops, both channels close, and
// the engine's abort handle is signalled. Pending permissions and
// questions never resolve; their holder is torn down with the engine.
func (s *Session) Abort() {
	if !s.aborted.CompareAndSwap(false, true) {
		return
	}

	s.logger.Info("aborting session")

	s.cancel()
	s.input.Close()
	s.output.Close()
	if s.handle != nil && s.handle.Abort != nil {
		s.handle.Abort()
	}
}

// Done is closed when the driver goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
