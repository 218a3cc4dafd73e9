package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/pkg/events"
)

type eventSink struct {
	events []events.AgentEvent
}

func (s *eventSink) emit(e events.AgentEvent) {
	s.events = append(s.events, e)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	return log
}

func TestGate_AllowWithOriginalInput(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	input := map[string]any{"command": "ls"}
	fut := g.Request("Bash", input, &RequestContext{ToolUseID: "tc-1", Reason: "listing"})

	require.Len(t, sink.events, 1)
	req := sink.events[0]
	assert.Equal(t, events.EventPermissionRequest, req.Type)
	assert.Equal(t, "Bash", req.ToolName)
	assert.Equal(t, "tc-1", req.ToolUseID)
	assert.Equal(t, "listing", req.Reason)

	require.NoError(t, g.Resolve(req.ID, events.BehaviorAllow, nil))

	result := <-fut
	assert.Equal(t, events.BehaviorAllow, result.Behavior)
	assert.Equal(t, input, result.UpdatedInput)

	require.Len(t, sink.events, 2)
	assert.Equal(t, events.NewPermissionResolved(req.ID, events.BehaviorAllow), sink.events[1])
}

func TestGate_AllowWithUpdatedInput(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	fut := g.Request("Bash", map[string]any{"command": "rm -rf /"}, nil)
	updated := map[string]any{"command": "rm -rf /tmp/scratch"}
	require.NoError(t, g.Resolve(sink.events[0].ID, events.BehaviorAllow, updated))

	result := <-fut
	assert.Equal(t, updated, result.UpdatedInput)
}

func TestGate_Deny(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	fut := g.Request("Bash", map[string]any{"command": "rm -rf /"}, nil)
	require.NoError(t, g.Resolve(sink.events[0].ID, events.BehaviorDeny, nil))

	result := <-fut
	assert.Equal(t, events.BehaviorDeny, result.Behavior)
	assert.Equal(t, "User denied", result.Message)
	assert.Nil(t, result.UpdatedInput)
}

func TestGate_ResolveUnknownID(t *testing.T) {
	g := New(func(events.AgentEvent) {}, testLogger(t))
	assert.Error(t, g.Resolve("perm_99", events.BehaviorAllow, nil))
}

func TestGate_ResolveRejectsUnknownBehavior(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	fut := g.Request("Bash", map[string]any{"command": "ls"}, nil)
	id := sink.events[0].ID

	assert.Error(t, g.Resolve(id, "banana", nil))

	// No permission_resolved was emitted and the entry is still pending.
	require.Len(t, sink.events, 1)
	perms, _ := g.PendingCount()
	assert.Equal(t, 1, perms)

	require.NoError(t, g.Resolve(id, events.BehaviorDeny, nil))
	assert.Equal(t, events.BehaviorDeny, (<-fut).Behavior)
}

func TestGate_ResolveTwice(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	g.Request("Read", map[string]any{"file_path": "/etc/passwd"}, nil)
	id := sink.events[0].ID

	require.NoError(t, g.Resolve(id, events.BehaviorAllow, nil))
	assert.Error(t, g.Resolve(id, events.BehaviorAllow, nil))
}

func TestGate_OmitsEmptyContext(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	g.Request("Read", map[string]any{"file_path": "/tmp/a"}, nil)

	req := sink.events[0]
	assert.Empty(t, req.ToolUseID)
	assert.Empty(t, req.Reason)
}

func TestGate_QuestionRoundTrip(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	opts := []events.QuestionOption{{Label: "Yes"}, {Label: "No", Description: "abort"}}
	fut := g.AskQuestion("Proceed with migration?", opts)

	require.Len(t, sink.events, 1)
	q := sink.events[0]
	assert.Equal(t, events.EventUserQuestion, q.Type)
	assert.Equal(t, "Proceed with migration?", q.Question)
	assert.Equal(t, opts, q.Options)

	require.NoError(t, g.AnswerQuestion(q.ID, "Yes"))
	assert.Equal(t, "Yes", <-fut)

	require.Len(t, sink.events, 2)
	assert.Equal(t, events.NewUserQuestionAnswered(q.ID, "Yes"), sink.events[1])
}

func TestGate_AnswerUnknownQuestion(t *testing.T) {
	g := New(func(events.AgentEvent) {}, testLogger(t))
	assert.Error(t, g.AnswerQuestion("question_42", "sure"))
}

func TestGate_ConcurrentPendingResolveInAnyOrder(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	first := g.Request("Bash", map[string]any{"command": "a"}, nil)
	second := g.Request("Bash", map[string]any{"command": "b"}, nil)
	firstID, secondID := sink.events[0].ID, sink.events[1].ID

	// Resolve out of order
	require.NoError(t, g.Resolve(secondID, events.BehaviorDeny, nil))
	require.NoError(t, g.Resolve(firstID, events.BehaviorAllow, nil))

	assert.Equal(t, events.BehaviorAllow, (<-first).Behavior)
	assert.Equal(t, events.BehaviorDeny, (<-second).Behavior)

	perms, questions := g.PendingCount()
	assert.Zero(t, perms)
	assert.Zero(t, questions)
}

func TestGate_IDsAreMonotonic(t *testing.T) {
	sink := &eventSink{}
	g := New(sink.emit, testLogger(t))

	g.Request("A", nil, nil)
	g.Request("B", nil, nil)
	g.AskQuestion("q", nil)

	assert.Equal(t, "perm_1", sink.events[0].ID)
	assert.Equal(t, "perm_2", sink.events[1].ID)
	assert.Equal(t, "question_1", sink.events[2].ID)
}
