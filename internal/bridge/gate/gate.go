// Package gate bridges the engine's synchronous tool-approval callbacks to
// asynchronous out-of-band responses. A request parks the engine on a
// one-shot channel until the matching resolve arrives over HTTP.
package gate

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/pkg/events"
)

// PermissionResult is the decision returned to the engine's tool-gate
// callback: allow with a possibly updated input, or deny with a message.
type PermissionResult struct {
	Behavior     string         `json:"behavior"`
	UpdatedInput map[string]any `json:"updatedInput,omitempty"`
	Message      string         `json:"message,omitempty"`
}

// RequestContext carries the optional context an engine supplies with a
// permission request.
type RequestContext struct {
	ToolUseID string
	Reason    string
}

type pendingPermission struct {
	result chan PermissionResult
	input  map[string]any
}

// Gate holds the pending approvals and questions of one session. Requests
// arrive from the engine's goroutine while resolutions arrive from HTTP
// handler goroutines, so the registries are mutex-protected.
type Gate struct {
	mu                 sync.Mutex
	emit               func(events.AgentEvent)
	logger             *logger.Logger
	permSeq            int
	questionSeq        int
	pendingPermissions map[string]*pendingPermission
	pendingQuestions   map[string]chan string
}

// New creates a gate that publishes its lifecycle events through emit.
func New(emit func(events.AgentEvent), log *logger.Logger) *Gate {
	return &Gate{
		emit:               emit,
		logger:             log,
		pendingPermissions: make(map[string]*pendingPermission),
		pendingQuestions:   make(map[string]chan string),
	}
}

// Request registers a pending permission and emits a permission_request
// event. The returned channel receives exactly one PermissionResult when
// the request is resolved; the engine's callback blocks on it.
func (g *Gate) Request(toolName string, input map[string]any, rctx *RequestContext) <-chan PermissionResult {
	g.mu.Lock()
	g.permSeq++
	id := fmt.Sprintf("perm_%d", g.permSeq)
	pending := &pendingPermission{
		result: make(chan PermissionResult, 1),
		input:  input,
	}
	g.pendingPermissions[id] = pending
	g.mu.Unlock()

	toolUseID, reason := "", ""
	if rctx != nil {
		toolUseID, reason = rctx.ToolUseID, rctx.Reason
	}

	g.logger.Info("permission requested",
		zap.String("permission_id", id),
		zap.String("tool_name", toolName))

	g.emit(events.NewPermissionRequest(id, toolName, input, toolUseID, reason))
	return pending.result
}

// Resolve completes a pending permission. An allow resolution hands the
// engine updatedInput when supplied, otherwise the original request input.
// A deny resolution carries a fixed denial message. A behavior other than
// allow or deny is rejected without touching the pending entry.
func (g *Gate) Resolve(id, behavior string, updatedInput map[string]any) error {
	if behavior != events.BehaviorAllow && behavior != events.BehaviorDeny {
		return fmt.Errorf("invalid behavior %q", behavior)
	}

	g.mu.Lock()
	pending, ok := g.pendingPermissions[id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("no pending permission with id %q", id)
	}
	delete(g.pendingPermissions, id)
	g.mu.Unlock()

	g.logger.Info("permission resolved",
		zap.String("permission_id", id),
		zap.String("behavior", behavior))

	g.emit(events.NewPermissionResolved(id, behavior))

	if behavior == events.BehaviorAllow {
		input := updatedInput
		if input == nil {
			input = pending.input
		}
		pending.result <- PermissionResult{Behavior: events.BehaviorAllow, UpdatedInput: input}
	} else {
		pending.result <- PermissionResult{Behavior: events.BehaviorDeny, Message: "User denied"}
	}
	return nil
}

// AskQuestion registers a pending question and emits a user_question event.
// The returned channel receives the answer string once.
func (g *Gate) AskQuestion(question string, options []events.QuestionOption) <-chan string {
	g.mu.Lock()
	g.questionSeq++
	id := fmt.Sprintf("question_%d", g.questionSeq)
	answer := make(chan string, 1)
	g.pendingQuestions[id] = answer
	g.mu.Unlock()

	g.logger.Info("question asked", zap.String("question_id", id))

	g.emit(events.NewUserQuestion(id, question, options))
	return answer
}

// AnswerQuestion completes a pending question with the user's answer.
func (g *Gate) AnswerQuestion(id, answer string) error {
	g.mu.Lock()
	pending, ok := g.pendingQuestions[id]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("no pending question with id %q", id)
	}
	delete(g.pendingQuestions, id)
	g.mu.Unlock()

	g.logger.Info("question answered", zap.String("question_id", id))

	g.emit(events.NewUserQuestionAnswered(id, answer))
	pending <- answer
	return nil
}

// PendingCount returns the number of outstanding permissions and questions.
func (g *Gate) PendingCount() (permissions, questions int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pendingPermissions), len(g.pendingQuestions)
}
