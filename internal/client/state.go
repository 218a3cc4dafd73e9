// Package client is the consumer side of the bridge: it folds the
// normalized event stream into an accumulating conversation state and
// projects that state into the message shape a chat UI renders.
package client

import "github.com/chatbridge/chatbridge/pkg/events"

// ToolCallInfo tracks one tool invocation on a message. InputText
// accumulates the streamed partial JSON; Input holds the finalized decoded
// arguments once the engine flushes the aggregated block.
type ToolCallInfo struct {
	ToolCallID string
	ToolName   string
	InputText  string
	Input      map[string]any
	Result     any
	IsError    bool
}

// AgentMessage is one assistant turn. Tool calls are kept in declaration
// order.
type AgentMessage struct {
	Role            string
	ParentToolUseID string
	CurrentText     string
	CurrentThinking string
	ToolCalls       []*ToolCallInfo
}

func (m *AgentMessage) findToolCall(toolCallID string) *ToolCallInfo {
	for _, tc := range m.ToolCalls {
		if tc.ToolCallID == toolCallID {
			return tc
		}
	}
	return nil
}

// PendingPermission mirrors an unresolved permission_request event.
type PendingPermission struct {
	ID        string
	ToolName  string
	Input     map[string]any
	ToolUseID string
	Reason    string
}

// PendingQuestion mirrors an unresolved user_question event.
type PendingQuestion struct {
	ID       string
	Question string
	Options  []events.QuestionOption
}

// AgentState is the full reduced conversation state. A session_init event
// replaces it wholesale; every other event mutates it in place.
type AgentState struct {
	SessionID string
	IsRunning bool
	Messages  []*AgentMessage

	PendingPermissions map[string]PendingPermission
	PendingQuestions   map[string]PendingQuestion

	Result any
	Error  string
}

// NewAgentState returns an empty, not-running state.
func NewAgentState() *AgentState {
	return &AgentState{
		PendingPermissions: make(map[string]PendingPermission),
		PendingQuestions:   make(map[string]PendingQuestion),
	}
}

func (s *AgentState) latestMessage() *AgentMessage {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// Clone returns a deep copy, used to hand out stable snapshots while the
// runtime keeps folding events into the live state.
func (s *AgentState) Clone() *AgentState {
	c := &AgentState{
		SessionID:          s.SessionID,
		IsRunning:          s.IsRunning,
		Messages:           make([]*AgentMessage, len(s.Messages)),
		PendingPermissions: make(map[string]PendingPermission, len(s.PendingPermissions)),
		PendingQuestions:   make(map[string]PendingQuestion, len(s.PendingQuestions)),
		Result:             s.Result,
		Error:              s.Error,
	}
	for i, m := range s.Messages {
		mc := &AgentMessage{
			Role:            m.Role,
			ParentToolUseID: m.ParentToolUseID,
			CurrentText:     m.CurrentText,
			CurrentThinking: m.CurrentThinking,
			ToolCalls:       make([]*ToolCallInfo, len(m.ToolCalls)),
		}
		for j, tc := range m.ToolCalls {
			tcc := *tc
			mc.ToolCalls[j] = &tcc
		}
		c.Messages[i] = mc
	}
	for k, v := range s.PendingPermissions {
		c.PendingPermissions[k] = v
	}
	for k, v := range s.PendingQuestions {
		c.PendingQuestions[k] = v
	}
	return c
}
