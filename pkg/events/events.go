// Package events defines the normalized event protocol emitted by the
// bridge and its SSE wire codec. Every heterogeneous engine message is
// reduced to a flat AgentEvent with a type discriminator before it reaches
// a consumer.
package events

// EventType discriminates AgentEvent variants.
type EventType string

const (
	EventSessionInit          EventType = "session_init"
	EventMessageStart         EventType = "message_start"
	EventTextDelta            EventType = "text_delta"
	EventThinkingDelta        EventType = "thinking_delta"
	EventToolStart            EventType = "tool_start"
	EventToolInputDelta       EventType = "tool_input_delta"
	EventToolCall             EventType = "tool_call"
	EventToolResult           EventType = "tool_result"
	EventPermissionRequest    EventType = "permission_request"
	EventPermissionResolved   EventType = "permission_resolved"
	EventUserQuestion         EventType = "user_question"
	EventUserQuestionAnswered EventType = "user_question_answered"
	EventResult               EventType = "result"
	EventError                EventType = "error"
)

// Permission behaviors carried by permission_resolved events.
const (
	BehaviorAllow = "allow"
	BehaviorDeny  = "deny"
)

// RoleAssistant is the only role the bridge emits on message_start.
const RoleAssistant = "assistant"

// QuestionOption is one selectable answer offered by a user_question event.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// AgentEvent is a single normalized event. The set of populated fields
// depends on Type; all optional fields are omitted from the wire encoding
// when empty.
type AgentEvent struct {
	Type EventType `json:"type"`

	// session_init
	SessionID string `json:"sessionId,omitempty"`

	// message_start
	Role            string `json:"role,omitempty"`
	ParentToolUseID string `json:"parentToolUseId,omitempty"`

	// text_delta, thinking_delta, tool_input_delta
	Text string `json:"text,omitempty"`

	// tool_start, tool_input_delta, tool_call, tool_result
	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Input      map[string]any `json:"input,omitempty"`
	ToolResult any            `json:"result,omitempty"`
	IsError    bool           `json:"isError,omitempty"`

	// permission_request, permission_resolved, user_question, user_question_answered
	ID        string           `json:"id,omitempty"`
	ToolUseID string           `json:"toolUseId,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Behavior  string           `json:"behavior,omitempty"`
	Question  string           `json:"question,omitempty"`
	Options   []QuestionOption `json:"options,omitempty"`
	Answer    string           `json:"answer,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// NewSessionInit creates a session_init event.
func NewSessionInit(sessionID string) AgentEvent {
	return AgentEvent{Type: EventSessionInit, SessionID: sessionID}
}

// NewMessageStart creates a message_start event for an assistant message.
func NewMessageStart(parentToolUseID string) AgentEvent {
	return AgentEvent{Type: EventMessageStart, Role: RoleAssistant, ParentToolUseID: parentToolUseID}
}

// NewTextDelta creates a text_delta event.
func NewTextDelta(text string) AgentEvent {
	return AgentEvent{Type: EventTextDelta, Text: text}
}

// NewThinkingDelta creates a thinking_delta event.
func NewThinkingDelta(text string) AgentEvent {
	return AgentEvent{Type: EventThinkingDelta, Text: text}
}

// NewToolStart creates a tool_start event.
func NewToolStart(toolCallID, toolName string) AgentEvent {
	return AgentEvent{Type: EventToolStart, ToolCallID: toolCallID, ToolName: toolName}
}

// NewToolInputDelta creates a tool_input_delta event carrying a partial JSON
// fragment of the tool input.
func NewToolInputDelta(toolCallID, text string) AgentEvent {
	return AgentEvent{Type: EventToolInputDelta, ToolCallID: toolCallID, Text: text}
}

// NewToolCall creates a tool_call event with the finalized decoded input.
func NewToolCall(toolCallID, toolName string, input map[string]any) AgentEvent {
	if input == nil {
		input = map[string]any{}
	}
	return AgentEvent{Type: EventToolCall, ToolCallID: toolCallID, ToolName: toolName, Input: input}
}

// NewToolResult creates a tool_result event.
func NewToolResult(toolCallID string, result any, isError bool) AgentEvent {
	return AgentEvent{Type: EventToolResult, ToolCallID: toolCallID, ToolResult: result, IsError: isError}
}

// NewPermissionRequest creates a permission_request event. The input map
// is never nil; toolUseID and reason are optional context and omitted from
// the wire encoding when empty.
func NewPermissionRequest(id, toolName string, input map[string]any, toolUseID, reason string) AgentEvent {
	if input == nil {
		input = map[string]any{}
	}
	return AgentEvent{
		Type:      EventPermissionRequest,
		ID:        id,
		ToolName:  toolName,
		Input:     input,
		ToolUseID: toolUseID,
		Reason:    reason,
	}
}

// NewPermissionResolved creates a permission_resolved event.
func NewPermissionResolved(id, behavior string) AgentEvent {
	return AgentEvent{Type: EventPermissionResolved, ID: id, Behavior: behavior}
}

// NewUserQuestion creates a user_question event.
func NewUserQuestion(id, question string, options []QuestionOption) AgentEvent {
	return AgentEvent{Type: EventUserQuestion, ID: id, Question: question, Options: options}
}

// NewUserQuestionAnswered creates a user_question_answered event.
func NewUserQuestionAnswered(id, answer string) AgentEvent {
	return AgentEvent{Type: EventUserQuestionAnswered, ID: id, Answer: answer}
}

// NewResult creates a terminal result event.
func NewResult(result any) AgentEvent {
	return AgentEvent{Type: EventResult, ToolResult: result}
}

// NewError creates a terminal error event.
func NewError(message string) AgentEvent {
	return AgentEvent{Type: EventError, Message: message}
}
