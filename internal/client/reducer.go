package client

import "github.com/chatbridge/chatbridge/pkg/events"

// Apply folds one event into the state. Unknown event types and events
// that reference missing records are ignored rather than failing; the
// stream may outrun or lag the state the client has seen.
func Apply(s *AgentState, e events.AgentEvent) {
	switch e.Type {
	case events.EventSessionInit:
		*s = *NewAgentState()
		s.SessionID = e.SessionID
		s.IsRunning = true

	case events.EventMessageStart:
		role := e.Role
		if role == "" {
			role = events.RoleAssistant
		}
		s.Messages = append(s.Messages, &AgentMessage{
			Role:            role,
			ParentToolUseID: e.ParentToolUseID,
		})

	case events.EventTextDelta:
		if m := s.latestMessage(); m != nil {
			m.CurrentText += e.Text
		}

	case events.EventThinkingDelta:
		if m := s.latestMessage(); m != nil {
			m.CurrentThinking += e.Text
		}

	case events.EventToolStart:
		if m := s.latestMessage(); m != nil {
			m.ToolCalls = append(m.ToolCalls, &ToolCallInfo{
				ToolCallID: e.ToolCallID,
				ToolName:   e.ToolName,
			})
		}

	case events.EventToolInputDelta:
		// Only tools declared on the current message accumulate input.
		if m := s.latestMessage(); m != nil {
			if tc := m.findToolCall(e.ToolCallID); tc != nil {
				tc.InputText += e.Text
			}
		}

	case events.EventToolCall:
		if m := s.latestMessage(); m != nil {
			if tc := m.findToolCall(e.ToolCallID); tc != nil {
				tc.Input = e.Input
				if e.ToolName != "" {
					tc.ToolName = e.ToolName
				}
			}
		}

	case events.EventToolResult:
		// A result may land after the next assistant turn has started, so
		// search newest-first for the message that declared the call.
		for i := len(s.Messages) - 1; i >= 0; i-- {
			if tc := s.Messages[i].findToolCall(e.ToolCallID); tc != nil {
				tc.Result = e.ToolResult
				tc.IsError = e.IsError
				break
			}
		}

	case events.EventPermissionRequest:
		s.PendingPermissions[e.ID] = PendingPermission{
			ID:        e.ID,
			ToolName:  e.ToolName,
			Input:     e.Input,
			ToolUseID: e.ToolUseID,
			Reason:    e.Reason,
		}

	case events.EventPermissionResolved:
		delete(s.PendingPermissions, e.ID)

	case events.EventUserQuestion:
		s.PendingQuestions[e.ID] = PendingQuestion{
			ID:       e.ID,
			Question: e.Question,
			Options:  e.Options,
		}

	case events.EventUserQuestionAnswered:
		delete(s.PendingQuestions, e.ID)

	case events.EventResult:
		s.IsRunning = false
		s.Result = e.ToolResult

	case events.EventError:
		s.IsRunning = false
		s.Error = e.Message
	}
}
