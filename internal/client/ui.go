package client

import "encoding/json"

// UI message part kinds.
const (
	PartText      = "text"
	PartReasoning = "reasoning"
	PartToolCall  = "tool-call"
)

// UI message statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
)

// UIPart is one renderable fragment of a UI message.
type UIPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	ToolCallID string         `json:"toolCallId,omitempty"`
	ToolName   string         `json:"toolName,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	ArgsText   string         `json:"argsText,omitempty"`
	Result     any            `json:"result,omitempty"`
	IsError    bool           `json:"isError,omitempty"`
}

// UIStatus marks whether a message is still streaming.
type UIStatus struct {
	Type string `json:"type"`
}

// UIMetadata carries adapter-specific fields the UI passes through.
type UIMetadata struct {
	Custom map[string]any `json:"custom"`
}

// UIMessage is the shape the chat component renders.
type UIMessage struct {
	Role     string      `json:"role"`
	Content  []UIPart    `json:"content"`
	Status   UIStatus    `json:"status"`
	Metadata *UIMetadata `json:"metadata,omitempty"`
}

// ToUIMessages projects the reduced state into an ordered message list.
// Messages with no renderable parts are dropped; the last surviving
// message is marked running while the session is.
func ToUIMessages(s *AgentState) []UIMessage {
	var out []UIMessage
	for _, m := range s.Messages {
		var parts []UIPart
		if m.CurrentThinking != "" {
			parts = append(parts, UIPart{Type: PartReasoning, Text: m.CurrentThinking})
		}
		if m.CurrentText != "" {
			parts = append(parts, UIPart{Type: PartText, Text: m.CurrentText})
		}
		for _, tc := range m.ToolCalls {
			parts = append(parts, toolCallPart(tc))
		}
		if len(parts) == 0 {
			continue
		}

		msg := UIMessage{
			Role:    m.Role,
			Content: parts,
			Status:  UIStatus{Type: StatusComplete},
		}
		if m.ParentToolUseID != "" {
			msg.Metadata = &UIMetadata{Custom: map[string]any{"parentToolUseId": m.ParentToolUseID}}
		}
		out = append(out, msg)
	}

	if s.IsRunning && len(out) > 0 {
		out[len(out)-1].Status = UIStatus{Type: StatusRunning}
	}
	return out
}

func toolCallPart(tc *ToolCallInfo) UIPart {
	p := UIPart{
		Type:       PartToolCall,
		ToolCallID: tc.ToolCallID,
		ToolName:   tc.ToolName,
		Args:       tc.Input,
		Result:     tc.Result,
		IsError:    tc.IsError,
	}
	if tc.Input != nil {
		if data, err := json.Marshal(tc.Input); err == nil {
			p.ArgsText = string(data)
		}
	} else {
		p.ArgsText = tc.InputText
	}
	return p
}
