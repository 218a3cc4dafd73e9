// Package translator reduces the engine's irregular, partially redundant
// message stream into a linear sequence of normalized agent events.
package translator

import (
	"encoding/json"
	"strings"

	"github.com/chatbridge/chatbridge/pkg/events"
)

// Translator is a stateful per-session reducer. It is driven from a single
// goroutine (the session driver) and needs no locking.
//
// The engine interleaves two partially overlapping encodings: incremental
// stream deltas and final aggregated blocks. The translator keeps the
// useful union of both: text, thinking and tool-input deltas as they
// arrive, plus the finalized structured tool input and tool results.
type Translator struct {
	toolNames []toolEntry // every tool introduced this session, in order
	// hadStreamThinking tracks whether a thinking_delta was emitted since
	// the most recent message_start. When set, the aggregated thinking
	// block on the final assistant message is redundant and suppressed.
	hadStreamThinking bool
}

type toolEntry struct {
	id   string
	name string
}

// New creates a translator with empty state.
func New() *Translator {
	return &Translator{}
}

// Translate converts one engine message into zero or more agent events.
// Unknown message types and missing optional fields silently produce no
// events.
func (t *Translator) Translate(msg events.EngineMessage) []events.AgentEvent {
	switch msg.Type() {
	case "stream_event":
		return t.translateStreamEvent(msg)
	case "assistant":
		return t.translateAssistant(msg)
	case "user":
		return t.translateUser(msg)
	case "system":
		return t.translateSystem(msg)
	case "result":
		return t.translateResult(msg)
	default:
		return nil
	}
}

func (t *Translator) translateStreamEvent(msg events.EngineMessage) []events.AgentEvent {
	inner := msg.Map("event")
	if inner == nil {
		return nil
	}

	switch inner.Type() {
	case "message_start":
		t.hadStreamThinking = false
		return []events.AgentEvent{events.NewMessageStart(msg.Str("parent_tool_use_id"))}

	case "content_block_start":
		block := inner.Map("content_block")
		if block == nil {
			return nil
		}
		if bt := block.Type(); bt == "tool_use" || bt == "server_tool_use" {
			id, name := block.Str("id"), block.Str("name")
			t.recordTool(id, name)
			return []events.AgentEvent{events.NewToolStart(id, name)}
		}
		return nil

	case "content_block_delta":
		return t.translateDelta(inner.Map("delta"))
	}

	return nil
}

func (t *Translator) translateDelta(delta events.EngineMessage) []events.AgentEvent {
	if delta == nil {
		return nil
	}

	switch delta.Type() {
	case "text_delta":
		return []events.AgentEvent{events.NewTextDelta(delta.Str("text"))}

	case "thinking_delta":
		t.hadStreamThinking = true
		return []events.AgentEvent{events.NewThinkingDelta(delta.Str("thinking"))}

	case "input_json_delta":
		// Partial JSON deltas carry no tool id; attribute them to the
		// most recently introduced tool.
		if last := t.lastTool(); last != "" {
			return []events.AgentEvent{events.NewToolInputDelta(last, delta.Str("partial_json"))}
		}
	}

	return nil
}

func (t *Translator) translateAssistant(msg events.EngineMessage) []events.AgentEvent {
	var out []events.AgentEvent
	for _, raw := range contentBlocks(msg) {
		block, ok := asMessage(raw)
		if !ok {
			continue
		}

		switch block.Type() {
		case "thinking":
			// Redundant when thinking already streamed via deltas.
			if !t.hadStreamThinking {
				out = append(out, events.NewThinkingDelta(block.Str("thinking")))
			}
		case "tool_use", "server_tool_use":
			id, name := block.Str("id"), block.Str("name")
			t.recordTool(id, name)
			input := map[string]any(block.Map("input"))
			out = append(out, events.NewToolCall(id, name, input))
		}
		// Text blocks are covered by streaming deltas.
	}
	return out
}

func (t *Translator) translateUser(msg events.EngineMessage) []events.AgentEvent {
	var out []events.AgentEvent
	for _, raw := range contentBlocks(msg) {
		block, ok := asMessage(raw)
		if !ok || block.Type() != "tool_result" {
			continue
		}

		isError, _ := block["is_error"].(bool)
		out = append(out, events.NewToolResult(
			block.Str("tool_use_id"),
			extractToolResultText(block["content"]),
			isError,
		))
	}
	return out
}

func (t *Translator) translateSystem(msg events.EngineMessage) []events.AgentEvent {
	if msg.Str("subtype") != "init" {
		return nil
	}
	sessionID := msg.Str("session_id")
	if sessionID == "" {
		return nil
	}
	return []events.AgentEvent{events.NewSessionInit(sessionID)}
}

func (t *Translator) translateResult(msg events.EngineMessage) []events.AgentEvent {
	if msg.Str("subtype") == "success" {
		return []events.AgentEvent{events.NewResult(msg["result"])}
	}

	reason := msg.Str("subtype")
	if reason == "" {
		reason = "unknown_error"
	}
	return []events.AgentEvent{events.NewError(reason)}
}

func (t *Translator) recordTool(id, name string) {
	for i, entry := range t.toolNames {
		if entry.id == id {
			t.toolNames[i].name = name
			return
		}
	}
	t.toolNames = append(t.toolNames, toolEntry{id: id, name: name})
}

func (t *Translator) lastTool() string {
	if len(t.toolNames) == 0 {
		return ""
	}
	return t.toolNames[len(t.toolNames)-1].id
}

// contentBlocks returns the content array of an assistant or user message.
// The engine nests content under "message", but flat messages are accepted
// too.
func contentBlocks(msg events.EngineMessage) []any {
	if inner := msg.Map("message"); inner != nil {
		if blocks := inner.Slice("content"); blocks != nil {
			return blocks
		}
	}
	return msg.Slice("content")
}

func asMessage(raw any) (events.EngineMessage, bool) {
	if m, ok := raw.(map[string]any); ok {
		return events.EngineMessage(m), true
	}
	if m, ok := raw.(events.EngineMessage); ok {
		return m, true
	}
	return nil, false
}

// extractToolResultText flattens a tool_result block's content into a
// string: strings pass through, arrays concatenate the text of text-typed
// sub-blocks (falling back to JSON for arrays without any), anything else
// becomes the empty string.
func extractToolResultText(content any) string {
	switch c := content.(type) {
	case string:
		return c
	case []any:
		var sb strings.Builder
		found := false
		for _, raw := range c {
			block, ok := asMessage(raw)
			if !ok || block.Type() != "text" {
				continue
			}
			found = true
			sb.WriteString(block.Str("text"))
		}
		if !found {
			data, err := json.Marshal(c)
			if err != nil {
				return ""
			}
			return string(data)
		}
		return sb.String()
	default:
		return ""
	}
}
