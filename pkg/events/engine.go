package events

import "encoding/json"

// EngineMessage is one message emitted by (or fed into) the upstream agent
// engine. The engine's output is heterogeneous, so messages are kept as
// opaque key-value maps with a "type" discriminator and read through
// defensive accessors; unknown shapes simply yield zero values.
type EngineMessage map[string]any

// ParseEngineMessage parses a JSON-encoded engine message.
func ParseEngineMessage(data []byte) (EngineMessage, error) {
	var msg EngineMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Type returns the message's type discriminator, or "" when absent.
func (m EngineMessage) Type() string {
	return m.Str("type")
}

// Str returns the string value at key, or "" when absent or not a string.
func (m EngineMessage) Str(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Map returns the nested map at key, or nil when absent or not a map.
func (m EngineMessage) Map(key string) EngineMessage {
	if v, ok := m[key].(map[string]any); ok {
		return EngineMessage(v)
	}
	if v, ok := m[key].(EngineMessage); ok {
		return v
	}
	return nil
}

// Slice returns the array value at key, or nil when absent or not an array.
func (m EngineMessage) Slice(key string) []any {
	if v, ok := m[key].([]any); ok {
		return v
	}
	return nil
}

// NewUserMessage builds the engine-shaped user message carrying one user
// turn. The session_id field is assigned by the engine; the bridge leaves
// it empty.
func NewUserMessage(text string) EngineMessage {
	return EngineMessage{
		"type": "user",
		"message": map[string]any{
			"role":    "user",
			"content": text,
		},
		"parent_tool_use_id": nil,
		"session_id":         "",
	}
}
