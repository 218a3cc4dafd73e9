package events

import (
	"encoding/json"
	"fmt"
	"strings"
)

// doneSentinel is the literal payload terminating an SSE stream.
const doneSentinel = "[DONE]"

// dataPrefix is the SSE field prefix carrying each event payload.
const dataPrefix = "data: "

// EncodeEvent encodes an event as a single SSE frame:
//
//	data: {json}\n
//	\n
func EncodeEvent(e AgentEvent) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return dataPrefix + string(data) + "\n\n", nil
}

// EncodeDone returns the stream terminator frame.
func EncodeDone() string {
	return dataPrefix + doneSentinel + "\n\n"
}

// DecodeEvent parses a single trimmed SSE line back into an event. It
// returns (nil, nil) when the payload is the [DONE] terminator, and an
// error when the line lacks the data prefix or carries malformed JSON.
func DecodeEvent(line string) (*AgentEvent, error) {
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, fmt.Errorf("malformed SSE line: missing %q prefix", strings.TrimSpace(dataPrefix))
	}

	payload := strings.TrimPrefix(line, dataPrefix)
	if strings.TrimSpace(payload) == doneSentinel {
		return nil, nil
	}

	var e AgentEvent
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	// omitempty drops an empty input map on encode; tool_call and
	// permission_request always carry one.
	if e.Input == nil && (e.Type == EventToolCall || e.Type == EventPermissionRequest) {
		e.Input = map[string]any{}
	}
	return &e, nil
}
