package events

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeEvent_WireFormat(t *testing.T) {
	frame, err := EncodeEvent(NewTextDelta("hi"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(frame, "data: "))
	assert.True(t, strings.HasSuffix(frame, "\n\n"))
	assert.Equal(t, "data: {\"type\":\"text_delta\",\"text\":\"hi\"}\n\n", frame)
}

func TestEncodeDone(t *testing.T) {
	assert.Equal(t, "data: [DONE]\n\n", EncodeDone())
}

func TestDecodeEvent_RoundTrip(t *testing.T) {
	cases := []AgentEvent{
		NewSessionInit("sess-1"),
		NewMessageStart(""),
		NewMessageStart("parent-tc"),
		NewTextDelta("Hello "),
		NewThinkingDelta("hmm"),
		NewToolStart("tc-1", "Read"),
		NewToolInputDelta("tc-1", `{"file_path":`),
		NewToolCall("tc-1", "Read", map[string]any{"file_path": "/tmp/x"}),
		NewToolCall("tc-0", "Glob", nil),
		NewToolCall("tc-0", "Glob", map[string]any{}),
		NewToolResult("tc-1", "const x = 42;", false),
		NewToolResult("tc-2", "boom", true),
		NewPermissionRequest("perm_1", "Bash", map[string]any{"command": "ls"}, "tc-3", "dangerous"),
		NewPermissionRequest("perm_2", "Bash", map[string]any{"command": "ls"}, "", ""),
		NewPermissionRequest("perm_3", "ListFiles", nil, "", ""),
		NewPermissionResolved("perm_1", BehaviorAllow),
		NewUserQuestion("question_1", "Proceed?", []QuestionOption{{Label: "Yes", Description: "go"}, {Label: "No"}}),
		NewUserQuestionAnswered("question_1", "Yes"),
		NewResult(nil),
		NewError("engine blew up"),
	}

	for _, e := range cases {
		t.Run(string(e.Type), func(t *testing.T) {
			frame, err := EncodeEvent(e)
			require.NoError(t, err)

			decoded, err := DecodeEvent(strings.TrimSpace(frame))
			require.NoError(t, err)
			require.NotNil(t, decoded)
			assert.Equal(t, e, *decoded)
		})
	}
}

func TestDecodeEvent_Done(t *testing.T) {
	decoded, err := DecodeEvent("data: [DONE]")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

func TestDecodeEvent_MissingPrefix(t *testing.T) {
	_, err := DecodeEvent(`{"type":"text_delta"}`)
	assert.Error(t, err)
}

func TestDecodeEvent_MalformedJSON(t *testing.T) {
	_, err := DecodeEvent("data: {not json")
	assert.Error(t, err)
}

func TestNewUserMessage_Shape(t *testing.T) {
	msg := NewUserMessage("hello")

	assert.Equal(t, "user", msg.Type())
	inner := msg.Map("message")
	require.NotNil(t, inner)
	assert.Equal(t, "user", inner.Str("role"))
	assert.Equal(t, "hello", inner.Str("content"))
	assert.Equal(t, "", msg.Str("session_id"))
	assert.Contains(t, msg, "parent_tool_use_id")
}
