package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatbridge/chatbridge/internal/bridge/channel"
	"github.com/chatbridge/chatbridge/internal/bridge/session"
	"github.com/chatbridge/chatbridge/internal/common/logger"
	"github.com/chatbridge/chatbridge/pkg/events"
)

func TestEcho_AnswersEachTurn(t *testing.T) {
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prompt := channel.New[events.EngineMessage]()
	handle, err := Echo(log)(ctx, session.QueryRequest{Prompt: prompt})
	require.NoError(t, err)

	init, ok := handle.Messages.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, "system", init.Type())
	assert.NotEmpty(t, init.Str("session_id"))

	prompt.Push(events.NewUserMessage("hello"))

	var turn []events.EngineMessage
	for len(turn) < 3 {
		msg, ok := handle.Messages.Next(ctx)
		require.True(t, ok)
		turn = append(turn, msg)
	}
	assert.Equal(t, "stream_event", turn[0].Type())
	assert.Equal(t, "You said: hello",
		turn[1].Map("event").Map("delta").Str("text"))
	assert.Equal(t, "result", turn[2].Type())

	prompt.Close()
	_, ok = handle.Messages.Next(ctx)
	assert.False(t, ok)
}
