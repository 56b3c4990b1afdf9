package provider

import (
	"errors"
	"io"
	"testing"

	"github.com/Cyclone1070/sysmate/internal/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errStream struct {
	err    error
	closed bool
}

func (e *errStream) Next() (*StreamChunk, error) { return nil, e.err }
func (e *errStream) Close() error {
	e.closed = true
	return nil
}

func TestCollect_StaticStream(t *testing.T) {
	stream := NewStaticStream(AssistantMessage("hello world"), "hello ", "world")

	var deltas []string
	msg, err := Collect(stream, func(d string) { deltas = append(deltas, d) })

	require.NoError(t, err)
	assert.Equal(t, []string{"hello ", "world"}, deltas)
	assert.Equal(t, "hello world", msg.Content)

	_, err = stream.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCollect_NoFinal(t *testing.T) {
	_, err := Collect(&errStream{err: io.EOF}, nil)
	assert.ErrorIs(t, err, ErrNoFinalMessage)
}

func TestCollect_PropagatesErrorAndCloses(t *testing.T) {
	boom := errors.New("connection reset")
	s := &errStream{err: boom}

	_, err := Collect(s, nil)

	assert.ErrorIs(t, err, boom)
	assert.True(t, s.closed)
}

func TestToolMessage(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "delete_file"}

	msg := ToolMessage(call, tool.Denied("user rejected"))

	assert.Equal(t, RoleTool, msg.Role)
	assert.Equal(t, "c1", msg.ToolCallID)
	assert.Equal(t, "delete_file", msg.ToolName)
	assert.Equal(t, tool.StatusDenied, msg.Status)
	assert.Equal(t, "Denied: user rejected", msg.Content)
}

func TestProviderError(t *testing.T) {
	underlying := errors.New("429 Too Many Requests")
	err := FromStatus("openai", 429, underlying)

	assert.ErrorIs(t, err, ErrRateLimit)
	assert.ErrorIs(t, err, underlying)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "openai: rate_limit")

	auth := FromStatus("anthropic", 401, nil)
	assert.ErrorIs(t, auth, ErrAuthentication)
	assert.False(t, IsRetryable(auth))

	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid())
	}
	assert.False(t, Kind("bedrock").Valid())
}
