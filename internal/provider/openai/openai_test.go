package openai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/pagination"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

type testDecoder struct {
	data []string
	i    int
}

func (d *testDecoder) Event() ssestream.Event {
	return ssestream.Event{Data: []byte(d.data[d.i-1])}
}

func (d *testDecoder) Next() bool {
	if d.i >= len(d.data) {
		return false
	}
	d.i++
	return true
}

func (d *testDecoder) Close() error { return nil }
func (d *testDecoder) Err() error   { return nil }

type mockChat struct {
	lastParams sdk.ChatCompletionNewParams
	chunks     []string
	err        error
}

func (m *mockChat) NewStreaming(_ context.Context, body sdk.ChatCompletionNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk] {
	m.lastParams = body
	return ssestream.NewStream[sdk.ChatCompletionChunk](&testDecoder{data: m.chunks}, m.err)
}

type mockModels struct {
	err error
}

func (m *mockModels) List(context.Context, ...option.RequestOption) (*pagination.Page[sdk.Model], error) {
	return &pagination.Page[sdk.Model]{}, m.err
}

const (
	chunkText1 = `{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","content":"Here "}}]}`
	chunkText2 = `{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"content":"you go"},"finish_reason":"stop"}]}`
	chunkTool1 = `{"id":"c2","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"list_files","arguments":"{\"path\""}}]}}]}`
	chunkTool2 = `{"id":"c2","object":"chat.completion.chunk","created":1,"model":"gpt-4o","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":":\"/tmp\"}"}}]},"finish_reason":"tool_calls"}]}`
)

func TestStream_Text(t *testing.T) {
	chat := &mockChat{chunks: []string{chunkText1, chunkText2}}
	p, err := New(chat, nil, Options{Model: "gpt-4o"})
	require.NoError(t, err)

	s, err := p.Stream(context.Background(), &provider.Request{Messages: []provider.Message{provider.UserMessage("hi")}})
	require.NoError(t, err)

	var deltas []string
	final, err := provider.Collect(s, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Here ", "you go"}, deltas)
	assert.Equal(t, "Here you go", final.Content)
	assert.Empty(t, final.ToolCalls)
}

func TestStream_ToolCall(t *testing.T) {
	chat := &mockChat{chunks: []string{chunkTool1, chunkTool2}}
	p, err := New(chat, nil, Options{Model: "gpt-4o"})
	require.NoError(t, err)

	s, err := p.Stream(context.Background(), &provider.Request{Messages: []provider.Message{provider.UserMessage("list files in /tmp")}})
	require.NoError(t, err)

	final, err := provider.Collect(s, nil)
	require.NoError(t, err)

	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "call_1", final.ToolCalls[0].ID)
	assert.Equal(t, "list_files", final.ToolCalls[0].Name)
	assert.JSONEq(t, `{"path":"/tmp"}`, string(final.ToolCalls[0].Arguments))
}

func TestStream_BuildsParams(t *testing.T) {
	chat := &mockChat{}
	p, err := New(chat, nil, Options{Model: "llama3.1", MaxTokens: 256})
	require.NoError(t, err)

	_, err = p.Stream(context.Background(), &provider.Request{
		System: "sys",
		Messages: []provider.Message{
			provider.UserMessage("go"),
			{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{{ID: "a", Name: "system_info"}}},
			provider.ToolMessage(provider.ToolCall{ID: "a", Name: "system_info"}, tool.OK("linux")),
		},
		Tools: []tool.Declaration{{Name: "system_info", Description: "Describe the host"}},
	})
	require.NoError(t, err)

	params := chat.lastParams
	assert.Equal(t, "llama3.1", string(params.Model))
	require.Len(t, params.Messages, 4)
	require.NotNil(t, params.Messages[2].OfAssistant)
	require.Len(t, params.Messages[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "{}", params.Messages[2].OfAssistant.ToolCalls[0].Function.Arguments)
	require.NotNil(t, params.Messages[3].OfTool)
	assert.Equal(t, "a", params.Messages[3].OfTool.ToolCallID)

	require.Len(t, params.Tools, 1)
	assert.Equal(t, "system_info", params.Tools[0].Function.Name)
	raw, err := json.Marshal(params.Tools[0].Function.Parameters)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{}}`, string(raw))
}

func TestStream_ErrorIsMapped(t *testing.T) {
	chat := &mockChat{err: errors.New("dial tcp: connection refused")}
	p, err := New(chat, nil, Options{Name: "local", Model: "llama3.1"})
	require.NoError(t, err)

	_, err = p.Stream(context.Background(), &provider.Request{Messages: []provider.Message{provider.UserMessage("hi")}})

	assert.ErrorIs(t, err, provider.ErrNetwork)
	assert.Contains(t, err.Error(), "local")
}

func TestHealth(t *testing.T) {
	p, err := New(&mockChat{}, &mockModels{}, Options{Model: "m"})
	require.NoError(t, err)
	assert.NoError(t, p.Health(context.Background()))

	p, err = New(&mockChat{}, &mockModels{err: errors.New("refused")}, Options{Model: "m"})
	require.NoError(t, err)
	assert.Error(t, p.Health(context.Background()))
}

func TestNewOllama_DefaultsName(t *testing.T) {
	p, err := NewOllama("", Options{Model: "llama3.1"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.name)
	assert.Equal(t, "llama3.1", p.Model())
}
