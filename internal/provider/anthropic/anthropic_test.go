package anthropic

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// testDecoder feeds a fixed sequence of events to the ssestream.Stream.
type testDecoder struct {
	events []ssestream.Event
	i      int
}

func (d *testDecoder) Event() ssestream.Event { return d.events[d.i-1] }

func (d *testDecoder) Next() bool {
	if d.i >= len(d.events) {
		return false
	}
	d.i++
	return true
}

func (d *testDecoder) Close() error { return nil }
func (d *testDecoder) Err() error   { return nil }

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	events     []ssestream.Event
}

func (s *stubMessagesClient) NewStreaming(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	s.lastParams = body
	return ssestream.NewStream[sdk.MessageStreamEventUnion](&testDecoder{events: s.events}, nil)
}

func event(typ, data string) ssestream.Event {
	return ssestream.Event{Type: typ, Data: []byte(data)}
}

func TestStream_TextAndToolCall(t *testing.T) {
	stub := &stubMessagesClient{events: []ssestream.Event{
		event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Listing "}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"now"}}`),
		event("content_block_stop", `{"type":"content_block_stop","index":0}`),
		event("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"list_files","input":{}}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"path\":"}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"/tmp\"}"}}`),
		event("content_block_stop", `{"type":"content_block_stop","index":1}`),
		event("message_stop", `{"type":"message_stop"}`),
	}}
	p, err := New(stub, Options{Model: "claude-sonnet-4-5"})
	require.NoError(t, err)

	s, err := p.Stream(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.UserMessage("list files in /tmp")},
	})
	require.NoError(t, err)

	var deltas []string
	final, err := provider.Collect(s, func(d string) { deltas = append(deltas, d) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Listing ", "now"}, deltas)
	assert.Equal(t, "Listing now", final.Content)
	require.Len(t, final.ToolCalls, 1)
	assert.Equal(t, "toolu_1", final.ToolCalls[0].ID)
	assert.Equal(t, "list_files", final.ToolCalls[0].Name)
	assert.JSONEq(t, `{"path":"/tmp"}`, string(final.ToolCalls[0].Arguments))
}

func TestStream_BuildsParams(t *testing.T) {
	stub := &stubMessagesClient{}
	p, err := New(stub, Options{Model: "claude-sonnet-4-5", MaxTokens: 512})
	require.NoError(t, err)

	history := []provider.Message{
		provider.UserMessage("delete /tmp/x"),
		{Role: provider.RoleAssistant, ToolCalls: []provider.ToolCall{
			{ID: "a", Name: "delete_file", Arguments: json.RawMessage(`{"path":"/tmp/x"}`)},
			{ID: "b", Name: "list_files"},
		}},
		provider.ToolMessage(provider.ToolCall{ID: "a", Name: "delete_file"}, tool.Denied("rejected")),
		provider.ToolMessage(provider.ToolCall{ID: "b", Name: "list_files"}, tool.OK("x")),
		provider.SystemMessage("turn cancelled by user"),
	}
	_, err = p.Stream(context.Background(), &provider.Request{
		System:   "be careful",
		Messages: history,
		Tools: []tool.Declaration{{
			Name:        "delete_file",
			Description: "Delete a file",
			Parameters:  tool.Object(map[string]*tool.Schema{"path": {Type: tool.TypeString}}, "path"),
		}},
	})
	require.NoError(t, err)

	params := stub.lastParams
	assert.Equal(t, int64(512), params.MaxTokens)
	assert.Equal(t, sdk.Model("claude-sonnet-4-5"), params.Model)
	// user, assistant, merged tool results
	require.Len(t, params.Messages, 3)
	assert.Len(t, params.Messages[2].Content, 2)
	require.Len(t, params.System, 2)
	assert.Equal(t, "be careful", params.System[0].Text)
	assert.Equal(t, "turn cancelled by user", params.System[1].Text)
	require.Len(t, params.Tools, 1)
	require.NotNil(t, params.Tools[0].OfTool)
	assert.Equal(t, "delete_file", params.Tools[0].OfTool.Name)
}

func TestStream_RequiresConversation(t *testing.T) {
	p, err := New(&stubMessagesClient{}, Options{Model: "m"})
	require.NoError(t, err)

	_, err = p.Stream(context.Background(), &provider.Request{
		Messages: []provider.Message{provider.SystemMessage("only a marker")},
	})

	assert.ErrorIs(t, err, provider.ErrInvalidRequest)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, Options{Model: "m"})
	assert.Error(t, err)

	_, err = New(&stubMessagesClient{}, Options{})
	assert.Error(t, err)

	_, err = NewFromAPIKey("", Options{Model: "m"})
	assert.ErrorIs(t, err, provider.ErrMissingAPIKey)
}
