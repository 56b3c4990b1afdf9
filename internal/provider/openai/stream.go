package openai

import (
	"encoding/json"
	"io"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

// stream adapts a chat completion chunk stream. The accumulator assembles
// tool calls that arrive split across chunks.
type stream struct {
	name string
	s    *ssestream.Stream[sdk.ChatCompletionChunk]
	acc  sdk.ChatCompletionAccumulator
	done bool
}

func (st *stream) Next() (*provider.StreamChunk, error) {
	if st.done {
		return nil, io.EOF
	}
	for st.s.Next() {
		chunk := st.s.Current()
		st.acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			return &provider.StreamChunk{Delta: chunk.Choices[0].Delta.Content}, nil
		}
	}
	if err := st.s.Err(); err != nil {
		return nil, mapError(st.name, err)
	}
	st.done = true
	final := st.final()
	return &provider.StreamChunk{Final: &final}, nil
}

func (st *stream) final() provider.Message {
	if len(st.acc.Choices) == 0 {
		return provider.AssistantMessage("")
	}
	choice := st.acc.Choices[0].Message
	msg := provider.AssistantMessage(choice.Content)
	for _, tc := range choice.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return msg
}

func (st *stream) Close() error {
	return st.s.Close()
}
