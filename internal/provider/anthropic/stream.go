package anthropic

import (
	"encoding/json"
	"io"
	"sort"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

type toolBuffer struct {
	id        string
	name      string
	fragments []string
}

func (tb *toolBuffer) input() json.RawMessage {
	joined := strings.TrimSpace(strings.Join(tb.fragments, ""))
	if joined == "" {
		joined = "{}"
	}
	return json.RawMessage(joined)
}

// stream adapts an SSE message stream to provider.ResponseStream. Text
// deltas are forwarded as they arrive; tool_use blocks are buffered by
// content index and emitted with the final message.
type stream struct {
	name  string
	s     *ssestream.Stream[sdk.MessageStreamEventUnion]
	text  strings.Builder
	tools map[int64]*toolBuffer
	done  bool
}

func newStream(name string, s *ssestream.Stream[sdk.MessageStreamEventUnion]) *stream {
	return &stream{name: name, s: s, tools: make(map[int64]*toolBuffer)}
}

func (st *stream) Next() (*provider.StreamChunk, error) {
	if st.done {
		return nil, io.EOF
	}
	for st.s.Next() {
		if delta := st.handle(st.s.Current()); delta != "" {
			return &provider.StreamChunk{Delta: delta}, nil
		}
	}
	if err := st.s.Err(); err != nil {
		return nil, mapError(st.name, err)
	}
	st.done = true
	final := st.final()
	return &provider.StreamChunk{Final: &final}, nil
}

func (st *stream) handle(event sdk.MessageStreamEventUnion) string {
	switch ev := event.AsAny().(type) {
	case sdk.ContentBlockStartEvent:
		if tu, ok := ev.ContentBlock.AsAny().(sdk.ToolUseBlock); ok {
			st.tools[ev.Index] = &toolBuffer{id: tu.ID, name: tu.Name}
		}
	case sdk.ContentBlockDeltaEvent:
		switch d := ev.Delta.AsAny().(type) {
		case sdk.TextDelta:
			st.text.WriteString(d.Text)
			return d.Text
		case sdk.InputJSONDelta:
			if tb := st.tools[ev.Index]; tb != nil {
				tb.fragments = append(tb.fragments, d.PartialJSON)
			}
		}
	}
	return ""
}

func (st *stream) final() provider.Message {
	msg := provider.AssistantMessage(st.text.String())
	indexes := make([]int64, 0, len(st.tools))
	for idx := range st.tools {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	for _, idx := range indexes {
		tb := st.tools[idx]
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
			ID:        tb.id,
			Name:      tb.name,
			Arguments: tb.input(),
		})
	}
	return msg
}

func (st *stream) Close() error {
	return st.s.Close()
}
