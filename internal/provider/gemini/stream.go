package gemini

import (
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

// stream adapts a pulled GenerateContentStream. Text parts become deltas;
// function calls are collected into the final message.
type stream struct {
	name string
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()

	msg      provider.Message
	buffered string
	answered bool
	done     bool
}

// prime reads the first response so the caller sees request failures and
// safety blocks before any delta.
func (st *stream) prime() error {
	resp, err, ok := st.next()
	if !ok {
		return nil
	}
	if err != nil {
		return mapGeminiError(st.name, err)
	}
	delta, err := st.add(resp)
	if err != nil {
		return err
	}
	st.buffered = delta
	return nil
}

func (st *stream) Next() (*provider.StreamChunk, error) {
	if st.done {
		return nil, io.EOF
	}
	if st.buffered != "" {
		delta := st.buffered
		st.buffered = ""
		return &provider.StreamChunk{Delta: delta}, nil
	}
	for {
		resp, err, ok := st.next()
		if !ok {
			break
		}
		if err != nil {
			st.done = true
			return nil, mapGeminiError(st.name, err)
		}
		delta, err := st.add(resp)
		if err != nil {
			st.done = true
			return nil, err
		}
		if delta != "" {
			return &provider.StreamChunk{Delta: delta}, nil
		}
	}

	st.done = true
	if !st.answered {
		return nil, &provider.ProviderError{
			Provider: st.name,
			Code:     provider.ErrorCodeInvalidRequest,
			Message:  "no candidates in response",
		}
	}
	final := st.msg
	return &provider.StreamChunk{Final: &final}, nil
}

// add folds one response chunk into the message and returns its text.
// Chunks without candidates, such as trailing usage reports, are skipped.
// Gemini may omit call ids, so missing ones are generated.
func (st *stream) add(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", nil
	}
	st.answered = true

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", &provider.ProviderError{
			Provider: st.name,
			Code:     provider.ErrorCodeContentBlocked,
			Message:  "content blocked by safety filters",
		}
	}
	if candidate.Content == nil {
		return "", nil
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part.FunctionCall != nil {
			args := []byte("{}")
			if part.FunctionCall.Args != nil {
				encoded, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return "", &provider.ProviderError{
						Provider:   st.name,
						Code:       provider.ErrorCodeInvalidRequest,
						Message:    "cannot encode arguments of " + part.FunctionCall.Name,
						Underlying: err,
					}
				}
				args = encoded
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			st.msg.ToolCalls = append(st.msg.ToolCalls, provider.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		if part.Text != "" && !part.Thought {
			text += part.Text
		}
	}
	st.msg.Content += text
	return text, nil
}

func (st *stream) Close() error {
	st.done = true
	st.stop()
	return nil
}
