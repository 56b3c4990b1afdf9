package provider

import (
	"errors"
	"io"
)

// Kind is the closed set of supported backends.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindOllama    Kind = "ollama"
	KindGemini    Kind = "gemini"
)

// Kinds lists every supported backend kind.
var Kinds = []Kind{KindOpenAI, KindAnthropic, KindOllama, KindGemini}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// sliceStream replays a fixed set of chunks.
type sliceStream struct {
	chunks []*StreamChunk
	pos    int
	closed bool
}

// NewStaticStream returns a stream that yields the given deltas followed by
// a final chunk carrying final. Backends without native streaming use it.
func NewStaticStream(final Message, deltas ...string) ResponseStream {
	chunks := make([]*StreamChunk, 0, len(deltas)+1)
	for _, d := range deltas {
		chunks = append(chunks, &StreamChunk{Delta: d})
	}
	chunks = append(chunks, &StreamChunk{Final: &final})
	return &sliceStream{chunks: chunks}
}

func (s *sliceStream) Next() (*StreamChunk, error) {
	if s.closed || s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *sliceStream) Close() error {
	s.closed = true
	return nil
}

// ErrNoFinalMessage is returned when a stream ends without a final chunk.
var ErrNoFinalMessage = errors.New("stream ended without a final message")

// Collect drains a stream, invoking onDelta for each text delta, and
// returns the final message. The stream is closed on return.
func Collect(stream ResponseStream, onDelta func(string)) (*Message, error) {
	defer stream.Close()

	var final *Message
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if chunk.Delta != "" && onDelta != nil {
			onDelta(chunk.Delta)
		}
		if chunk.Final != nil {
			final = chunk.Final
		}
	}
	if final == nil {
		return nil, ErrNoFinalMessage
	}
	return final, nil
}
