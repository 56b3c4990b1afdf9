package provider

import (
	"context"

	"github.com/Cyclone1070/sysmate/internal/tool"
)

// Request is everything a backend needs for one model call.
type Request struct {
	// System is an optional system prompt.
	System string

	// Messages is the windowed conversation, oldest first.
	Messages []Message

	// Tools are the declarations the model may call.
	Tools []tool.Declaration
}

// Provider represents one LLM backend.
type Provider interface {
	// Stream sends the request and returns a stream of chunks. The last
	// chunk carries the final assistant message.
	Stream(ctx context.Context, req *Request) (ResponseStream, error)

	// Model returns the model identifier in use.
	Model() string
}

// HealthChecker is implemented by providers that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ResponseStream provides access to streaming response chunks.
type ResponseStream interface {
	// Next returns the next chunk, or io.EOF when done
	Next() (*StreamChunk, error)

	// Close releases resources
	Close() error
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// Delta is the incremental text
	Delta string

	// Final is set on the last chunk. It holds the complete assistant
	// message: text, or tool calls in the order the model returned them.
	Final *Message
}
