package provider

import (
	"encoding/json"
	"time"

	"github.com/Cyclone1070/sysmate/internal/tool"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message represents a single message in the conversation history.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`

	// For assistant messages with tool calls
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// For tool messages
	ToolCallID string      `json:"tool_call_id,omitempty"`
	ToolName   string      `json:"tool_name,omitempty"`
	Status     tool.Status `json:"status,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a plain text assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage builds a system marker message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ToolMessage builds the tool-role message carrying the result of call.
func ToolMessage(call ToolCall, res tool.Result) Message {
	return Message{
		Role:       RoleTool,
		Content:    res.LLMContent(),
		ToolCallID: call.ID,
		ToolName:   call.Name,
		Status:     res.Status,
	}
}

// HasToolCalls reports whether the message requests tool executions.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
