package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// toGeminiContents converts history to Gemini contents. System markers are
// carried in the system instruction instead, see systemNotes.
func toGeminiContents(history []provider.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		content, err := messageToGeminiContent(msg)
		if err != nil {
			return nil, err
		}
		if content != nil {
			contents = append(contents, content)
		}
	}
	return contents, nil
}

func systemNotes(history []provider.Message) []string {
	var notes []string
	for _, msg := range history {
		if msg.Role == provider.RoleSystem && msg.Content != "" {
			notes = append(notes, msg.Content)
		}
	}
	return notes
}

// messageToGeminiContent converts a single message to Gemini Content format.
// Gemini takes call arguments as an object, so arguments that are not a
// JSON object are rejected.
func messageToGeminiContent(msg provider.Message) (*genai.Content, error) {
	parts := make([]*genai.Part, 0)
	role := "user"

	switch msg.Role {
	case provider.RoleSystem:
		return nil, nil
	case provider.RoleAssistant:
		role = "model"
		if msg.Content != "" {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}
		for _, call := range msg.ToolCalls {
			args := map[string]any{}
			if len(call.Arguments) > 0 {
				if err := json.Unmarshal(call.Arguments, &args); err != nil {
					return nil, fmt.Errorf("tool call %s (%s) has malformed arguments: %w", call.ID, call.Name, err)
				}
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: args},
			})
		}
	case provider.RoleTool:
		key := "content"
		if msg.Status != tool.StatusOK {
			key = "error"
		}
		parts = append(parts, &genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.ToolName,
				Response: map[string]any{key: msg.Content},
			},
		})
	default:
		if msg.Content != "" {
			parts = append(parts, genai.NewPartFromText(msg.Content))
		}
	}

	// Skip empty messages
	if len(parts) == 0 {
		return nil, nil
	}
	return &genai.Content{Role: role, Parts: parts}, nil
}

// toGeminiConfig builds the request config.
func toGeminiConfig(system string, notes []string, maxTokens int32) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if maxTokens > 0 {
		config.MaxOutputTokens = maxTokens
	}

	var instruction []string
	if system != "" {
		instruction = append(instruction, system)
	}
	instruction = append(instruction, notes...)
	if len(instruction) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(strings.Join(instruction, "\n\n"))},
		}
	}
	return config
}

// toGeminiTools converts declarations to Gemini tools.
func toGeminiTools(decls []tool.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fds := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fd := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		if d.Parameters != nil && len(d.Parameters.Properties) > 0 {
			fd.Parameters = toGeminiSchema(d.Parameters)
		}
		fds = append(fds, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}
}

// toGeminiSchema converts a tool schema to a Gemini Schema.
func toGeminiSchema(s *tool.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        toGeminiType(s.Type),
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toGeminiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGeminiSchema(prop)
		}
	}
	return out
}

// toGeminiType converts a schema type to Gemini Type.
func toGeminiType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	case tool.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// mapGeminiError maps Gemini API errors to provider errors.
func mapGeminiError(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if apiErr, ok := err.(*genai.APIError); ok {
		pe := provider.FromStatus(name, apiErr.Code, err)
		if apiErr.Message != "" {
			pe.Message = fmt.Sprintf("%s: %s", pe.Message, apiErr.Message)
		}
		return pe
	}
	return &provider.ProviderError{
		Provider:   name,
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}
