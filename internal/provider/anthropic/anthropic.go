// Package anthropic implements a provider backed by the Anthropic Messages
// API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

const defaultMaxTokens = 4096

// MessagesClient captures the subset of the SDK used here. It is satisfied
// by *sdk.MessageService.
type MessagesClient interface {
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures the provider.
type Options struct {
	// Name is the configured provider id, used in errors.
	Name      string
	Model     string
	MaxTokens int
}

// Provider implements provider.Provider for Claude models.
type Provider struct {
	msg       MessagesClient
	name      string
	model     string
	maxTokens int64
}

// New creates a provider from a messages client.
func New(msg MessagesClient, opts Options) (*Provider, error) {
	if msg == nil {
		return nil, errors.New("anthropic client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	maxTokens := int64(opts.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	name := opts.Name
	if name == "" {
		name = string(provider.KindAnthropic)
	}
	return &Provider{msg: msg, name: name, model: opts.Model, maxTokens: maxTokens}, nil
}

// NewFromAPIKey builds a provider using the default SDK HTTP client.
func NewFromAPIKey(apiKey string, opts Options) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.ErrMissingAPIKey
	}
	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&client.Messages, opts)
}

// Model implements provider.Provider.
func (p *Provider) Model() string {
	return p.model
}

// Stream implements provider.Provider.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	params, err := p.buildParams(req)
	if err != nil {
		return nil, err
	}
	s := p.msg.NewStreaming(ctx, params)
	if err := s.Err(); err != nil {
		return nil, mapError(p.name, err)
	}
	return newStream(p.name, s), nil
}

func (p *Provider) buildParams(req *provider.Request) (sdk.MessageNewParams, error) {
	msgs, system := encodeMessages(req.Messages)
	if len(msgs) == 0 {
		return sdk.MessageNewParams{}, &provider.ProviderError{
			Provider: p.name,
			Code:     provider.ErrorCodeInvalidRequest,
			Message:  "at least one user or assistant message is required",
		}
	}
	if req.System != "" {
		system = append([]sdk.TextBlockParam{{Text: req.System}}, system...)
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(p.model),
		MaxTokens: p.maxTokens,
		Messages:  msgs,
	}
	if len(system) > 0 {
		params.System = system
	}
	tools, err := encodeTools(req.Tools)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}
	if len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

// encodeMessages converts history into Anthropic turns. System markers go
// into the system prompt; consecutive tool results are merged into a single
// user turn so every tool_use is answered in the following message.
func encodeMessages(history []provider.Message) ([]sdk.MessageParam, []sdk.TextBlockParam) {
	var (
		conversation []sdk.MessageParam
		system       []sdk.TextBlockParam
		results      []sdk.ContentBlockParamUnion
	)
	flush := func() {
		if len(results) > 0 {
			conversation = append(conversation, sdk.NewUserMessage(results...))
			results = nil
		}
	}

	for _, m := range history {
		switch m.Role {
		case provider.RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case provider.RoleTool:
			results = append(results, sdk.NewToolResultBlock(m.ToolCallID, m.Content, m.Status != tool.StatusOK))
		case provider.RoleUser:
			flush()
			if m.Content != "" {
				conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
			}
		case provider.RoleAssistant:
			flush()
			var blocks []sdk.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, c := range m.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(c.ID, toolInput(c.Arguments), c.Name))
			}
			if len(blocks) > 0 {
				conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return conversation, system
}

func toolInput(raw json.RawMessage) any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	return raw
}

func encodeTools(decls []tool.Declaration) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema, err := inputSchema(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("anthropic: tool %q schema: %w", d.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, d.Name)
		if u.OfTool != nil && d.Description != "" {
			u.OfTool.Description = sdk.String(d.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func inputSchema(s *tool.Schema) (sdk.ToolInputSchemaParam, error) {
	if s == nil {
		s = tool.Object(nil)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

func mapError(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return provider.FromStatus(name, apiErr.StatusCode, err)
	}
	return &provider.ProviderError{
		Provider:   name,
		Code:       provider.ErrorCodeNetwork,
		Message:    "network error",
		Underlying: err,
		Retryable:  true,
	}
}
