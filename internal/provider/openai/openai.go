// Package openai implements a provider for the OpenAI Chat Completions API.
// Ollama is served by the same code through its OpenAI-compatible endpoint.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/pagination"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

// DefaultOllamaURL is the OpenAI-compatible endpoint of a local Ollama.
const DefaultOllamaURL = "http://localhost:11434/v1"

// ChatClient captures the subset of the SDK used here. It is satisfied by
// *sdk.ChatCompletionService.
type ChatClient interface {
	NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk]
}

// ModelLister is satisfied by *sdk.ModelService.
type ModelLister interface {
	List(ctx context.Context, opts ...option.RequestOption) (*pagination.Page[sdk.Model], error)
}

// Options configures the provider.
type Options struct {
	Name      string
	Model     string
	MaxTokens int
}

// Provider implements provider.Provider on top of chat completions.
type Provider struct {
	chat      ChatClient
	models    ModelLister
	name      string
	model     string
	maxTokens int64
}

// New creates a provider. models may be nil, in which case health checks
// always pass.
func New(chat ChatClient, models ModelLister, opts Options) (*Provider, error) {
	if chat == nil {
		return nil, errors.New("openai client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	name := opts.Name
	if name == "" {
		name = string(provider.KindOpenAI)
	}
	return &Provider{
		chat:      chat,
		models:    models,
		name:      name,
		model:     opts.Model,
		maxTokens: int64(opts.MaxTokens),
	}, nil
}

// NewFromAPIKey builds a provider against the OpenAI API, or against
// baseURL when it is set.
func NewFromAPIKey(apiKey, baseURL string, opts Options) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.ErrMissingAPIKey
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	client := sdk.NewClient(reqOpts...)
	return New(&client.Chat.Completions, &client.Models, opts)
}

// NewOllama builds a provider against a local Ollama server. Ollama ignores
// the API key but the SDK requires one.
func NewOllama(baseURL string, opts Options) (*Provider, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if opts.Name == "" {
		opts.Name = string(provider.KindOllama)
	}
	return NewFromAPIKey("ollama", baseURL, opts)
}

// Model implements provider.Provider.
func (p *Provider) Model() string {
	return p.model
}

// Health lists models to confirm the backend is reachable.
func (p *Provider) Health(ctx context.Context) error {
	if p.models == nil {
		return nil
	}
	if _, err := p.models.List(ctx); err != nil {
		return mapError(p.name, err)
	}
	return nil
}

// Stream implements provider.Provider.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	params := p.buildParams(req)
	s := p.chat.NewStreaming(ctx, params)
	if err := s.Err(); err != nil {
		return nil, mapError(p.name, err)
	}
	return &stream{name: p.name, s: s}, nil
}

func (p *Provider) buildParams(req *provider.Request) sdk.ChatCompletionNewParams {
	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: encodeMessages(req.System, req.Messages),
	}
	if p.maxTokens > 0 {
		params.MaxTokens = sdk.Int(p.maxTokens)
	}
	if len(req.Tools) > 0 {
		params.Tools = encodeTools(req.Tools)
	}
	return params
}

func encodeMessages(system string, history []provider.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if system != "" {
		out = append(out, sdk.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case provider.RoleSystem:
			out = append(out, sdk.SystemMessage(m.Content))
		case provider.RoleUser:
			out = append(out, sdk.UserMessage(m.Content))
		case provider.RoleTool:
			out = append(out, sdk.ToolMessage(m.Content, m.ToolCallID))
		case provider.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, sdk.AssistantMessage(m.Content))
				continue
			}
			asst := sdk.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = sdk.String(m.Content)
			}
			for _, c := range m.ToolCalls {
				args := string(c.Arguments)
				if args == "" {
					args = "{}"
				}
				asst.ToolCalls = append(asst.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
					ID: c.ID,
					Function: sdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      c.Name,
						Arguments: args,
					},
				})
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func encodeTools(decls []tool.Declaration) []sdk.ChatCompletionToolParam {
	out := make([]sdk.ChatCompletionToolParam, 0, len(decls))
	for _, d := range decls {
		fn := shared.FunctionDefinitionParam{
			Name:       d.Name,
			Parameters: functionParameters(d.Parameters),
		}
		if d.Description != "" {
			fn.Description = sdk.String(d.Description)
		}
		out = append(out, sdk.ChatCompletionToolParam{Function: fn})
	}
	return out
}

func functionParameters(s *tool.Schema) shared.FunctionParameters {
	if s == nil {
		s = tool.Object(nil)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return shared.FunctionParameters{"type": "object"}
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(data, &params); err != nil {
		return shared.FunctionParameters{"type": "object"}
	}
	if _, ok := params["properties"]; !ok {
		params["properties"] = map[string]any{}
	}
	return params
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
		Message:    fmt.Sprintf("request failed: %v", err),
		Underlying: err,
		Retryable:  true,
	}
}
