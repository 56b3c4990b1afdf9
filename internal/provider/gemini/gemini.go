// Package gemini implements a provider for Google Gemini.
package gemini

import (
	"context"
	"errors"
	"iter"

	"github.com/Cyclone1070/sysmate/internal/provider"
)

// Provider implements provider.Provider for Google Gemini.
type Provider struct {
	client    GeminiClient
	name      string
	modelName string
	maxTokens int32
}

// Options configures the provider.
type Options struct {
	Name      string
	Model     string
	MaxTokens int
}

// New creates a new Provider with the specified client and model.
func New(client GeminiClient, opts Options) (*Provider, error) {
	if client == nil {
		return nil, errors.New("gemini client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("model identifier is required")
	}
	name := opts.Name
	if name == "" {
		name = string(provider.KindGemini)
	}
	return &Provider{
		client:    client,
		name:      name,
		modelName: opts.Model,
		maxTokens: int32(opts.MaxTokens),
	}, nil
}

// NewFromAPIKey builds a provider backed by the Gemini API.
func NewFromAPIKey(ctx context.Context, apiKey string, opts Options) (*Provider, error) {
	if apiKey == "" {
		return nil, provider.ErrMissingAPIKey
	}
	client, err := NewRealGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return New(client, opts)
}

// Model implements provider.Provider.
func (p *Provider) Model() string {
	return p.modelName
}

// Stream sends the request and streams the response. The first chunk is
// read before returning so request errors surface here.
func (p *Provider) Stream(ctx context.Context, req *provider.Request) (provider.ResponseStream, error) {
	contents, err := toGeminiContents(req.Messages)
	if err != nil {
		return nil, &provider.ProviderError{
			Provider:   p.name,
			Code:       provider.ErrorCodeInvalidRequest,
			Message:    "cannot encode history",
			Underlying: err,
		}
	}
	if len(contents) == 0 {
		return nil, &provider.ProviderError{
			Provider: p.name,
			Code:     provider.ErrorCodeInvalidRequest,
			Message:  "at least one user or model message is required",
		}
	}

	config := toGeminiConfig(req.System, systemNotes(req.Messages), p.maxTokens)
	if len(req.Tools) > 0 {
		config.Tools = toGeminiTools(req.Tools)
	}

	next, stop := iter.Pull2(p.client.GenerateContentStream(ctx, p.modelName, contents, config))
	st := &stream{name: p.name, next: next, stop: stop, msg: provider.AssistantMessage("")}
	if err := st.prime(); err != nil {
		stop()
		return nil, err
	}
	return st, nil
}

// Health lists models to confirm the API key and endpoint work.
func (p *Provider) Health(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return mapGeminiError(p.name, err)
	}
	return nil
}
