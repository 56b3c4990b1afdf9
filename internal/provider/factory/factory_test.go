package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/sysmate/internal/config"
	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/provider/anthropic"
	"github.com/Cyclone1070/sysmate/internal/provider/gemini"
	"github.com/Cyclone1070/sysmate/internal/provider/openai"
)

type stubProvider struct {
	kind  provider.Kind
	model string
	key   string
	url   string
}

func (s *stubProvider) Stream(context.Context, *provider.Request) (provider.ResponseStream, error) {
	return provider.NewStaticStream(provider.AssistantMessage("ok")), nil
}

func (s *stubProvider) Model() string { return s.model }

func stubConstructors() Constructors {
	return Constructors{
		OpenAI: func(apiKey, baseURL string, opts openai.Options) (provider.Provider, error) {
			if apiKey == "" {
				return nil, provider.ErrMissingAPIKey
			}
			return &stubProvider{kind: provider.KindOpenAI, model: opts.Model, key: apiKey, url: baseURL}, nil
		},
		Ollama: func(baseURL string, opts openai.Options) (provider.Provider, error) {
			return &stubProvider{kind: provider.KindOllama, model: opts.Model, url: baseURL}, nil
		},
		Anthropic: func(apiKey string, opts anthropic.Options) (provider.Provider, error) {
			if apiKey == "" {
				return nil, provider.ErrMissingAPIKey
			}
			return &stubProvider{kind: provider.KindAnthropic, model: opts.Model, key: apiKey}, nil
		},
		Gemini: func(_ context.Context, apiKey string, opts gemini.Options) (provider.Provider, error) {
			if apiKey == "" {
				return nil, provider.ErrMissingAPIKey
			}
			return &stubProvider{kind: provider.KindGemini, model: opts.Model, key: apiKey}, nil
		},
	}
}

func env(vars map[string]string) Getenv {
	return func(k string) string { return vars[k] }
}

func TestBuild_ReadsKeyFromEnvironment(t *testing.T) {
	f := NewWith(env(map[string]string{"ANTHROPIC_API_KEY": "secret"}), stubConstructors())

	p, err := f.Build(context.Background(), "claude", config.ProviderConfig{
		Kind: "anthropic", Model: "claude-x", APIKeyEnv: "ANTHROPIC_API_KEY",
	})

	require.NoError(t, err)
	stub := p.(*stubProvider)
	assert.Equal(t, provider.KindAnthropic, stub.kind)
	assert.Equal(t, "secret", stub.key)
	assert.Equal(t, "claude-x", p.Model())
}

func TestBuild_MissingKey(t *testing.T) {
	f := NewWith(env(nil), stubConstructors())

	_, err := f.Build(context.Background(), "gpt", config.ProviderConfig{
		Kind: "openai", Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY",
	})

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "gpt", buildErr.ID)
	assert.ErrorIs(t, err, provider.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestBuild_OllamaNeedsNoKey(t *testing.T) {
	f := NewWith(env(nil), stubConstructors())

	p, err := f.Build(context.Background(), "local", config.ProviderConfig{
		Kind: "ollama", Model: "llama3.1", BaseURL: "http://gpu-box:11434/v1",
	})

	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434/v1", p.(*stubProvider).url)
}

func TestBuild_UnsupportedKind(t *testing.T) {
	f := NewWith(env(nil), stubConstructors())

	_, err := f.Build(context.Background(), "x", config.ProviderConfig{Kind: "mistral", Model: "m"})

	assert.ErrorIs(t, err, provider.ErrUnsupportedKind)
}

func TestBuildAll(t *testing.T) {
	f := NewWith(env(map[string]string{"GEMINI_API_KEY": "g"}), stubConstructors())

	built, errs := f.BuildAll(context.Background(), map[string]config.ProviderConfig{
		"gemini":    {Kind: "gemini", Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY"},
		"ollama":    {Kind: "ollama", Model: "llama3.1"},
		"anthropic": {Kind: "anthropic", Model: "c", APIKeyEnv: "ANTHROPIC_API_KEY"},
		"openai":    {Kind: "openai", Model: "o", APIKeyEnv: "OPENAI_API_KEY"},
	})

	assert.Len(t, built, 2)
	assert.Contains(t, built, "gemini")
	assert.Contains(t, built, "ollama")
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), `"anthropic"`)
	assert.Contains(t, errs[1].Error(), `"openai"`)
}

func TestDefaultConstructors_RealBackends(t *testing.T) {
	f := NewWith(env(map[string]string{"OPENAI_API_KEY": "k", "ANTHROPIC_API_KEY": "k"}), DefaultConstructors())

	for _, cfg := range []config.ProviderConfig{
		{Kind: "openai", Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY"},
		{Kind: "anthropic", Model: "claude", APIKeyEnv: "ANTHROPIC_API_KEY"},
		{Kind: "ollama", Model: "llama3.1"},
	} {
		p, err := f.Build(context.Background(), cfg.Kind, cfg)
		require.NoError(t, err, cfg.Kind)
		assert.Equal(t, cfg.Model, p.Model())
	}
}
