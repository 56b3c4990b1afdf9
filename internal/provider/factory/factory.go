// Package factory builds provider backends from configuration.
package factory

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/Cyclone1070/sysmate/internal/config"
	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/provider/anthropic"
	"github.com/Cyclone1070/sysmate/internal/provider/gemini"
	"github.com/Cyclone1070/sysmate/internal/provider/openai"
)

// Getenv looks up environment variables. os.Getenv in production.
type Getenv func(key string) string

// Constructors builds each backend kind from an API key. Tests replace
// entries to avoid the network.
type Constructors struct {
	OpenAI    func(apiKey, baseURL string, opts openai.Options) (provider.Provider, error)
	Ollama    func(baseURL string, opts openai.Options) (provider.Provider, error)
	Anthropic func(apiKey string, opts anthropic.Options) (provider.Provider, error)
	Gemini    func(ctx context.Context, apiKey string, opts gemini.Options) (provider.Provider, error)
}

// DefaultConstructors returns constructors backed by the real SDK clients.
func DefaultConstructors() Constructors {
	return Constructors{
		OpenAI: func(apiKey, baseURL string, opts openai.Options) (provider.Provider, error) {
			return openai.NewFromAPIKey(apiKey, baseURL, opts)
		},
		Ollama: func(baseURL string, opts openai.Options) (provider.Provider, error) {
			return openai.NewOllama(baseURL, opts)
		},
		Anthropic: func(apiKey string, opts anthropic.Options) (provider.Provider, error) {
			return anthropic.NewFromAPIKey(apiKey, opts)
		},
		Gemini: func(ctx context.Context, apiKey string, opts gemini.Options) (provider.Provider, error) {
			return gemini.NewFromAPIKey(ctx, apiKey, opts)
		},
	}
}

// BuildError reports a provider that could not be constructed.
type BuildError struct {
	ID    string
	Cause error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("provider %q: %v", e.ID, e.Cause)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// Factory turns provider configuration into backends.
type Factory struct {
	getenv Getenv
	ctors  Constructors
}

// New creates a factory reading API keys from the process environment.
func New() *Factory {
	return NewWith(os.Getenv, DefaultConstructors())
}

// NewWith creates a factory with injected dependencies.
func NewWith(getenv Getenv, ctors Constructors) *Factory {
	return &Factory{getenv: getenv, ctors: ctors}
}

// Build creates the backend configured as id.
func (f *Factory) Build(ctx context.Context, id string, cfg config.ProviderConfig) (provider.Provider, error) {
	kind := provider.Kind(cfg.Kind)
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = f.getenv(cfg.APIKeyEnv)
	}

	var (
		p   provider.Provider
		err error
	)
	switch kind {
	case provider.KindOpenAI:
		p, err = f.ctors.OpenAI(apiKey, cfg.BaseURL, openai.Options{Name: id, Model: cfg.Model, MaxTokens: cfg.MaxTokens})
	case provider.KindOllama:
		p, err = f.ctors.Ollama(cfg.BaseURL, openai.Options{Name: id, Model: cfg.Model, MaxTokens: cfg.MaxTokens})
	case provider.KindAnthropic:
		p, err = f.ctors.Anthropic(apiKey, anthropic.Options{Name: id, Model: cfg.Model, MaxTokens: cfg.MaxTokens})
	case provider.KindGemini:
		p, err = f.ctors.Gemini(ctx, apiKey, gemini.Options{Name: id, Model: cfg.Model, MaxTokens: cfg.MaxTokens})
	default:
		err = fmt.Errorf("%w: %q", provider.ErrUnsupportedKind, cfg.Kind)
	}
	if err != nil {
		if cfg.APIKeyEnv != "" && apiKey == "" {
			err = fmt.Errorf("%w (set %s)", err, cfg.APIKeyEnv)
		}
		return nil, &BuildError{ID: id, Cause: err}
	}
	return p, nil
}

// BuildAll builds every configured backend, in id order. Backends that
// fail to build are left out and reported; they count as unavailable.
func (f *Factory) BuildAll(ctx context.Context, cfgs map[string]config.ProviderConfig) (map[string]provider.Provider, []error) {
	ids := make([]string, 0, len(cfgs))
	for id := range cfgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	built := make(map[string]provider.Provider, len(cfgs))
	var errs []error
	for _, id := range ids {
		p, err := f.Build(ctx, id, cfgs[id])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		built[id] = p
	}
	return built, errs
}
