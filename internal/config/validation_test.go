package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_AllDefaults_Pass(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown provider kind", func(c *Config) { c.Providers["x"] = ProviderConfig{Kind: "bedrock", Model: "m"} }, "providers.x.kind"},
		{"missing model", func(c *Config) { c.Providers["x"] = ProviderConfig{Kind: "openai"} }, "providers.x.model"},
		{"routing to unknown provider", func(c *Config) { c.Routing.Capabilities["shell"] = "nowhere" }, "routing.capabilities.shell"},
		{"routing unknown capability", func(c *Config) { c.Routing.Capabilities["network"] = "openai" }, "unknown capability"},
		{"unknown default", func(c *Config) { c.Routing.Default = "nowhere" }, "routing.default"},
		{"bad policy mode", func(c *Config) { c.Policy.Mode = "lenient" }, "policy.mode"},
		{"zero confirm timeout", func(c *Config) { c.Policy.ConfirmTimeoutSeconds = 0 }, "confirm_timeout_seconds"},
		{"negative window", func(c *Config) { c.Context.MaxMessages = -1 }, "context.max_messages"},
		{"zero iterations", func(c *Config) { c.Orchestrator.MaxIterations = 0 }, "max_iterations"},
		{"confidence too high", func(c *Config) { c.Classifier.MinConfidence = 1 }, "min_confidence"},
		{"zero file size", func(c *Config) { c.Tools.MaxFileSize = 0 }, "max_file_size"},
		{"empty shell", func(c *Config) { c.Tools.Shell = "" }, "tools.shell"},
		{"redis without addr", func(c *Config) { c.Session.Store = "redis" }, "redis_addr"},
		{"unknown store", func(c *Config) { c.Session.Store = "mongo" }, "session.store"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_ZeroWindowMeansUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Context.MaxMessages = 0
	cfg.Context.MaxTokens = 0
	assert.NoError(t, cfg.Validate())
}

func TestValidate_EmptyDefaultAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Routing.Default = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MultipleErrors_ReportsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Orchestrator.MaxIterations = 0
	cfg.Tools.MaxListEntries = 0
	cfg.Logging.Level = "loud"

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_iterations")
	assert.Contains(t, err.Error(), "max_list_entries")
	assert.Contains(t, err.Error(), "logging.level")
}
