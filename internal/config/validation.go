package config

import (
	"fmt"
	"slices"
	"sort"

	"github.com/Cyclone1070/sysmate/internal/policy"
	"github.com/Cyclone1070/sysmate/internal/provider"
	"github.com/Cyclone1070/sysmate/internal/tool"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks config values for life correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	var errs []string

	// Providers validation
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := c.Providers[name]
		if !provider.Kind(p.Kind).Valid() {
			errs = append(errs, fmt.Sprintf("providers.%s.kind %q must be one of %v", name, p.Kind, provider.Kinds))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Sprintf("providers.%s.model is required", name))
		}
		if p.MaxTokens < 0 {
			errs = append(errs, fmt.Sprintf("providers.%s.max_tokens must be >= 0", name))
		}
	}

	// Routing validation
	capNames := make([]string, 0, len(c.Routing.Capabilities))
	for capability := range c.Routing.Capabilities {
		capNames = append(capNames, capability)
	}
	sort.Strings(capNames)
	for _, capability := range capNames {
		target := c.Routing.Capabilities[capability]
		if !tool.Capability(capability).Valid() {
			errs = append(errs, fmt.Sprintf("routing.capabilities has unknown capability %q", capability))
		}
		if _, ok := c.Providers[target]; !ok {
			errs = append(errs, fmt.Sprintf("routing.capabilities.%s references unknown provider %q", capability, target))
		}
	}
	if c.Routing.Default != "" {
		if _, ok := c.Providers[c.Routing.Default]; !ok {
			errs = append(errs, fmt.Sprintf("routing.default references unknown provider %q", c.Routing.Default))
		}
	}

	// Policy validation
	if _, err := policy.ParseMode(c.Policy.Mode); err != nil {
		errs = append(errs, "policy.mode: "+err.Error())
	}
	if c.Policy.ConfirmTimeoutSeconds < 1 {
		errs = append(errs, "policy.confirm_timeout_seconds must be >= 1")
	}

	// Context validation
	if c.Context.MaxMessages < 0 {
		errs = append(errs, "context.max_messages must be >= 0")
	}
	if c.Context.MaxTokens < 0 {
		errs = append(errs, "context.max_tokens must be >= 0")
	}

	// Orchestrator validation
	if c.Orchestrator.MaxIterations < 1 {
		errs = append(errs, "orchestrator.max_iterations must be >= 1")
	}
	if c.Orchestrator.ToolTimeoutSeconds < 1 {
		errs = append(errs, "orchestrator.tool_timeout_seconds must be >= 1")
	}
	if c.Orchestrator.HealthTimeoutMs < 1 {
		errs = append(errs, "orchestrator.health_timeout_ms must be >= 1")
	}

	// Classifier validation
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence >= 1 {
		errs = append(errs, "classifier.min_confidence must be in [0, 1)")
	}

	// Tools validation
	if c.Tools.MaxFileSize < 1 {
		errs = append(errs, "tools.max_file_size must be >= 1")
	}
	if c.Tools.MaxListEntries < 1 {
		errs = append(errs, "tools.max_list_entries must be >= 1")
	}
	if c.Tools.MaxCommandOutputSize < 1 {
		errs = append(errs, "tools.max_command_output_size must be >= 1")
	}
	if c.Tools.DefaultShellTimeout < 1 {
		errs = append(errs, "tools.default_shell_timeout must be >= 1")
	}
	if c.Tools.Shell == "" {
		errs = append(errs, "tools.shell is required")
	}

	// Session validation
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			errs = append(errs, "session.redis_addr is required when session.store is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("session.store %q must be memory or redis", c.Session.Store))
	}
	if c.Session.TTLSeconds < 0 {
		errs = append(errs, "session.ttl_seconds must be >= 0")
	}

	// Logging validation
	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("logging.level %q must be one of %v", c.Logging.Level, logLevels))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
