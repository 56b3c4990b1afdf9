package config

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values. Provider and routing maps
// are merged key by key.
type Config struct {
	Providers    map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Routing      RoutingConfig             `json:"routing" yaml:"routing"`
	Policy       PolicyConfig              `json:"policy" yaml:"policy"`
	Context      ContextConfig             `json:"context" yaml:"context"`
	Orchestrator OrchestratorConfig        `json:"orchestrator" yaml:"orchestrator"`
	Classifier   ClassifierConfig          `json:"classifier" yaml:"classifier"`
	Tools        ToolsConfig               `json:"tools" yaml:"tools"`
	Session      SessionConfig             `json:"session" yaml:"session"`
	Logging      LoggingConfig             `json:"logging" yaml:"logging"`
	UI           UIConfig                  `json:"ui" yaml:"ui"`
}

// ProviderConfig configures one LLM backend.
type ProviderConfig struct {
	Kind    string `json:"kind" yaml:"kind"` // openai | anthropic | ollama | gemini
	Model   string `json:"model" yaml:"model"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv   string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
	MaxTokens   int    `json:"max_tokens" yaml:"max_tokens"`
	HealthCheck bool   `json:"health_check" yaml:"health_check"`
}

type RoutingConfig struct {
	// Capabilities maps a capability class to a provider id.
	Capabilities map[string]string `json:"capabilities" yaml:"capabilities"`
	Default      string            `json:"default" yaml:"default"`
}

type PolicyConfig struct {
	Mode                  string   `json:"mode" yaml:"mode"`           // Default: confirm-destructive
	Whitelist             []string `json:"whitelist" yaml:"whitelist"` // Tools strict mode allows
	ConfirmTimeoutSeconds int      `json:"confirm_timeout_seconds" yaml:"confirm_timeout_seconds"`
}

// ContextConfig bounds the window sent to providers. Zero means unlimited.
type ContextConfig struct {
	MaxMessages int `json:"max_messages" yaml:"max_messages"` // Default: 50
	MaxTokens   int `json:"max_tokens" yaml:"max_tokens"`     // Default: 32000
}

type OrchestratorConfig struct {
	MaxIterations      int    `json:"max_iterations" yaml:"max_iterations"`             // Default: 20
	ToolTimeoutSeconds int    `json:"tool_timeout_seconds" yaml:"tool_timeout_seconds"` // Default: 120
	HealthTimeoutMs    int    `json:"health_timeout_ms" yaml:"health_timeout_ms"`       // Default: 1500
	SystemPrompt       string `json:"system_prompt" yaml:"system_prompt"`
}

type ClassifierConfig struct {
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"` // Default: 0.5
}

type ToolsConfig struct {
	// WorkspaceRoot is the base for relative paths. Empty means the
	// current directory.
	WorkspaceRoot string `json:"workspace_root" yaml:"workspace_root"`

	// File Operations
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"` // Default: 5 * 1024 * 1024 (5MB)

	// Directory Listing
	MaxListEntries int `json:"max_list_entries" yaml:"max_list_entries"` // Default: 1000

	// Command Execution
	MaxCommandOutputSize int64  `json:"max_command_output_size" yaml:"max_command_output_size"` // Default: 1MB
	DefaultShellTimeout  int    `json:"default_shell_timeout" yaml:"default_shell_timeout"`     // Default: 60 (seconds)
	Shell                string `json:"shell" yaml:"shell"`                                     // Default: /bin/sh
}

type SessionConfig struct {
	Store      string `json:"store" yaml:"store"` // memory | redis
	RedisAddr  string `json:"redis_addr" yaml:"redis_addr"`
	KeyPrefix  string `json:"key_prefix" yaml:"key_prefix"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug | info | warn | error
	// Dir defaults to ~/.config/sysmate/logs when empty.
	Dir string `json:"dir" yaml:"dir"`
}

type UIConfig struct {
	RenderMarkdown bool `json:"render_markdown" yaml:"render_markdown"`
	Color          bool `json:"color" yaml:"color"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"anthropic": {Kind: "anthropic", Model: "claude-sonnet-4-5", APIKeyEnv: "ANTHROPIC_API_KEY", MaxTokens: 4096},
			"openai":    {Kind: "openai", Model: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY", MaxTokens: 4096},
			"gemini":    {Kind: "gemini", Model: "gemini-2.5-flash", APIKeyEnv: "GEMINI_API_KEY", MaxTokens: 4096},
			"ollama":    {Kind: "ollama", Model: "llama3.1", BaseURL: "http://localhost:11434/v1", HealthCheck: true},
		},
		Routing: RoutingConfig{
			Capabilities: map[string]string{
				"filesystem":     "anthropic",
				"shell":          "anthropic",
				"git":            "openai",
				"informational":  "gemini",
				"conversational": "ollama",
			},
			Default: "anthropic",
		},
		Policy: PolicyConfig{
			Mode:                  "confirm-destructive",
			Whitelist:             []string{"read_file", "list_files", "git_status", "git_log", "system_info"},
			ConfirmTimeoutSeconds: 60,
		},
		Context: ContextConfig{
			MaxMessages: 50,
			MaxTokens:   32000,
		},
		Orchestrator: OrchestratorConfig{
			MaxIterations:      20,
			ToolTimeoutSeconds: 120,
			HealthTimeoutMs:    1500,
			SystemPrompt:       "You are sysmate, an assistant that operates this machine through the provided tools. Prefer tools over guessing and keep answers short.",
		},
		Classifier: ClassifierConfig{
			MinConfidence: 0.5,
		},
		Tools: ToolsConfig{
			MaxFileSize:          5 * 1024 * 1024,
			MaxListEntries:       1000,
			MaxCommandOutputSize: 1024 * 1024,
			DefaultShellTimeout:  60,
			Shell:                "/bin/sh",
		},
		Session: SessionConfig{
			Store:      "memory",
			KeyPrefix:  "sysmate:session:",
			TTLSeconds: 7 * 24 * 3600,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			RenderMarkdown: true,
			Color:          true,
		},
	}
}
