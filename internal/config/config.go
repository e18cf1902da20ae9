// Package config loads agentcore's ambient configuration: which LLM
// provider backs the trio, the approval policy gating side-effecting
// tools, the Executor's concurrency/timeout knobs, and the Observability
// Bridge's persistence and poll settings.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the root configuration document, loaded from YAML (or JSON5
// via $include) with environment variable expansion.
type Config struct {
	WorkingDirectory string `yaml:"working_directory"`

	LLM       LLMConfig      `yaml:"llm"`
	Approval  ApprovalConfig `yaml:"approval"`
	Executor  ExecutorConfig `yaml:"executor"`
	Bridge    BridgeConfig   `yaml:"bridge"`
	Schedule  ScheduleConfig `yaml:"schedule"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// LLMConfig selects the default provider and carries per-provider
// credentials/model overrides. Provider names are "anthropic", "openai",
// or "bedrock" - the three backends internal/llm implements.
type LLMConfig struct {
	DefaultProvider string                       `yaml:"default_provider"`
	Providers       map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig configures one concrete backend. APIKey is normally
// left empty in the file and supplied via ANTHROPIC_API_KEY/OPENAI_API_KEY/
// AWS_* per §6 - Load only uses the literal value as a fallback.
type LLMProviderConfig struct {
	APIKey       string `yaml:"api_key"`
	DefaultModel string `yaml:"default_model"`
	BaseURL      string `yaml:"base_url"`
	Region       string `yaml:"region"`

	// AccessKeyID/SecretAccessKey/SessionToken are bedrock-only: an
	// explicit static credential pair, overriding the AWS SDK's default
	// credential chain. Leave empty to use env/shared-config/role creds.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
}

// ApprovalConfig configures the Orchestrator's approval gate
// (internal/approval.Policy). Allowlist/Denylist/RequireApproval support
// the same exact/"prefix*"/"*suffix"/"*" patterns as internal/approval.
type ApprovalConfig struct {
	Allowlist       []string      `yaml:"allowlist"`
	Denylist        []string      `yaml:"denylist"`
	RequireApproval []string      `yaml:"require_approval"`
	AutoApprove     bool          `yaml:"auto_approve"`
	RequestTTL      time.Duration `yaml:"request_ttl"`
}

// ExecutorConfig configures the Executor's scheduler and watchdog
// (internal/executor.Config).
type ExecutorConfig struct {
	MaxConcurrency   int           `yaml:"max_concurrency"`
	WatchdogInterval time.Duration `yaml:"watchdog_interval"`
	StallThreshold   time.Duration `yaml:"stall_threshold"`
}

// BridgeConfig configures the Observability Bridge (internal/bridge).
type BridgeConfig struct {
	Enabled      bool          `yaml:"enabled"`
	DatabaseURL  string        `yaml:"database_url"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ScheduleConfig configures the cron-driven scheduled-request feature
// (internal/schedule).
type ScheduleConfig struct {
	Enabled bool                `yaml:"enabled"`
	Jobs    []ScheduleJobConfig `yaml:"jobs"`
}

// ScheduleJobConfig is one scheduled request: a cron spec and the prompt
// to run against it, same shape as a live user turn.
type ScheduleJobConfig struct {
	ID     string `yaml:"id"`
	Cron   string `yaml:"cron"`
	Prompt string `yaml:"prompt"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads path (resolving $include directives per loader.go), expands
// environment variables, applies defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values for
// the credentials §6 names explicitly, independent of $VAR expansion
// inside the YAML itself.
func applyEnvOverrides(cfg *Config) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = map[string]LLMProviderConfig{}
	}
	overrideAPIKey(cfg, "anthropic", "ANTHROPIC_API_KEY")
	overrideAPIKey(cfg, "openai", "OPENAI_API_KEY")
	overrideBedrockCredentials(cfg)

	if dsn := os.Getenv("AGENTCORE_DATABASE_URL"); dsn != "" {
		cfg.Bridge.DatabaseURL = dsn
	}
	if mode := os.Getenv("AGENTCORE_APPROVAL_MODE"); mode != "" {
		switch strings.ToLower(mode) {
		case "yolo":
			cfg.Approval.AutoApprove = true
		case "interactive", "auto_edit":
			cfg.Approval.AutoApprove = false
		}
	}
	if enabled := os.Getenv("AGENTCORE_BRIDGE_ENABLED"); enabled != "" {
		cfg.Bridge.Enabled = enabled == "1" || strings.EqualFold(enabled, "true")
	}
}

func overrideAPIKey(cfg *Config, provider, envVar string) {
	key := os.Getenv(envVar)
	if key == "" {
		return
	}
	p := cfg.LLM.Providers[provider]
	p.APIKey = key
	cfg.LLM.Providers[provider] = p
}

func overrideBedrockCredentials(cfg *Config) {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return
	}
	p := cfg.LLM.Providers["bedrock"]
	p.AccessKeyID = id
	p.SecretAccessKey = secret
	p.SessionToken = os.Getenv("AWS_SESSION_TOKEN")
	cfg.LLM.Providers["bedrock"] = p
}

func applyDefaults(cfg *Config) {
	if cfg.WorkingDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.WorkingDirectory = wd
		}
	}
	if cfg.LLM.DefaultProvider == "" {
		cfg.LLM.DefaultProvider = "anthropic"
	}

	if cfg.Approval.RequestTTL == 0 {
		cfg.Approval.RequestTTL = 5 * time.Minute
	}

	if cfg.Executor.MaxConcurrency == 0 {
		cfg.Executor.MaxConcurrency = 3
	}
	if cfg.Executor.WatchdogInterval == 0 {
		cfg.Executor.WatchdogInterval = 10 * time.Second
	}
	if cfg.Executor.StallThreshold == 0 {
		cfg.Executor.StallThreshold = 60 * time.Second
	}

	if cfg.Bridge.PollInterval == 0 {
		cfg.Bridge.PollInterval = 15 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// ConfigValidationError reports a single invalid field.
type ConfigValidationError struct {
	Field   string
	Message string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func validateConfig(cfg *Config) error {
	if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok && len(cfg.LLM.Providers) > 0 {
		return &ConfigValidationError{Field: "llm.default_provider", Message: fmt.Sprintf("no provider config for %q", cfg.LLM.DefaultProvider)}
	}
	if cfg.Executor.MaxConcurrency < 1 {
		return &ConfigValidationError{Field: "executor.max_concurrency", Message: "must be at least 1"}
	}
	for _, job := range cfg.Schedule.Jobs {
		if strings.TrimSpace(job.Cron) == "" {
			return &ConfigValidationError{Field: "schedule.jobs", Message: fmt.Sprintf("job %q missing cron expression", job.ID)}
		}
		if strings.TrimSpace(job.Prompt) == "" {
			return &ConfigValidationError{Field: "schedule.jobs", Message: fmt.Sprintf("job %q missing prompt", job.ID)}
		}
	}
	return nil
}
