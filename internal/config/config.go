// Package config provides configuration loading for gamesmith.
//
// Values are layered: built-in defaults, the YAML config file, a .env file,
// environment variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MaxAttempts caps the corrective retry budget of the planner and builder.
const MaxAttempts = 5

// Config holds the complete gamesmith configuration.
type Config struct {
	LLM       LLMConfig       `koanf:"llm"`
	Planner   PhaseConfig     `koanf:"planner"`
	Builder   PhaseConfig     `koanf:"builder"`
	Output    OutputConfig    `koanf:"output"`
	Prompts   PromptsConfig   `koanf:"prompts"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	BaseURL           string   `koanf:"base_url"`
	APIKey            Secret   `koanf:"api_key"`
	Model             string   `koanf:"model"`
	Timeout           Duration `koanf:"timeout"`
	RequestsPerMinute float64  `koanf:"requests_per_minute"` // 0 disables pacing
	ScrubSecrets      bool     `koanf:"scrub_secrets"`

	ClarifierTemperature float64 `koanf:"clarifier_temperature"`
	PlannerTemperature   float64 `koanf:"planner_temperature"`
	BuilderTemperature   float64 `koanf:"builder_temperature"`
	BuilderMaxTokens     int     `koanf:"builder_max_tokens"`
}

// PhaseConfig holds per-phase retry settings.
type PhaseConfig struct {
	MaxAttempts int `koanf:"max_attempts"`
}

// OutputConfig controls where generated files land.
type OutputConfig struct {
	Dir         string `koanf:"dir"`
	GitSnapshot bool   `koanf:"git_snapshot"`
}

// PromptsConfig points at an optional TOML prompt pack override.
type PromptsConfig struct {
	File string `koanf:"file"`
}

// LoggingConfig holds the user-facing logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Stream string `koanf:"stream"`
}

// TelemetryConfig holds the user-facing OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled    bool    `koanf:"enabled"`
	Endpoint   string  `koanf:"endpoint"`
	Protocol   string  `koanf:"protocol"`
	Insecure   bool    `koanf:"insecure"`
	SampleRate float64 `koanf:"sample_rate"`
}

// ErrModelNotConfigured is returned by Validate when no model is named.
var ErrModelNotConfigured = errors.New("no model configured: set LLM_MODEL in your environment or .env file, or pass --model")

// defaults are loaded into koanf before any other source.
func defaults() map[string]any {
	return map[string]any{
		"llm.base_url":              "http://localhost:11434/v1",
		"llm.api_key":               "ollama",
		"llm.timeout":               "5m",
		"llm.requests_per_minute":   0.0,
		"llm.scrub_secrets":         true,
		"llm.clarifier_temperature": 0.7,
		"llm.planner_temperature":   0.4,
		"llm.builder_temperature":   0.3,
		"llm.builder_max_tokens":    4096,
		"planner.max_attempts":      1,
		"builder.max_attempts":      1,
		"output.dir":                "output",
		"output.git_snapshot":       false,
		"logging.level":             "warn",
		"logging.format":            "console",
		"logging.stream":            "stderr",
		"telemetry.enabled":         false,
		"telemetry.endpoint":        "localhost:4317",
		"telemetry.protocol":        "grpc",
		"telemetry.insecure":        true,
		"telemetry.sample_rate":     1.0,
	}
}

// Validate checks the configuration needed to run the pipeline.
func (c *Config) Validate() error {
	if err := c.validateSettings(); err != nil {
		return err
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return ErrModelNotConfigured
	}
	return nil
}

// validateSettings checks everything except the model, which commands
// like "models" and "prompts" do not need.
func (c *Config) validateSettings() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	u, err := url.ParseRequestURI(c.LLM.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL)
	}
	if c.LLM.Timeout.Duration() <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.LLM.Timeout.Duration() > time.Hour {
		return fmt.Errorf("llm.timeout must be at most 1h, got %s", c.LLM.Timeout.Duration())
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute cannot be negative")
	}
	for name, t := range map[string]float64{
		"clarifier_temperature": c.LLM.ClarifierTemperature,
		"planner_temperature":   c.LLM.PlannerTemperature,
		"builder_temperature":   c.LLM.BuilderTemperature,
	} {
		if t < 0 || t > 2 {
			return fmt.Errorf("llm.%s must be between 0 and 2, got %v", name, t)
		}
	}
	if c.LLM.BuilderMaxTokens < 0 {
		return fmt.Errorf("llm.builder_max_tokens cannot be negative")
	}
	if err := validateAttempts("planner", c.Planner.MaxAttempts); err != nil {
		return err
	}
	if err := validateAttempts("builder", c.Builder.MaxAttempts); err != nil {
		return err
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Telemetry.Enabled {
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry.protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %v", c.Telemetry.SampleRate)
		}
	}
	return nil
}

func validateAttempts(section string, n int) error {
	if n < 1 || n > MaxAttempts {
		return fmt.Errorf("%s.max_attempts must be between 1 and %d, got %d", section, MaxAttempts, n)
	}
	return nil
}
