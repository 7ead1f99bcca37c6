package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// sections lists the top-level keys environment variables may target.
var sections = map[string]bool{
	"llm":       true,
	"planner":   true,
	"builder":   true,
	"output":    true,
	"prompts":   true,
	"logging":   true,
	"telemetry": true,
}

// LoadOptions controls where Load looks for configuration.
type LoadOptions struct {
	// ConfigPath is the YAML file to read. Empty means
	// ~/.config/gamesmith/config.yaml; a missing default file is not an error.
	ConfigPath string

	// EnvFile is the dotenv file to read. Empty means ".env" in the working
	// directory; a missing file is not an error.
	EnvFile string

	// Overrides are applied last, keyed by koanf path ("llm.model").
	Overrides map[string]any
}

// Load builds the configuration.
//
// Precedence (highest to lowest):
//  1. Overrides (command-line flags)
//  2. Environment variables (LLM_MODEL, OUTPUT_DIR, ...)
//  3. .env file, which never replaces variables already set
//  4. YAML config file
//  5. Defaults
//
// Environment variables map SECTION_FIELD to section.field for the known
// sections, so LLM_BASE_URL sets llm.base_url. OLLAMA_BASE_URL and
// OLLAMA_API_KEY are accepted as aliases for the llm settings.
//
// Load checks every setting except the model; call Validate before running
// the pipeline.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	if err := loadFile(k, opts.ConfigPath); err != nil {
		return nil, err
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	if err := k.Load(env.Provider("OLLAMA_", ".", ollamaAlias), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, val := range opts.Overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("failed to apply override %s: %w", key, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validateSettings(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SECTION_FIELD to section.field. Variables outside the known
// sections are skipped.
func envKey(s string) string {
	parts := strings.SplitN(strings.ToLower(s), "_", 2)
	if len(parts) != 2 || !sections[parts[0]] || parts[1] == "" {
		return ""
	}
	return parts[0] + "." + parts[1]
}

// ollamaAlias maps the Ollama-flavoured variable names onto llm settings.
func ollamaAlias(s string) string {
	switch s {
	case "OLLAMA_BASE_URL":
		return "llm.base_url"
	case "OLLAMA_API_KEY":
		return "llm.api_key"
	}
	return ""
}

// DefaultConfigPath returns ~/.config/gamesmith/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gamesmith", "config.yaml"), nil
}

// loadFile merges the YAML config file into k. An explicitly named file
// must exist.
func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return err
		}
	}

	// Open once and validate the descriptor to avoid a TOCTOU race.
	f, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return fmt.Errorf("config file too large (max %d bytes)", maxConfigFileSize)
	}

	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// validateConfigFileProperties rejects directories, oversized files and
// files writable by group or others.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", info.Name())
	}

	// Windows has a different permission model.
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
