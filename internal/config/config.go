package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the chart output format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatDOT     Format = "dot"
	FormatSVG     Format = "svg"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatMermaid, FormatDOT, FormatSVG}
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, known := range Formats() {
		if f == known {
			return true
		}
	}
	return false
}

// Config holds all configuration for cfc
type Config struct {
	// Callee names rendered as output and input nodes
	OutputRoutines []string `yaml:"output_routines" env:"CFC_OUTPUT_ROUTINES"`
	InputRoutines  []string `yaml:"input_routines" env:"CFC_INPUT_ROUTINES"`

	// Strict fails on constructs the generator cannot render
	Strict bool `yaml:"strict" env:"CFC_STRICT"`

	// Format is the default output format
	Format Format `yaml:"format" env:"CFC_FORMAT"`

	// Chart cache
	CacheEnabled    bool   `yaml:"cache_enabled" env:"CFC_CACHE_ENABLED"`
	CacheDir        string `yaml:"cache_dir" env:"CFC_CACHE_DIR"`
	CacheMaxEntries int    `yaml:"cache_max_entries" env:"CFC_CACHE_MAX_ENTRIES"`

	// Logging
	Verbose bool `yaml:"verbose" env:"CFC_VERBOSE"`
	LogJSON bool `yaml:"log_json" env:"CFC_LOG_JSON"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputRoutines:  []string{"printf", "puts"},
		InputRoutines:   []string{"scanf"},
		Strict:          false,
		Format:          FormatMermaid,
		CacheEnabled:    true,
		CacheDir:        defaultCacheDir(),
		CacheMaxEntries: 256,
		Verbose:         false,
		LogJSON:         false,
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cfc", "cache")
	}
	return filepath.Join(home, ".cfc", "cache")
}

// GlobalConfigPath returns the global config file path (~/.cfc/config.yaml)
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cfc/config.yaml"
	}
	return filepath.Join(home, ".cfc", "config.yaml")
}

// ProjectConfigPath returns the project-level config file path (./.cfc/config.yaml)
func ProjectConfigPath() string {
	return ".cfc/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.cfc/config.yaml)
// 3. Global config (~/.cfc/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	cfg.CacheDir = ExpandHome(cfg.CacheDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CFC_OUTPUT_ROUTINES"); v != "" {
		cfg.OutputRoutines = parseList(v)
	}
	if v := os.Getenv("CFC_INPUT_ROUTINES"); v != "" {
		cfg.InputRoutines = parseList(v)
	}
	if v := os.Getenv("CFC_STRICT"); v != "" {
		cfg.Strict = parseBool(v)
	}
	if v := os.Getenv("CFC_FORMAT"); v != "" {
		cfg.Format = Format(strings.ToLower(v))
	}
	if v := os.Getenv("CFC_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("CFC_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("CFC_CACHE_MAX_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxEntries = i
		}
	}
	if v := os.Getenv("CFC_VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := os.Getenv("CFC_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	if len(c.OutputRoutines) == 0 {
		return fmt.Errorf("output_routines must not be empty")
	}
	if len(c.InputRoutines) == 0 {
		return fmt.Errorf("input_routines must not be empty")
	}

	outputs := make(map[string]bool, len(c.OutputRoutines))
	for _, name := range c.OutputRoutines {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("output_routines contains an empty name")
		}
		outputs[name] = true
	}
	for _, name := range c.InputRoutines {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("input_routines contains an empty name")
		}
		if outputs[name] {
			return fmt.Errorf("routine %q is listed as both output and input", name)
		}
	}

	if !c.Format.Valid() {
		return fmt.Errorf("invalid format: %s (must be 'mermaid', 'dot' or 'svg')", c.Format)
	}

	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}
	if c.CacheEnabled && c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required when cache_enabled is true")
	}

	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// parseList splits a comma separated list, dropping blanks
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
