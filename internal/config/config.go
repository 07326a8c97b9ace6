// Package config loads and validates the project configuration for the
// ws compiler. Settings come from wsc.yaml with WSC_* environment
// variables layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by the CLI.
const FileName = "wsc.yaml"

// Config holds all settings for a build.
type Config struct {
	// OutDir is where compiled JavaScript modules are written.
	OutDir string `yaml:"out_dir" env:"WSC_OUT_DIR"`

	// Entry is the module compiled first, relative to the project root.
	Entry string `yaml:"entry" env:"WSC_ENTRY"`

	// Minify strips whitespace and renames locals in the output.
	Minify bool `yaml:"minify" env:"WSC_MINIFY"`

	// CacheEnabled turns the on-disk artifact cache on or off.
	CacheEnabled bool `yaml:"cache_enabled" env:"WSC_CACHE_ENABLED"`

	// CacheMaxEntries bounds the artifact cache.
	CacheMaxEntries int `yaml:"cache_max_entries" env:"WSC_CACHE_MAX_ENTRIES"`

	// Logging
	LogLevel string `yaml:"log_level" env:"WSC_LOG_LEVEL"`
	LogJSON  bool   `yaml:"log_json" env:"WSC_LOG_JSON"`

	// WatchIntervalMS is how often watch polls for changed sources.
	WatchIntervalMS int `yaml:"watch_interval_ms" env:"WSC_WATCH_INTERVAL_MS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutDir:          "dist",
		Entry:           "main.ws",
		Minify:          false,
		CacheEnabled:    true,
		CacheMaxEntries: 512,
		LogLevel:        "info",
		LogJSON:         false,
		WatchIntervalMS: 250,
	}
}

// Load reads the configuration for the project rooted at dir. A missing
// wsc.yaml is not an error; defaults and environment overrides still
// apply.
func Load(dir string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(dir, FileName)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads the configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the given YAML file path, creating
// parent directories when needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// FindProjectConfig walks up from start looking for a wsc.yaml and
// returns its path. It returns an empty string when no config file
// exists between start and the filesystem root.
func FindProjectConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// applyEnvOverrides applies WSC_* environment variables to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WSC_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("WSC_ENTRY"); v != "" {
		cfg.Entry = v
	}
	if v := os.Getenv("WSC_MINIFY"); v != "" {
		cfg.Minify = parseBool(v)
	}
	if v := os.Getenv("WSC_CACHE_ENABLED"); v != "" {
		cfg.CacheEnabled = parseBool(v)
	}
	if v := os.Getenv("WSC_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxEntries = n
		}
	}
	if v := os.Getenv("WSC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WSC_LOG_JSON"); v != "" {
		cfg.LogJSON = parseBool(v)
	}
	if v := os.Getenv("WSC_WATCH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.WatchIntervalMS = n
		}
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	if c.OutDir == "" {
		return fmt.Errorf("out_dir must not be empty")
	}
	if c.Entry == "" {
		return fmt.Errorf("entry must not be empty")
	}
	if !strings.HasSuffix(c.Entry, ".ws") {
		return fmt.Errorf("entry must name a .ws module, got %q", c.Entry)
	}
	if c.CacheMaxEntries <= 0 {
		return fmt.Errorf("cache_max_entries must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level: %s (must be 'debug', 'info', 'warn' or 'error')", c.LogLevel)
	}
	if c.WatchIntervalMS <= 0 {
		return fmt.Errorf("watch_interval_ms must be positive")
	}
	return nil
}

func parseBool(v string) bool {
	return v == "true" || v == "1" || v == "yes"
}
