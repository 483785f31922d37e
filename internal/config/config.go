package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete application configuration
type Configuration struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig represents grid-storage adapter settings
type StorageConfig struct {
	// StorageElement is the default upload target within the federation.
	StorageElement string `yaml:"storage_element"`

	// Retry is the per-command retry budget (attempts = retry + 1).
	Retry int `yaml:"retry"`

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// CommandTimeout bounds a single command attempt; zero leaves the
	// process on OS defaults.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// Wrapper overrides toolchain detection when set, forcing a specific
	// environment-activation program.
	Wrapper string `yaml:"wrapper"`

	// MetadataCacheTTL enables caching of catalog metadata replies for
	// the given lifetime. Zero disables caching.
	MetadataCacheTTL time.Duration `yaml:"metadata_cache_ttl"`

	// Pass-through workflow-engine flags.
	KeepLocal    bool `yaml:"keep_local"`
	StayOnRemote bool `yaml:"stay_on_remote"`
	IsDefault    bool `yaml:"is_default"`
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// MetricsConfig represents metrics settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults
func NewDefault() *Configuration {
	return &Configuration{
		Storage: StorageConfig{
			StorageElement: "CERN-USER",
			Retry:          2,
			RetryDelay:     1 * time.Second,
			CommandTimeout: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Port:      9090,
			Path:      "/metrics",
			Namespace: "diracstore",
		},
	}
}

// LoadFromFile loads configuration from a YAML file
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("DIRACSTORE_STORAGE_ELEMENT"); val != "" {
		c.Storage.StorageElement = val
	}
	if val := os.Getenv("DIRACSTORE_RETRY"); val != "" {
		if retry, err := strconv.Atoi(val); err == nil {
			c.Storage.Retry = retry
		}
	}
	if val := os.Getenv("DIRACSTORE_RETRY_DELAY"); val != "" {
		if delay, err := time.ParseDuration(val); err == nil {
			c.Storage.RetryDelay = delay
		}
	}
	if val := os.Getenv("DIRACSTORE_COMMAND_TIMEOUT"); val != "" {
		if timeout, err := time.ParseDuration(val); err == nil {
			c.Storage.CommandTimeout = timeout
		}
	}
	if val := os.Getenv("DIRACSTORE_WRAPPER"); val != "" {
		c.Storage.Wrapper = val
	}
	if val := os.Getenv("DIRACSTORE_METADATA_CACHE_TTL"); val != "" {
		if ttl, err := time.ParseDuration(val); err == nil {
			c.Storage.MetadataCacheTTL = ttl
		}
	}
	if val := os.Getenv("DIRACSTORE_KEEP_LOCAL"); val != "" {
		c.Storage.KeepLocal = strings.ToLower(val) == "true"
	}

	if val := os.Getenv("DIRACSTORE_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("DIRACSTORE_LOG_FORMAT"); val != "" {
		c.Logging.Format = val
	}

	if val := os.Getenv("DIRACSTORE_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("DIRACSTORE_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Metrics.Port = port
		}
	}

	return nil
}

// SaveToFile saves the configuration to a YAML file
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks configuration invariants
func (c *Configuration) Validate() error {
	if c.Storage.StorageElement == "" {
		return fmt.Errorf("storage element must not be empty")
	}
	if c.Storage.Retry < 0 {
		return fmt.Errorf("retry count must be non-negative, got %d", c.Storage.Retry)
	}
	if c.Storage.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be non-negative, got %v", c.Storage.RetryDelay)
	}
	if c.Storage.CommandTimeout < 0 {
		return fmt.Errorf("command timeout must be non-negative, got %v", c.Storage.CommandTimeout)
	}
	if c.Storage.MetadataCacheTTL < 0 {
		return fmt.Errorf("metadata cache TTL must be non-negative, got %v", c.Storage.MetadataCacheTTL)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "console", "json", "":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("metrics port must be in (0, 65535], got %d", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /, got %q", c.Metrics.Path)
		}
	}

	return nil
}

// Load builds the effective configuration: defaults, then the optional
// file, then environment overrides, then validation.
func Load(filename string) (*Configuration, error) {
	cfg := NewDefault()

	if filename != "" {
		if err := cfg.LoadFromFile(filename); err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
