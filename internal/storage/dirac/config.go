package dirac

import (
	"time"

	"github.com/diracstore/diracstore/pkg/errors"
)

// Config represents command client configuration.
type Config struct {
	// Retry is the default retry budget: a command is attempted at most
	// Retry+1 times.
	Retry int `yaml:"retry"`

	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// CommandTimeout bounds a single attempt. Zero leaves the process on
	// OS defaults, matching the historical behavior of the tools.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// NewDefaultConfig returns the default client configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Retry:      2,
		RetryDelay: 1 * time.Second,
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Retry < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "retry count must be non-negative, got %d", c.Retry)
	}
	if c.RetryDelay < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "retry delay must be non-negative, got %v", c.RetryDelay)
	}
	if c.CommandTimeout < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfig, "command timeout must be non-negative, got %v", c.CommandTimeout)
	}
	return nil
}
