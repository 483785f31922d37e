// Package retry provides bounded retry logic with a fixed delay for external command invocations.
package retry

import (
	"context"
	stderr "errors"
	"fmt"
	"time"

	"github.com/diracstore/diracstore/pkg/errors"
)

// Config defines retry behavior configuration
type Config struct {
	// MaxAttempts is the maximum number of attempts (including the initial attempt)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// Delay is the fixed wait between attempts. Grid commands are
	// retried sequentially with a constant pause, not exponentially.
	Delay time.Duration `yaml:"delay" json:"delay"`

	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-" json:"-"`
}

// DefaultConfig returns the default retry configuration: two retries
// after the initial attempt, one second apart.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       1 * time.Second,
	}
}

// Retryer handles retry logic with a fixed delay between attempts
type Retryer struct {
	config Config
}

// New creates a new Retryer with the given configuration
func New(config Config) *Retryer {
	// Apply defaults for zero values
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Delay <= 0 {
		config.Delay = 1 * time.Second
	}

	return &Retryer{config: config}
}

// ForRetryCount creates a Retryer for a non-negative retry budget:
// attempts never exceed retries+1.
func ForRetryCount(retries int, delay time.Duration) *Retryer {
	if retries < 0 {
		retries = 0
	}
	return New(Config{MaxAttempts: retries + 1, Delay: delay})
}

// MaxAttempts returns the configured attempt ceiling.
func (r *Retryer) MaxAttempts() int {
	return r.config.MaxAttempts
}

// Do executes the given function with retry logic
func (r *Retryer) Do(fn func() error) error {
	return r.DoWithContext(context.Background(), func(ctx context.Context) error {
		return fn()
	})
}

// DoWithContext executes the given function with retry logic and context support
func (r *Retryer) DoWithContext(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !retryable(err) {
			return err
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, r.config.Delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled after %d attempts: %w", attempt, ctx.Err())
		case <-time.After(r.config.Delay):
		}
	}

	return errors.Newf(errors.ErrCodeRetryExhausted,
		"max attempts (%d) exceeded", r.config.MaxAttempts).WithCause(lastErr)
}

// retryable reports whether an error may be attempted again.
func retryable(err error) bool {
	var storageErr *errors.StorageError
	if stderr.As(err, &storageErr) {
		return storageErr.Retryable
	}

	// Unstructured errors come straight from process execution and are
	// treated as transient.
	return true
}

// WithMaxAttempts returns a new Retryer with modified max attempts
func (r *Retryer) WithMaxAttempts(attempts int) *Retryer {
	newConfig := r.config
	newConfig.MaxAttempts = attempts
	return New(newConfig)
}

// WithDelay returns a new Retryer with a modified fixed delay
func (r *Retryer) WithDelay(delay time.Duration) *Retryer {
	newConfig := r.config
	newConfig.Delay = delay
	return New(newConfig)
}

// WithOnRetry returns a new Retryer with a retry callback
func (r *Retryer) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Retryer {
	newConfig := r.config
	newConfig.OnRetry = callback
	return New(newConfig)
}
