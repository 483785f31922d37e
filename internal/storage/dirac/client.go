package dirac

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/diracstore/diracstore/internal/circuit"
	"github.com/diracstore/diracstore/pkg/errors"
	"github.com/diracstore/diracstore/pkg/retry"
)

// Runner executes one external command attempt and returns captured
// stdout and stderr. The default implementation uses os/exec; tests
// substitute fakes.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner runs commands synchronously via os/exec.
type execRunner struct {
	timeout time.Duration
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// ExitError is the raw process-failure signal: the last attempt's exec
// error plus its captured stderr, propagated unwrapped when the caller
// asked for RawError mode.
type ExitError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// RunOptions adjusts a single Run call.
type RunOptions struct {
	// Retry overrides the client's configured retry budget when non-nil.
	Retry *int

	// RawError propagates the process failure as an *ExitError instead of
	// wrapping it in a COMMAND_FAILED storage error. Used by callers that
	// attach operation context at the call site.
	RawError bool
}

// Observer receives invocation events, e.g. for export to Prometheus.
type Observer interface {
	RecordInvocation(tool string, duration time.Duration, err error)
	RecordRetry(tool string)
}

// Client is the sole execution path for all DIRAC tool invocations. It
// centralizes retry, backoff, output capture and error-wrapping policy so
// callers only interpret output text.
type Client struct {
	toolchain Toolchain
	config    *Config
	runner    Runner
	logger    zerolog.Logger
	metrics   *MetricsCollector
	observer  Observer
	breakers  *circuit.Manager
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithRunner substitutes the command execution primitive.
func WithRunner(r Runner) ClientOption {
	return func(c *Client) { c.runner = r }
}

// WithObserver attaches an invocation observer.
func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

// WithBreakerConfig overrides the per-tool circuit breaker settings.
func WithBreakerConfig(cfg circuit.Config) ClientOption {
	return func(c *Client) { c.breakers = circuit.NewManager(cfg) }
}

// NewClient creates a command client for the detected toolchain.
func NewClient(toolchain Toolchain, cfg *Config, logger zerolog.Logger, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		toolchain: toolchain,
		config:    cfg,
		runner:    execRunner{timeout: cfg.CommandTimeout},
		logger:    logger.With().Str("component", "dirac-client").Logger(),
		metrics:   NewMetricsCollector(),
	}
	c.breakers = circuit.NewManager(circuit.Config{
		OnStateChange: func(name string, from, to circuit.State) {
			c.logger.Warn().
				Str("tool", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Toolchain returns the toolchain this client executes against.
func (c *Client) Toolchain() Toolchain {
	return c.toolchain
}

// Metrics returns a snapshot of the client's invocation metrics.
func (c *Client) Metrics() ClientMetrics {
	return c.metrics.GetMetrics()
}

// Run executes a tool with the configured retry policy and returns its
// decoded standard output. A zero exit on any attempt returns
// immediately; a non-zero exit on the final attempt surfaces either a
// wrapped COMMAND_FAILED error carrying the captured stderr or, in
// RawError mode, the raw *ExitError.
func (c *Client) Run(ctx context.Context, tool string, args []string, opts RunOptions) (string, error) {
	budget := c.config.Retry
	if opts.Retry != nil {
		budget = *opts.Retry
	}

	name, argv := c.toolchain.CommandLine(tool, args)

	breaker := c.breakers.Get(tool)
	if berr := breaker.Allow(); berr != nil {
		return "", errors.Newf(errors.ErrCodeCircuitOpen, "%s temporarily disabled after repeated process failures", tool).
			WithTool(tool).
			WithCause(berr).
			WithRetryable(false)
	}

	retryer := retry.ForRetryCount(budget, c.config.RetryDelay).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.metrics.RecordRetry()
			if c.observer != nil {
				c.observer.RecordRetry(tool)
			}
			c.logger.Debug().
				Str("tool", tool).
				Int("attempt", attempt).
				Dur("delay", delay).
				Err(err).
				Msg("command failed, retrying")
		})

	var (
		output     string
		lastStderr string
		lastErr    error
	)

	start := time.Now()
	err := retryer.DoWithContext(ctx, func(ctx context.Context) error {
		c.logger.Debug().Str("cmd", name+" "+strings.Join(argv, " ")).Msg("running command")

		stdout, stderr, runErr := c.runner.Run(ctx, name, argv...)
		if runErr != nil {
			lastStderr = string(stderr)
			lastErr = runErr
			return runErr
		}
		output = string(stdout)
		return nil
	})
	elapsed := time.Since(start)
	// A cancelled caller says nothing about tool health, so it is not
	// fed back into the breaker.
	if !stderrors.Is(err, context.Canceled) {
		breaker.Record(err)
	}
	c.metrics.RecordInvocation(tool, elapsed, err != nil)
	if c.observer != nil {
		c.observer.RecordInvocation(tool, elapsed, err)
	}

	if err != nil {
		c.metrics.RecordError(err)
		if lastErr == nil {
			// Cancellation before any attempt ran.
			lastErr = err
		}
		if opts.RawError {
			return "", &ExitError{Tool: tool, Stderr: lastStderr, Err: lastErr}
		}
		return "", errors.Newf(errors.ErrCodeCommandFailed, "error calling %s:\n%s", tool, lastStderr).
			WithTool(tool).
			WithOutput(lastStderr).
			WithCause(lastErr).
			WithRetryable(false)
	}

	return output, nil
}
