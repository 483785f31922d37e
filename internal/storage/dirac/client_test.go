package dirac

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diracstore/diracstore/internal/circuit"
	"github.com/diracstore/diracstore/pkg/errors"
)

// fakeRunner scripts the results of successive command attempts.
type fakeRunner struct {
	calls   int
	argv    [][]string
	results []fakeResult
}

type fakeResult struct {
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.argv = append(f.argv, append([]string{name}, args...))
	var res fakeResult
	if f.calls < len(f.results) {
		res = f.results[f.calls]
	} else if len(f.results) > 0 {
		res = f.results[len(f.results)-1]
	}
	f.calls++
	return []byte(res.stdout), []byte(res.stderr), res.err
}

func newTestClient(t *testing.T, toolchain Toolchain, retryCount int, runner Runner) *Client {
	t.Helper()
	cfg := &Config{Retry: retryCount, RetryDelay: time.Millisecond}
	client, err := NewClient(toolchain, cfg, zerolog.Nop(), WithRunner(runner))
	require.NoError(t, err)
	return client
}

func TestClient_SuccessFirstAttempt(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{{stdout: "ok\n"}}}
	client := newTestClient(t, Toolchain{}, 2, runner)

	out, err := client.Run(context.Background(), ToolMetadata, []string{"/grid/f"}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, 1, runner.calls)
}

func TestClient_AttemptsEqualRetryPlusOne(t *testing.T) {
	for _, retryCount := range []int{0, 1, 2, 4} {
		t.Run(fmt.Sprintf("retry=%d", retryCount), func(t *testing.T) {
			runner := &fakeRunner{results: []fakeResult{
				{stderr: "boom", err: fmt.Errorf("exit status 1")},
			}}
			client := newTestClient(t, Toolchain{}, retryCount, runner)

			_, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
			require.Error(t, err)
			assert.Equal(t, retryCount+1, runner.calls)
		})
	}
}

func TestClient_SuccessOnAttemptK(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{stderr: "transient", err: fmt.Errorf("exit status 1")},
		{stderr: "transient", err: fmt.Errorf("exit status 1")},
		{stdout: "third time lucky\n"},
	}}
	client := newTestClient(t, Toolchain{}, 4, runner)

	out, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, "third time lucky\n", out)
	assert.Equal(t, 3, runner.calls)
}

func TestClient_RetryOverride(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: fmt.Errorf("exit status 1")},
	}}
	client := newTestClient(t, Toolchain{}, 5, runner)

	override := 1
	_, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{Retry: &override})
	require.Error(t, err)
	assert.Equal(t, 2, runner.calls)
}

func TestClient_WrappedFailureCarriesStderr(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{stderr: "Proxy not found\n", err: fmt.Errorf("exit status 2")},
	}}
	client := newTestClient(t, Toolchain{}, 0, runner)

	_, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeCommandFailed, storageErr.Code)
	assert.Equal(t, ToolMetadata, storageErr.Tool)
	assert.Contains(t, storageErr.Output, "Proxy not found")
	assert.Contains(t, err.Error(), "COMMAND_FAILED")
}

func TestClient_RawErrorMode(t *testing.T) {
	cause := fmt.Errorf("exit status 2")
	runner := &fakeRunner{results: []fakeResult{
		{stderr: "Proxy not found\n", err: cause},
	}}
	client := newTestClient(t, Toolchain{}, 0, runner)

	_, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{RawError: true})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, stderrors.As(err, &exitErr))
	assert.Equal(t, ToolMetadata, exitErr.Tool)
	assert.Equal(t, "Proxy not found\n", exitErr.Stderr)
	assert.True(t, stderrors.Is(err, cause))

	var storageErr *errors.StorageError
	assert.False(t, stderrors.As(err, &storageErr), "raw mode must not wrap")
}

func TestClient_WrapperPrependedToCommandLine(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{{stdout: "ok"}}}
	client := newTestClient(t, Toolchain{Wrapper: EnvWrapper}, 0, runner)

	_, err := client.Run(context.Background(), ToolGetFile, []string{"-D", "/tmp", "/grid/f"}, RunOptions{})
	require.NoError(t, err)

	require.Len(t, runner.argv, 1)
	assert.Equal(t, []string{EnvWrapper, ToolGetFile, "-D", "/tmp", "/grid/f"}, runner.argv[0])
}

func TestClient_ContextCancellation(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: fmt.Errorf("exit status 1")},
	}}
	cfg := &Config{Retry: 10, RetryDelay: 50 * time.Millisecond}
	client, err := NewClient(Toolchain{}, cfg, zerolog.Nop(), WithRunner(runner))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	_, err = client.Run(ctx, ToolMetadata, nil, RunOptions{})
	require.Error(t, err)
	assert.Less(t, runner.calls, 11)
}

func TestClient_InvalidConfigRejected(t *testing.T) {
	_, err := NewClient(Toolchain{}, &Config{Retry: -1}, zerolog.Nop())
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeInvalidConfig, storageErr.Code)
}

func TestClient_MetricsTrackInvocationsAndRetries(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{err: fmt.Errorf("exit status 1")},
		{stdout: "ok"},
	}}
	client := newTestClient(t, Toolchain{}, 2, runner)

	_, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
	require.NoError(t, err)

	m := client.Metrics()
	assert.Equal(t, int64(1), m.Invocations)
	assert.Equal(t, int64(1), m.Retries)
	assert.Equal(t, int64(0), m.Failures)
	assert.Equal(t, int64(1), m.PerTool[ToolMetadata])
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())
	assert.Error(t, (&Config{Retry: -1}).Validate())
	assert.Error(t, (&Config{RetryDelay: -time.Second}).Validate())
	assert.Error(t, (&Config{CommandTimeout: -time.Second}).Validate())
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, 2, cfg.Retry)
	assert.Equal(t, 1*time.Second, cfg.RetryDelay)
	assert.Equal(t, time.Duration(0), cfg.CommandTimeout)
}

func TestClient_BreakerOpensAfterRepeatedProcessFailures(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{stderr: "proxy expired", err: fmt.Errorf("exit status 1")},
	}}
	cfg := &Config{Retry: 0, RetryDelay: time.Millisecond}
	client, err := NewClient(Toolchain{}, cfg, zerolog.Nop(),
		WithRunner(runner),
		WithBreakerConfig(circuit.Config{
			ReadyToTrip: func(counts circuit.Counts) bool {
				return counts.ConsecutiveFailures >= 2
			},
		}))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
		require.Error(t, err)
	}
	spawned := runner.calls

	_, err = client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
	require.Error(t, err)

	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeCircuitOpen, storageErr.Code)
	assert.Equal(t, spawned, runner.calls, "an open breaker must not spawn the tool")
}

func TestClient_BreakerIsPerTool(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{stderr: "proxy expired", err: fmt.Errorf("exit status 1")},
	}}
	cfg := &Config{Retry: 0, RetryDelay: time.Millisecond}
	client, err := NewClient(Toolchain{}, cfg, zerolog.Nop(),
		WithRunner(runner),
		WithBreakerConfig(circuit.Config{
			ReadyToTrip: func(counts circuit.Counts) bool {
				return counts.ConsecutiveFailures >= 1
			},
		}))
	require.NoError(t, err)

	_, err = client.Run(context.Background(), ToolGetFile, nil, RunOptions{})
	require.Error(t, err)

	// get-file is now disabled, the metadata tool is not.
	_, err = client.Run(context.Background(), ToolGetFile, nil, RunOptions{})
	var storageErr *errors.StorageError
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeCircuitOpen, storageErr.Code)

	_, err = client.Run(context.Background(), ToolMetadata, nil, RunOptions{})
	require.True(t, stderrors.As(err, &storageErr))
	assert.Equal(t, errors.ErrCodeCommandFailed, storageErr.Code)
}
