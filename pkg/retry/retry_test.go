package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/diracstore/diracstore/pkg/errors"
)

func TestRetryer_Success(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		return nil // Success on first attempt
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryer_SuccessAfterFailures(t *testing.T) {
	config := Config{MaxAttempts: 4, Delay: 5 * time.Millisecond}
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("exit status 1")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryer_NonRetryableError(t *testing.T) {
	retryer := New(Config{MaxAttempts: 3, Delay: 5 * time.Millisecond})

	attempts := 0
	testErr := errors.NewError(errors.ErrCodeFieldNotFound, "field missing")

	err := retryer.Do(func() error {
		attempts++
		return testErr
	})

	if !stderrors.Is(err, testErr) {
		t.Errorf("Expected the original error back, got %v", err)
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry), got %d", attempts)
	}
}

func TestRetryer_ExhaustionAttemptCounts(t *testing.T) {
	// For all retry budgets R >= 0, a command failing every attempt must
	// run exactly R+1 times.
	for _, retries := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("retries=%d", retries), func(t *testing.T) {
			retryer := ForRetryCount(retries, time.Millisecond)

			attempts := 0
			err := retryer.Do(func() error {
				attempts++
				return fmt.Errorf("exit status 1")
			})

			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if attempts != retries+1 {
				t.Errorf("Expected %d attempts, got %d", retries+1, attempts)
			}

			var storageErr *errors.StorageError
			if !stderrors.As(err, &storageErr) || storageErr.Code != errors.ErrCodeRetryExhausted {
				t.Errorf("Expected RETRY_EXHAUSTED, got %v", err)
			}
		})
	}
}

func TestRetryer_SucceedsOnAttemptK(t *testing.T) {
	for _, k := range []int{1, 2, 3} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			retryer := ForRetryCount(2, time.Millisecond)

			attempts := 0
			err := retryer.Do(func() error {
				attempts++
				if attempts < k {
					return fmt.Errorf("exit status 1")
				}
				return nil
			})

			if err != nil {
				t.Errorf("Expected nil error, got %v", err)
			}
			if attempts != k {
				t.Errorf("Expected %d attempts, got %d", k, attempts)
			}
		})
	}
}

func TestRetryer_ContextCancellation(t *testing.T) {
	retryer := New(Config{MaxAttempts: 10, Delay: 100 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := retryer.DoWithContext(ctx, func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("exit status 1")
	})

	if err == nil {
		t.Error("Expected error, got nil")
	}

	if attempts >= 10 {
		t.Errorf("Expected fewer than 10 attempts due to cancellation, got %d", attempts)
	}
}

func TestRetryer_FixedDelay(t *testing.T) {
	delays := []time.Duration{}
	config := Config{
		MaxAttempts: 4,
		Delay:       20 * time.Millisecond,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			delays = append(delays, delay)
		},
	}
	retryer := New(config)

	_ = retryer.Do(func() error {
		return fmt.Errorf("exit status 1")
	})

	if len(delays) != 3 {
		t.Fatalf("Expected 3 retry callbacks, got %d", len(delays))
	}
	for i, d := range delays {
		if d != 20*time.Millisecond {
			t.Errorf("Delay %d: expected fixed 20ms, got %v", i, d)
		}
	}
}

func TestRetryer_Defaults(t *testing.T) {
	retryer := New(Config{})

	if retryer.MaxAttempts() != 3 {
		t.Errorf("Expected default MaxAttempts=3, got %d", retryer.MaxAttempts())
	}
	if retryer.config.Delay != 1*time.Second {
		t.Errorf("Expected default Delay=1s, got %v", retryer.config.Delay)
	}
}

func TestForRetryCount_NegativeClamped(t *testing.T) {
	retryer := ForRetryCount(-1, time.Millisecond)
	if retryer.MaxAttempts() != 1 {
		t.Errorf("Expected negative retry count to clamp to 1 attempt, got %d", retryer.MaxAttempts())
	}
}

func TestRetryer_WithMethods(t *testing.T) {
	original := New(DefaultConfig())

	modified := original.WithMaxAttempts(10)
	if modified.config.MaxAttempts != 10 {
		t.Errorf("Expected MaxAttempts=10, got %d", modified.config.MaxAttempts)
	}
	if original.config.MaxAttempts == 10 {
		t.Error("Original config was modified")
	}

	modified = original.WithDelay(500 * time.Millisecond)
	if modified.config.Delay != 500*time.Millisecond {
		t.Errorf("Expected Delay=500ms, got %v", modified.config.Delay)
	}

	called := false
	modified = original.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		called = true
	}).WithDelay(time.Millisecond)

	_ = modified.Do(func() error {
		return fmt.Errorf("exit status 1")
	})

	if !called {
		t.Error("OnRetry callback was not called")
	}
}
