package dirac

import (
	"sync"
	"time"
)

// ClientMetrics tracks command client performance metrics.
type ClientMetrics struct {
	Invocations    int64         `json:"invocations"`
	Retries        int64         `json:"retries"`
	Failures       int64         `json:"failures"`
	AverageLatency time.Duration `json:"average_latency"`
	LastError      string        `json:"last_error"`
	LastErrorTime  time.Time     `json:"last_error_time"`

	// Per-tool invocation counts.
	PerTool map[string]int64 `json:"per_tool"`
}

// MetricsCollector handles metrics collection and aggregation for the
// command client.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics ClientMetrics
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: ClientMetrics{PerTool: make(map[string]int64)},
	}
}

// RecordInvocation records one complete Run call (all attempts included).
func (mc *MetricsCollector) RecordInvocation(tool string, duration time.Duration, isError bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics.Invocations++
	mc.metrics.PerTool[tool]++
	if isError {
		mc.metrics.Failures++
	}

	// Rolling average latency.
	if mc.metrics.Invocations == 1 {
		mc.metrics.AverageLatency = duration
	} else {
		mc.metrics.AverageLatency = time.Duration(
			(int64(mc.metrics.AverageLatency)*9 + int64(duration)) / 10,
		)
	}
}

// RecordRetry records a retried attempt.
func (mc *MetricsCollector) RecordRetry() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics.Retries++
}

// RecordError records an error occurrence.
func (mc *MetricsCollector) RecordError(err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics.LastError = err.Error()
	mc.metrics.LastErrorTime = time.Now()
}

// GetMetrics returns current client metrics.
func (mc *MetricsCollector) GetMetrics() ClientMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := mc.metrics
	snapshot.PerTool = make(map[string]int64, len(mc.metrics.PerTool))
	for tool, count := range mc.metrics.PerTool {
		snapshot.PerTool[tool] = count
	}
	return snapshot
}

// GetErrorRate calculates the current error rate.
func (mc *MetricsCollector) GetErrorRate() float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if mc.metrics.Invocations == 0 {
		return 0
	}
	return float64(mc.metrics.Failures) / float64(mc.metrics.Invocations)
}

// Reset resets all metrics to zero.
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics = ClientMetrics{PerTool: make(map[string]int64)}
}
