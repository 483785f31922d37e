// Package metrics exposes Prometheus metrics for diracstore command
// invocations: per-tool counters, retry counts and invocation latency,
// served over an optional HTTP endpoint.
package metrics
