package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config represents metrics configuration
type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewDefaultConfig returns the default metrics configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:   false,
		Port:      9090,
		Path:      "/metrics",
		Namespace: "diracstore",
	}
}

// Collector implements Prometheus metrics collection for command
// invocations.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	invocationCounter  *prometheus.CounterVec
	retryCounter       *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec

	server *http.Server
}

// NewCollector creates a new metrics collector.
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = NewDefaultConfig()
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		config:   config,
		registry: registry,
		invocationCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "command_invocations_total",
			Help:      "Total command invocations by tool and outcome",
		}, []string{"tool", "outcome"}),
		retryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "command_retries_total",
			Help:      "Total retried command attempts by tool",
		}, []string{"tool"}),
		invocationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "command_duration_seconds",
			Help:      "Command invocation duration by tool, all attempts included",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tool"}),
	}

	for _, collector := range []prometheus.Collector{
		c.invocationCounter, c.retryCounter, c.invocationDuration,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	return c, nil
}

// Enabled reports whether the collector records anything.
func (c *Collector) Enabled() bool {
	return c.config.Enabled
}

// RecordInvocation records a completed command invocation.
func (c *Collector) RecordInvocation(tool string, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.invocationCounter.WithLabelValues(tool, outcome).Inc()
	c.invocationDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordRetry records a retried command attempt.
func (c *Collector) RecordRetry(tool string) {
	if !c.config.Enabled {
		return
	}
	c.retryCounter.WithLabelValues(tool).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Start serves the metrics endpoint until the context is canceled.
func (c *Collector) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(c.config.Path, promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	c.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", c.config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.server.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Stop shuts down the metrics endpoint.
func (c *Collector) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}
