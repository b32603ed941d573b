// Package cqprom provides Prometheus metrics instrumentation for cqserve
// servers, adapted from the functional-options metrics middleware in
// vango-go-vango's pkg/middleware/metrics.go and wired through the same
// cq.DispatchHook seam cqotel uses.
package cqprom

import (
	"context"
	"time"

	"github.com/cqserve/cqserve/cq"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the Prometheus metrics hook.
type Config struct {
	// Namespace is the metrics namespace (default: "cqserve").
	Namespace string
	// Subsystem is the metrics subsystem (default: "").
	Subsystem string
	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels
	// Buckets are the histogram buckets for dispatch duration.
	Buckets []float64
	// Registry is the Prometheus registry to register with.
	Registry prometheus.Registerer
}

// Option configures a Config.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) { c.ConstLabels = labels }
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) { c.Registry = registry }
}

func defaultConfig() Config {
	return Config{
		Namespace: "cqserve",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchErrors   *prometheus.CounterVec
	inputBytes       *prometheus.CounterVec
	outputBytes      *prometheus.CounterVec
	activeCalls      prometheus.Gauge
}

func initMetrics(cfg Config) *metrics {
	factory := promauto.With(cfg.Registry)

	return &metrics{
		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_total",
			Help:        "Total number of RPCs dispatched",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "method_type", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "RPC dispatch duration in seconds",
			Buckets:     cfg.Buckets,
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "method_type"}),

		dispatchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "dispatch_errors_total",
			Help:        "Total number of RPCs that ended in a non-OK status",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "code"}),

		inputBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "input_bytes_total",
			Help:        "Total bytes of request messages read",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method"}),

		outputBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "output_bytes_total",
			Help:        "Total bytes of response messages written",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method"}),

		activeCalls: promauto.With(cfg.Registry).NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "active_calls",
			Help:        "Number of RPCs currently in PROCESS",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// promHook implements cq.DispatchHook.
type promHook struct {
	m *metrics
}

type startToken struct {
	start time.Time
}

// InstrumentServer builds a Prometheus-backed cq.DispatchHook. Pass it to
// Builder.Use.
func InstrumentServer(opts ...Option) cq.DispatchHook {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &promHook{m: initMetrics(cfg)}
}

func (h *promHook) OnDispatchStart(ctx context.Context, info cq.DispatchInfo) (context.Context, cq.HookToken) {
	h.m.activeCalls.Inc()
	return ctx, &startToken{start: time.Now()}
}

func (h *promHook) OnDispatchEnd(ctx context.Context, token cq.HookToken, info cq.DispatchInfo, stats *cq.CallStatistics, err error) {
	h.m.activeCalls.Dec()
	st, ok := token.(*startToken)
	if !ok {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		h.m.dispatchErrors.WithLabelValues(info.Method, "unknown").Inc()
	}
	h.m.dispatchTotal.WithLabelValues(info.Method, info.MethodType, status).Inc()
	h.m.dispatchDuration.WithLabelValues(info.Method, info.MethodType).Observe(time.Since(st.start).Seconds())
	if stats != nil {
		h.m.inputBytes.WithLabelValues(info.Method).Add(float64(stats.InputBytes))
		h.m.outputBytes.WithLabelValues(info.Method).Add(float64(stats.OutputBytes))
	}
}
