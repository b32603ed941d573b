// Package cqotel provides OpenTelemetry instrumentation for cqserve
// servers. It implements cq.DispatchHook to add distributed tracing and
// metrics around RPC dispatch, adapted from Query-farm-vgi-rpc-go's
// vgiotel package.
//
// Usage:
//
//	builder.Use(cqotel.InstrumentServer(builder.Server(), cqotel.DefaultConfig()))
package cqotel

import (
	"context"
	"fmt"
	"time"

	"github.com/cqserve/cqserve/cq"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "cqserve"

// Config configures OpenTelemetry instrumentation for a cqserve server.
type Config struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Propagator     propagation.TextMapPropagator

	EnableTracing    bool
	EnableMetrics    bool
	RecordExceptions bool

	ServiceName string

	CustomAttributes []attribute.KeyValue
}

// DefaultConfig returns a Config with sensible defaults. Providers are
// resolved from the global OTel SDK at InstrumentServer time.
func DefaultConfig() Config {
	return Config{
		EnableTracing:    true,
		EnableMetrics:    true,
		RecordExceptions: true,
	}
}

// InstrumentServer builds an OpenTelemetry DispatchHook; pass it to
// Builder.Use to attach it. The server argument is not used and the hook is
// not registered by this call.
func InstrumentServer(server *cq.Server, cfg Config) cq.DispatchHook {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cqserve"
	}

	hook := &otelHook{
		cfg:    cfg,
		tracer: cfg.TracerProvider.Tracer(instrumentationName),
	}

	if cfg.EnableMetrics {
		meter := cfg.MeterProvider.Meter(instrumentationName)
		hook.requestCounter, _ = meter.Int64Counter("rpc.server.requests",
			metric.WithUnit("{request}"),
			metric.WithDescription("Number of RPC requests"),
		)
		hook.durationHistogram, _ = meter.Float64Histogram("rpc.server.duration",
			metric.WithUnit("s"),
			metric.WithDescription("Duration of RPC requests"),
		)
	}

	return hook
}

// otelHook implements cq.DispatchHook with OpenTelemetry tracing and
// metrics.
type otelHook struct {
	cfg               Config
	tracer            trace.Tracer
	requestCounter    metric.Int64Counter
	durationHistogram metric.Float64Histogram
}

type spanToken struct {
	span      trace.Span
	startTime time.Time
}

func (h *otelHook) OnDispatchStart(ctx context.Context, info cq.DispatchInfo) (context.Context, cq.HookToken) {
	if h.cfg.Propagator != nil && info.TransportMetadata != nil {
		carrier := propagation.MapCarrier(info.TransportMetadata)
		ctx = h.cfg.Propagator.Extract(ctx, carrier)
	}

	if !h.cfg.EnableTracing {
		return ctx, &spanToken{startTime: time.Now()}
	}

	spanName := fmt.Sprintf("cqserve/%s", info.Method)

	attrs := []attribute.KeyValue{
		attribute.String("rpc.system", "cqserve"),
		attribute.String("rpc.service", h.cfg.ServiceName),
		attribute.String("rpc.method", info.Method),
		attribute.String("rpc.cqserve.method_type", info.MethodType),
		attribute.String("rpc.cqserve.server_id", info.ServerID),
	}
	attrs = append(attrs, h.cfg.CustomAttributes...)

	ctx, span := h.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)

	return ctx, &spanToken{span: span, startTime: time.Now()}
}

func (h *otelHook) OnDispatchEnd(ctx context.Context, token cq.HookToken, info cq.DispatchInfo, stats *cq.CallStatistics, err error) {
	st, ok := token.(*spanToken)
	if !ok {
		return
	}

	duration := time.Since(st.startTime)

	status := "ok"
	if err != nil {
		status = "error"
	}

	if h.cfg.EnableMetrics {
		metricAttrs := metric.WithAttributes(
			attribute.String("rpc.system", "cqserve"),
			attribute.String("rpc.service", h.cfg.ServiceName),
			attribute.String("rpc.method", info.Method),
			attribute.String("rpc.cqserve.method_type", info.MethodType),
			attribute.String("status", status),
		)
		if h.requestCounter != nil {
			h.requestCounter.Add(ctx, 1, metricAttrs)
		}
		if h.durationHistogram != nil {
			h.durationHistogram.Record(ctx, duration.Seconds(), metricAttrs)
		}
	}

	if st.span != nil && st.span.IsRecording() {
		if stats != nil {
			st.span.SetAttributes(
				attribute.Int64("rpc.cqserve.input_messages", stats.InputMessages),
				attribute.Int64("rpc.cqserve.output_messages", stats.OutputMessages),
				attribute.Int64("rpc.cqserve.input_bytes", stats.InputBytes),
				attribute.Int64("rpc.cqserve.output_bytes", stats.OutputBytes),
			)
		}

		if err != nil {
			st.span.SetStatus(otelcodes.Error, err.Error())
			if h.cfg.RecordExceptions {
				st.span.RecordError(err)
			}
		} else {
			st.span.SetStatus(otelcodes.Ok, "")
		}

		st.span.End()
	}
}
