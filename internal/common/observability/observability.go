package observability

import (
	"context"
	"fmt"
	"time"

	"search-orchestrator/internal/common/config"
	"search-orchestrator/internal/common/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	meter          otelmetric.Meter
	callCounter    otelmetric.Int64Counter
	callDuration   otelmetric.Float64Histogram
}

// New wires the OTel meter into the default prometheus registry and, when enabled,
// a sampled tracer provider whose finished spans are written to the debug log.
func New(serviceName string, cfg config.ObservabilityConfig, log logger.Logger) (*Observability, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	o := &Observability{
		meterProvider: provider,
		tracer:        noop.NewTracerProvider().Tracer(serviceName),
	}
	o.initInstruments(provider.Meter(serviceName))

	if cfg.TracingEnabled {
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
			sdktrace.WithResource(res),
			sdktrace.WithSpanProcessor(&logSpanProcessor{log: log}),
		)
		otel.SetTracerProvider(tp)
		o.tracerProvider = tp
		o.tracer = tp.Tracer(serviceName)
	}

	return o, nil
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{
		tracer: noop.NewTracerProvider().Tracer("noop"),
	}
}

// NewWithTracerProvider is used by tests that need to inspect recorded spans.
func NewWithTracerProvider(tp *sdktrace.TracerProvider) *Observability {
	return &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer("test"),
	}
}

func (o *Observability) initInstruments(meter otelmetric.Meter) {
	o.meter = meter

	o.callCounter, _ = meter.Int64Counter(
		"backend.calls",
		otelmetric.WithDescription("Number of downstream calls"),
	)

	o.callDuration, _ = meter.Float64Histogram(
		"backend.call.duration",
		otelmetric.WithDescription("Downstream call duration"),
		otelmetric.WithUnit("ms"),
	)
}

// Tracer returns the tracer for this service.
func (o *Observability) Tracer() trace.Tracer {
	return o.tracer
}

// StartSpan starts a span on the service tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordBackendCall(ctx context.Context, service, outcome string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("service", service),
		attribute.String("outcome", outcome),
	)
	if o.callCounter != nil {
		o.callCounter.Add(ctx, 1, attrs)
	}
	if o.callDuration != nil {
		o.callDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	var firstErr error
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type logSpanProcessor struct {
	log logger.Logger
}

func (p *logSpanProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *logSpanProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	if p.log == nil {
		return
	}
	fields := map[string]interface{}{
		"span":       s.Name(),
		"traceId":    s.SpanContext().TraceID().String(),
		"spanId":     s.SpanContext().SpanID().String(),
		"durationMs": s.EndTime().Sub(s.StartTime()).Milliseconds(),
		"status":     s.Status().Code.String(),
	}
	for _, kv := range s.Attributes() {
		fields[string(kv.Key)] = kv.Value.Emit()
	}
	p.log.Debug("span finished", fields)
}

func (p *logSpanProcessor) Shutdown(context.Context) error   { return nil }
func (p *logSpanProcessor) ForceFlush(context.Context) error { return nil }
