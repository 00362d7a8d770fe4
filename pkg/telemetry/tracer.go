package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig controls span export.
type TracingConfig struct {
	// Exporter selects where spans go: "stdout" or "none".
	Exporter string
	// SamplingRate is the head sampling ratio in [0, 1].
	SamplingRate float64
}

// DefaultTracingConfig returns a configuration that samples everything and
// exports nothing.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		Exporter:     "none",
		SamplingRate: 1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with operation-shaped spans. A nil
// *Tracer is valid and produces no spans.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer creates a tracer for the given service identity.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion string) (*Tracer, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
	case "none":
		exporter = nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(
			sdktrace.TraceIDRatioBased(cfg.SamplingRate),
		)),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}, nil
}

// StartOperation opens a span covering a full apply or delete operation. The
// returned func ends the span, recording the terminal phase it settled in.
func (t *Tracer) StartOperation(ctx context.Context, kind, unitName string) (context.Context, func(phase string)) {
	if t == nil {
		return ctx, func(string) {}
	}
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("operation.%s", kind),
		trace.WithAttributes(
			attribute.String("operation.kind", kind),
			attribute.String("unit.name", unitName),
		),
	)
	return ctx, func(phase string) {
		span.SetAttributes(attribute.String("operation.phase", phase))
		if phase == "failed" {
			span.SetStatus(codes.Error, "operation failed")
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// Shutdown flushes pending spans and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
