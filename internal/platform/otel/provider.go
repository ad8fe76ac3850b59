// Package otel wires OpenTelemetry tracing for guildboard processes.
package otel

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName identifies spans emitted by the state layer.
const InstrumentationName = "github.com/louisbranch/guildboard"

// Settings controls trace export.
type Settings struct {
	ServiceName string
	// Endpoint is the OTLP/HTTP collector URL. Empty disables export.
	Endpoint string
	// Disabled forces a no-op provider even when Endpoint is set.
	Disabled bool
}

// Setup initialises OpenTelemetry tracing for one process.
//
// When export is off Setup registers nothing and returns a no-op shutdown.
// The returned shutdown flushes pending spans and should be deferred.
func Setup(ctx context.Context, settings Settings) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(settings.Endpoint)
	if settings.Disabled || endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(settings.ServiceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns the state-layer tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}
