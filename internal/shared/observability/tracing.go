package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracer follows whichever provider is installed globally, so spans started
// before SetupTracing runs are simply dropped.
var Tracer = otel.Tracer("pyscope")

type TracingOptions struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
}

// SetupTracing installs a batching OTLP/gRPC tracer provider. The returned
// function flushes and shuts it down.
func SetupTracing(ctx context.Context, opts TracingOptions) (func(context.Context) error, error) {
	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
