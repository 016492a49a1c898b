package server

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/tracing"
	"github.com/Ramsey-B/sage/pkg/tracing/exporters"
)

// InitTracing configures the global tracer provider and returns a shutdown
// func. Spans go to an OTLP collector when an endpoint is configured, to
// stdout otherwise. When tracing is disabled it is a no-op and spans become
// pass-throughs.
func InitTracing(ctx context.Context, cfg config.Config) (func(context.Context) error, error) {
	if !cfg.TracingEnabled {
		return func(context.Context) error { return nil }, nil
	}

	// without a collector endpoint, spans go to stdout as JSON lines
	var exporter sdktrace.SpanExporter
	if cfg.TracingEndpoint == "" {
		exporter = exporters.NewConsoleExporter(os.Stdout)
	} else {
		exporterCfg := exporters.DefaultOTLPConfig()
		exporterCfg.Endpoint = cfg.TracingEndpoint
		exporterCfg.Protocol = cfg.TracingProtocol
		exporterCfg.Insecure = cfg.TracingInsecure

		var err error
		exporter, err = exporters.NewOTLPExporter(ctx, exporterCfg)
		if err != nil {
			return nil, err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return tp.Shutdown, nil
}
