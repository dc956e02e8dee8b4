// Package observability provides OpenTelemetry tracing and metrics for clubgraph.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name used for the clubgraph tracer.
	TracerName = "github.com/clubgraph/clubgraph"
)

// TracingConfig configures the OpenTelemetry tracing.
type TracingConfig struct {
	// ServiceName is the name of the service (default: "clubgraph")
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment is the deployment environment (dev, staging, prod)
	Environment string

	// OTLPEndpoint is the OTLP gRPC endpoint (e.g., "localhost:4317")
	// If empty, tracing is disabled.
	OTLPEndpoint string

	// SampleRate is the trace sampling rate (0.0 to 1.0, default: 1.0)
	SampleRate float64
}

// DefaultTracingConfig returns a default tracing configuration.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		ServiceName:    "clubgraph",
		ServiceVersion: "0.1.0",
		Environment:    "development",
		SampleRate:     1.0,
	}
}

// TracerProvider wraps the OpenTelemetry tracer provider.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// InitTracing initializes OpenTelemetry tracing.
// Returns a no-op tracer if OTLPEndpoint is empty.
func InitTracing(ctx context.Context, cfg *TracingConfig) (*TracerProvider, error) {
	if cfg == nil {
		cfg = DefaultTracingConfig()
	}

	// If no endpoint, return no-op tracer
	if cfg.OTLPEndpoint == "" {
		return &TracerProvider{
			tracer: otel.Tracer(TracerName),
		}, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(), // Use TLS in production
	)
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
	}, nil
}

// Shutdown gracefully shuts down the tracer provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider != nil {
		return tp.provider.Shutdown(ctx)
	}
	return nil
}

// Tracer returns the underlying tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// SpanKind constants for clubgraph operations.
const (
	SpanKindLoad      = "load"
	SpanKindAnalysis  = "analysis"
	SpanKindPath      = "path"
	SpanKindRecommend = "recommend"
	SpanKindFilter    = "filter"
	SpanKindExport    = "export"
)

// StartLoadSpan starts a span for a graph load operation.
func StartLoadSpan(ctx context.Context, forceRefresh bool) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "graph.load",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubgraph.span.kind", SpanKindLoad),
			attribute.Bool("load.force_refresh", forceRefresh),
		),
	)
	return ctx, span
}

// RecordGraphSize records the size of a built snapshot on a span.
func RecordGraphSize(span trace.Span, nodeCount, edgeCount int) {
	span.SetAttributes(
		attribute.Int("graph.node_count", nodeCount),
		attribute.Int("graph.edge_count", edgeCount),
	)
}

// StartAnalysisSpan starts a span for a network analysis run.
func StartAnalysisSpan(ctx context.Context, nodeCount int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "analysis.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubgraph.span.kind", SpanKindAnalysis),
			attribute.Int("graph.node_count", nodeCount),
		),
	)
	return ctx, span
}

// StartPathSpan starts a span for a shortest-path query.
func StartPathSpan(ctx context.Context, sourceID, targetID int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "path.find",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubgraph.span.kind", SpanKindPath),
			attribute.Int("path.source", sourceID),
			attribute.Int("path.target", targetID),
		),
	)
	return ctx, span
}

// RecordPathResult records the outcome of a path query on a span.
func RecordPathResult(span trace.Span, exists bool, hops int, cost float64) {
	span.SetAttributes(
		attribute.Bool("path.exists", exists),
		attribute.Int("path.hops", hops),
		attribute.Float64("path.cost", cost),
	)
}

// StartRecommendSpan starts a span for a recommendation query.
func StartRecommendSpan(ctx context.Context, clubID int) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "recommend.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubgraph.span.kind", SpanKindRecommend),
			attribute.Int("recommend.club_id", clubID),
		),
	)
	return ctx, span
}

// StartFilterSpan starts a span for applying filter criteria.
func StartFilterSpan(ctx context.Context) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, "filter.apply",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubgraph.span.kind", SpanKindFilter),
		),
	)
	return ctx, span
}

// StartExportSpan starts a span for a graph export.
func StartExportSpan(ctx context.Context, format string) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	ctx, span := tracer.Start(ctx, fmt.Sprintf("export.%s", format),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("clubgraph.span.kind", SpanKindExport),
			attribute.String("export.format", format),
		),
	)
	return ctx, span
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
