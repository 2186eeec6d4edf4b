// Package tracing wraps OpenTelemetry for sync tracing. It supports a stdout
// exporter for local inspection and an OTLP/HTTP exporter for collectors.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation name used for regs spans.
const TracerName = "github.com/hyperengineering/regs"

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// ParseExporter maps a config string to an exporter type. Unknown values
// disable tracing.
func ParseExporter(s string) ExporterType {
	switch ExporterType(s) {
	case ExporterStdout, ExporterOTLP:
		return ExporterType(s)
	default:
		return ExporterNone
	}
}

// Config holds tracing configuration.
type Config struct {
	ExporterType ExporterType
	OTLPEndpoint string // host:port of the collector
	ServiceName  string
	Version      string
	Output       io.Writer // stdout exporter destination
}

// DefaultConfig returns a disabled tracing configuration.
func DefaultConfig() Config {
	return Config{
		ExporterType: ExporterNone,
		ServiceName:  "regs",
		Version:      "dev",
	}
}

// Tracer wraps an OpenTelemetry tracer.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the process-wide tracer. Later calls return the first result.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the process-wide tracer, or one backed by the global
// otel provider if Init was never called.
func Default() *Tracer {
	if global == nil {
		return &Tracer{tracer: otel.Tracer(TracerName)}
	}
	return global
}

// New creates a Tracer. ExporterNone yields a no-op tracer.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if cfg.ExporterType == "" || cfg.ExporterType == ExporterNone {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("tracing: create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(cfg.Version)),
		provider: provider,
	}, nil
}

func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown flushes and stops the provider, if one was created.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SyncSpan covers one sync pass.
type SyncSpan struct {
	span trace.Span
}

// StartSyncSpan starts the root span of a sync pass.
func (t *Tracer) StartSyncSpan(ctx context.Context, syncID, slot string) (context.Context, *SyncSpan) {
	ctx, span := t.tracer.Start(ctx, "regs.sync",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sync.id", syncID),
			attribute.String("sync.slot", slot),
		),
	)
	return ctx, &SyncSpan{span: span}
}

// SetCounts records what the pass moved.
func (s *SyncSpan) SetCounts(pushed, pushFailed, deletes, pulled int) {
	s.span.SetAttributes(
		attribute.Int("sync.pushed", pushed),
		attribute.Int("sync.push_failed", pushFailed),
		attribute.Int("sync.deletes_flushed", deletes),
		attribute.Int("sync.pulled", pulled),
	)
}

// End ends the span with success status.
func (s *SyncSpan) End() {
	s.span.SetStatus(codes.Ok, "")
	s.span.End()
}

// EndWithError ends the span with error status.
func (s *SyncSpan) EndWithError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	trace.SpanFromContext(ctx).RecordError(err)
}
