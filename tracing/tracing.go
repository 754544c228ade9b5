// Package tracing is a thin wrapper around OpenTelemetry so the rest of the
// code base can open and close spans without touching the otel API surface
// directly. Until Init is called the wrapper is a no-op and costs nothing.
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jobflowhq/jobflow"

var (
	initOnce sync.Once
	provider *sdktrace.TracerProvider
	enabled  bool
)

// Span wraps an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// Init installs a tracer provider that writes spans to the given file, or to
// stdout when the path is empty. It is idempotent; only the first call wins.
func Init(serviceName, version, outputPath string) error {
	var err error
	initOnce.Do(func() {
		var writer io.Writer = os.Stdout
		if outputPath != "" {
			var file *os.File
			if file, err = os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
				return
			}
			writer = file
		}
		var exporter *stdouttrace.Exporter
		if exporter, err = stdouttrace.New(stdouttrace.WithWriter(writer)); err != nil {
			return
		}
		provider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resource.NewSchemaless(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", version),
			)),
		)
		otel.SetTracerProvider(provider)
		enabled = true
	})
	return err
}

// Shutdown flushes and stops the tracer provider installed by Init.
func Shutdown(ctx context.Context) error {
	if provider == nil {
		return nil
	}
	return provider.Shutdown(ctx)
}

// StartSpan opens a span with the given name and kind. When tracing has not
// been initialised the returned span is inert and EndSpan on it is a no-op.
func StartSpan(ctx context.Context, name, kind string) (context.Context, *Span) {
	if !enabled {
		return ctx, &Span{}
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithSpanKind(spanKind(kind)))
	return ctx, &Span{span: span}
}

// EndSpan records the outcome and closes the span.
func EndSpan(span *Span, err error) {
	if span == nil || span.span == nil {
		return
	}
	if err != nil {
		span.span.RecordError(err)
		span.span.SetStatus(codes.Error, err.Error())
	} else {
		span.span.SetStatus(codes.Ok, "")
	}
	span.span.End()
}

// SetAttribute attaches a string attribute to the span.
func (s *Span) SetAttribute(key, value string) {
	if s == nil || s.span == nil {
		return
	}
	s.span.SetAttributes(attribute.String(key, value))
}

func spanKind(kind string) trace.SpanKind {
	switch kind {
	case "SERVER":
		return trace.SpanKindServer
	case "CLIENT":
		return trace.SpanKindClient
	case "PRODUCER":
		return trace.SpanKindProducer
	case "CONSUMER":
		return trace.SpanKindConsumer
	default:
		return trace.SpanKindInternal
	}
}
