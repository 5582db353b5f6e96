// Package tracing provides utility functions for manual span creation.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of spans created by this package.
const TracerName = "github.com/deepworx/casting-agency"

// WithSpan executes fn within a new span. Errors are automatically recorded.
func WithSpan(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := start(ctx, name, attrs)
	defer span.End()

	err := fn(ctx)
	record(span, err)
	return err
}

// WithSpanResult executes fn within a new span and returns the result.
// Errors are automatically recorded on the span.
func WithSpanResult[T any](ctx context.Context, name string, fn func(context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	ctx, span := start(ctx, name, attrs)
	defer span.End()

	result, err := fn(ctx)
	record(span, err)
	return result, err
}

func start(ctx context.Context, name string, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

func record(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
