package observability

import (
	"context"
	"time"

	"github.com/cavebatsofware/rate-limiter/internal/actioncheck"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedActionChecker wraps an actioncheck.Checker implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedActionChecker struct {
	inner    actioncheck.Checker
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedActionChecker creates a wrapper that records trace spans,
// operation latency histograms, and error counters for every checker call.
func NewInstrumentedActionChecker(inner actioncheck.Checker) (*InstrumentedActionChecker, error) {
	tracer := otel.Tracer("rate-limiter/actioncheck")
	meter := otel.Meter("rate-limiter/actioncheck")

	duration, err := meter.Float64Histogram(
		"actioncheck.operation.duration",
		metric.WithDescription("Duration of action-checker operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"actioncheck.operation.errors",
		metric.WithDescription("Number of action-checker operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedActionChecker{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (a *InstrumentedActionChecker) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := a.tracer.Start(ctx, "actioncheck."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("actioncheck.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (a *InstrumentedActionChecker) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	a.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		a.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (a *InstrumentedActionChecker) RecordAction(ctx context.Context, ip, action string) error {
	ctx, span := a.startSpan(ctx, "RecordAction",
		attribute.String("ip", ip),
		attribute.String("action", action),
	)
	start := time.Now()
	err := a.inner.RecordAction(ctx, ip, action)
	a.record(ctx, span, "RecordAction", start, err)
	return err
}

func (a *InstrumentedActionChecker) CheckRecentAction(ctx context.Context, ip, action string, within time.Duration) (bool, error) {
	ctx, span := a.startSpan(ctx, "CheckRecentAction",
		attribute.String("ip", ip),
		attribute.String("action", action),
		attribute.String("within", within.String()),
	)
	start := time.Now()
	result, err := a.inner.CheckRecentAction(ctx, ip, action, within)
	a.record(ctx, span, "CheckRecentAction", start, err)
	return result, err
}

func (a *InstrumentedActionChecker) Close() error {
	return a.inner.Close()
}
