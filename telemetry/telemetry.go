// Package telemetry bundles the structured logger, tracer and metrics every
// engine/httpserver/transport component logs and instruments through,
// grounded on the teacher's own otelslog/otel usage in its example programs.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry is the bundle of observability handles a component needs: a
// structured logger, a tracer for per-request spans, and the two metrics
// (request count, request duration) recorded around every dispatch.
type Telemetry struct {
	Logger *slog.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New returns a Telemetry bundle scoped to name (typically the module path,
// e.g. "github.com/nyholt/emberhttp/engine").
func New(name string) *Telemetry {
	meter := otel.Meter(name)

	requests, err := meter.Int64Counter("emberhttp.requests",
		metric.WithDescription("Number of requests dispatched"),
		metric.WithUnit("{request}"))
	if err != nil {
		panic(err)
	}

	duration, err := meter.Float64Histogram("emberhttp.request.duration",
		metric.WithDescription("Time spent inside a dispatched handler"),
		metric.WithUnit("ms"))
	if err != nil {
		panic(err)
	}

	return &Telemetry{
		Logger:   otelslog.NewLogger(name),
		tracer:   otel.Tracer(name),
		requests: requests,
		duration: duration,
	}
}

// Noop returns a Telemetry that logs through slog.Default() and records no
// metrics or spans, so the core never requires an OTLP collector to run.
func Noop() *Telemetry {
	return &Telemetry{
		Logger:   slog.Default(),
		tracer:   noopTracer{},
		requests: noopCounter{},
		duration: noopHistogram{},
	}
}

// StartRequest opens a span named "emberhttp.request" carrying method and
// resource attributes, and returns a finish function that records the
// duration histogram and closes the span; the caller passes the resolved
// status code once known.
func (t *Telemetry) StartRequest(ctx context.Context, method, resource string) (context.Context, func(status int)) {
	ctx, span := t.tracer.Start(ctx, "emberhttp.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.resource", resource),
		))
	start := time.Now()

	return ctx, func(status int) {
		elapsed := time.Since(start)
		attrs := metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.Int("http.status_code", status),
		)
		t.requests.Add(ctx, 1, attrs)
		t.duration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.End()
	}
}

type noopTracer struct{ trace.Tracer }

func (noopTracer) Start(ctx context.Context, _ string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

type noopCounter struct{ metric.Int64Counter }

func (noopCounter) Add(context.Context, int64, ...metric.AddOption) {}

type noopHistogram struct{ metric.Float64Histogram }

func (noopHistogram) Record(context.Context, float64, ...metric.RecordOption) {}
