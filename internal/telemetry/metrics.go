// Package telemetry records self-monitoring metrics for the tracking
// pipeline: submission latency against the configured budget, queue drops,
// and sink writes. Metrics observe the pipeline; they never gate it.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Recorder records pipeline metrics.
// Use NewRecorder() for OTel metrics or Noop{} when disabled.
type Recorder interface {
	// RecordSubmit records one producer submission with its enqueue latency
	// and whether it exceeded the configured latency budget.
	RecordSubmit(ctx context.Context, eventType string, latency time.Duration, overBudget bool)

	// RecordDrop records one event dropped under queue saturation.
	RecordDrop(ctx context.Context, eventType string)

	// RecordWrite records one event appended to the sink.
	RecordWrite(ctx context.Context, sizeBytes int64)
}

// otelRecorder implements Recorder using OpenTelemetry.
type otelRecorder struct {
	submits       metric.Int64Counter
	submitLatency metric.Float64Histogram
	overBudget    metric.Int64Counter
	drops         metric.Int64Counter
	writes        metric.Int64Counter
	writeBytes    metric.Int64Histogram
}

// newOtelRecorder creates an OTel recorder against the global meter provider.
func newOtelRecorder() (*otelRecorder, error) {
	meter := otel.Meter("agenttrack")

	submits, err := meter.Int64Counter("agenttrack.submit.count",
		metric.WithDescription("Number of events submitted to the queue"),
	)
	if err != nil {
		return nil, err
	}

	submitLatency, err := meter.Float64Histogram("agenttrack.submit.latency_us",
		metric.WithDescription("Producer enqueue latency in microseconds"),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, err
	}

	overBudget, err := meter.Int64Counter("agenttrack.submit.over_budget",
		metric.WithDescription("Number of submissions exceeding the latency budget"),
	)
	if err != nil {
		return nil, err
	}

	drops, err := meter.Int64Counter("agenttrack.queue.drops",
		metric.WithDescription("Number of events dropped under queue saturation"),
	)
	if err != nil {
		return nil, err
	}

	writes, err := meter.Int64Counter("agenttrack.sink.writes",
		metric.WithDescription("Number of events appended to the sink"),
	)
	if err != nil {
		return nil, err
	}

	writeBytes, err := meter.Int64Histogram("agenttrack.sink.write_bytes",
		metric.WithDescription("Serialized event size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelRecorder{
		submits:       submits,
		submitLatency: submitLatency,
		overBudget:    overBudget,
		drops:         drops,
		writes:        writes,
		writeBytes:    writeBytes,
	}, nil
}

// NewRecorder returns a Recorder that uses OpenTelemetry. The recorder uses
// the global OTel meter provider; configure the provider before calling this.
// If metrics initialization fails, returns a no-op recorder.
func NewRecorder() Recorder {
	r, err := newOtelRecorder()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agenttrack: metrics initialization failed, using no-op recorder: %v\n", err)
		return Noop{}
	}
	return r
}

// RecordSubmit records one producer submission.
func (r *otelRecorder) RecordSubmit(ctx context.Context, eventType string, latency time.Duration, overBudget bool) {
	attrs := []attribute.KeyValue{
		attribute.String("event_type", eventType),
	}
	r.submits.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.submitLatency.Record(ctx, float64(latency.Microseconds()), metric.WithAttributes(attrs...))
	if overBudget {
		r.overBudget.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordDrop records one saturation drop.
func (r *otelRecorder) RecordDrop(ctx context.Context, eventType string) {
	r.drops.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordWrite records one sink append.
func (r *otelRecorder) RecordWrite(ctx context.Context, sizeBytes int64) {
	r.writes.Add(ctx, 1)
	r.writeBytes.Record(ctx, sizeBytes)
}
