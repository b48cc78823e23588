package batchpool

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/baxromumarov/batchpool"

	metricTasks         = "batchpool.tasks"
	metricBatches       = "batchpool.batches"
	metricBatchDuration = "batchpool.batch.duration"
)

// instruments holds the OpenTelemetry tracer and meters of a pool.
type instruments struct {
	tracer   trace.Tracer
	tasks    metric.Int64Counter
	batches  metric.Int64Counter
	duration metric.Float64Histogram
	poolAttr attribute.KeyValue
}

func newInstruments(cfg config) (*instruments, error) {
	tp := cfg.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := cfg.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	tasks, err := meter.Int64Counter(
		metricTasks,
		metric.WithDescription("settled tasks by status"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("batchpool: create task counter: %w", err)
	}
	batches, err := meter.Int64Counter(
		metricBatches,
		metric.WithDescription("settled batches"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("batchpool: create batch counter: %w", err)
	}
	duration, err := meter.Float64Histogram(
		metricBatchDuration,
		metric.WithDescription("time from batch dispatch to settlement"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("batchpool: create batch histogram: %w", err)
	}

	return &instruments{
		tracer:   tp.Tracer(instrumentationName),
		tasks:    tasks,
		batches:  batches,
		duration: duration,
		poolAttr: attribute.String("pool", cfg.name),
	}, nil
}

func (in *instruments) startRun(ctx context.Context, runID string) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "batchpool.run",
		trace.WithAttributes(in.poolAttr, attribute.String("run_id", runID)),
	)
}

func (in *instruments) startBatch(ctx context.Context, index, size int) (context.Context, trace.Span) {
	return in.tracer.Start(ctx, "batchpool.batch",
		trace.WithAttributes(
			in.poolAttr,
			attribute.Int("batch", index),
			attribute.Int("size", size),
		),
	)
}

func (in *instruments) recordBatch(ctx context.Context, fulfilled, rejected int, d time.Duration) {
	in.batches.Add(ctx, 1, metric.WithAttributes(in.poolAttr))
	in.duration.Record(ctx, d.Seconds(), metric.WithAttributes(in.poolAttr))
	if fulfilled > 0 {
		in.tasks.Add(ctx, int64(fulfilled), metric.WithAttributes(in.poolAttr,
			attribute.String("status", StatusFulfilled.String())))
	}
	if rejected > 0 {
		in.tasks.Add(ctx, int64(rejected), metric.WithAttributes(in.poolAttr,
			attribute.String("status", StatusRejected.String())))
	}
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
