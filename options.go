package batchpool

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DefaultConcurrency is the batch size used when [WithConcurrency] is not given.
const DefaultConcurrency = 10

// Policy determines how a batch settles when one of its tasks fails.
type Policy int

const (
	// Collect waits for every task of a batch and records failures as
	// rejected [Outcome] values. Processing continues after a failure.
	Collect Policy = iota

	// FailFast aborts the run on the first failing task. The failure is
	// returned from [Pool.Process] as a [*TaskError] instead of being
	// recorded as an outcome.
	FailFast
)

func (p Policy) String() string {
	switch p {
	case Collect:
		return "collect"
	case FailFast:
		return "fail-fast"
	default:
		return "unknown"
	}
}

func (p Policy) valid() bool {
	return p == Collect || p == FailFast
}

// BatchInfo describes a settled batch. It is passed to the hook registered
// via [WithOnBatch].
type BatchInfo struct {
	RunID    string
	Index    int // zero-based batch number within the run
	Size     int
	Rejected int
	Duration time.Duration
	Err      error // non-nil when a FailFast batch aborted the run
}

type config struct {
	concurrency    int
	policy         Policy
	observer       any
	logger         *slog.Logger
	name           string
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	onBatch        func(BatchInfo)
}

// Option configures a [Pool].
type Option func(*config)

func defaultConfig() config {
	return config{
		concurrency: DefaultConcurrency,
		policy:      Collect,
		logger:      slog.Default(),
	}
}

func (c config) validate() error {
	if c.concurrency < 1 {
		return ErrInvalidConcurrency
	}
	if !c.policy.valid() {
		return ErrInvalidPolicy
	}
	return nil
}

// WithConcurrency sets the maximum number of tasks dispatched together.
// Values below one are rejected by [New] with [ErrInvalidConcurrency].
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.concurrency = n
	}
}

// WithPolicy sets the batch settle policy. The default is [Collect].
func WithPolicy(p Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithFailFast is shorthand for WithPolicy(FailFast).
func WithFailFast() Option {
	return WithPolicy(FailFast)
}

// WithObserver registers a callback invoked after every batch with the
// cumulative outcomes of the current run. The callback runs on the run's
// goroutine and receives a copy it may keep.
//
// The value type of fn must match the pool's; [New] returns
// [ErrObserverType] otherwise.
func WithObserver[V any](fn func([]Outcome[V])) Option {
	return func(c *config) {
		if fn == nil {
			c.observer = nil
			return
		}
		c.observer = fn
	}
}

// WithLogger sets the logger. Passing nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithName names the pool in logs, spans and metric attributes.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider.
// Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithOnBatch registers a hook invoked after each batch settles, before the
// observer. The hook runs on the run's goroutine.
func WithOnBatch(fn func(BatchInfo)) Option {
	return func(c *config) {
		c.onBatch = fn
	}
}
