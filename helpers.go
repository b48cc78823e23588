package batchpool

import (
	"context"
	"errors"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// ProcessAll runs tasks through a fresh pool configured with opts and returns
// their outcomes in input order.
//
//	outcomes, err := batchpool.ProcessAll(ctx, fetches, batchpool.WithConcurrency(4))
func ProcessAll[V any](ctx context.Context, tasks []Task[V], opts ...Option) ([]Outcome[V], error) {
	p, err := NewWithTasks(tasks, opts...)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx)
}

// Values unwraps outcomes. The returned slice holds the value of every
// fulfilled outcome in order; the error joins the reasons of the rejected
// ones via [errors.Join].
func Values[V any](outcomes []Outcome[V]) ([]V, error) {
	values := make([]V, 0, len(outcomes))
	var errs []error
	for _, o := range outcomes {
		if o.Rejected() {
			errs = append(errs, o.Err)
			continue
		}
		values = append(values, o.Value)
	}
	return values, errors.Join(errs...)
}

// Timeout wraps task so that its context carries a deadline d from the
// moment it is invoked. The task must honour its context for the deadline
// to have any effect.
func Timeout[V any](task Task[V], d time.Duration) Task[V] {
	if task == nil {
		panic("batchpool: Timeout requires a non-nil task")
	}
	return func(ctx context.Context) (V, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return task(ctx)
	}
}

type retryConfig struct {
	attempts uint
	delay    time.Duration
	retryIf  func(error) bool
}

// RetryOption configures [Retry].
type RetryOption func(*retryConfig)

// RetryAttempts sets the total number of attempts, the first one included.
// Default 3.
func RetryAttempts(n uint) RetryOption {
	return func(c *retryConfig) {
		c.attempts = n
	}
}

// RetryDelay sets the base delay of the exponential backoff between
// attempts. Default 100ms.
func RetryDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.delay = d
	}
}

// RetryIf restricts retries to errors for which fn returns true.
func RetryIf(fn func(error) bool) RetryOption {
	return func(c *retryConfig) {
		c.retryIf = fn
	}
}

// Retry wraps task so that a failed attempt is retried with exponential
// backoff. The pool itself never retries; wrap the tasks that need it.
// Retrying stops early when the task's context is done. The error of the
// last attempt is returned.
func Retry[V any](task Task[V], opts ...RetryOption) Task[V] {
	if task == nil {
		panic("batchpool: Retry requires a non-nil task")
	}
	cfg := retryConfig{
		attempts: 3,
		delay:    100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx context.Context) (V, error) {
		retryOpts := []retry.Option{
			retry.Context(ctx),
			retry.Attempts(cfg.attempts),
			retry.Delay(cfg.delay),
			retry.LastErrorOnly(true),
		}
		if cfg.retryIf != nil {
			retryOpts = append(retryOpts, retry.RetryIf(cfg.retryIf))
		}
		return retry.NewWithData[V](retryOpts...).Do(func() (V, error) {
			return task(ctx)
		})
	}
}
