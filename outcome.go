package batchpool

import "context"

// Task is a deferred operation executed by a [Pool]. It produces exactly one
// value or one error. Callers that need arguments close over them before
// submission.
//
// The context is the one passed to [Pool.Start] or [Pool.Process]; the pool
// never cancels it on its own, so [Pool.Stop] does not interrupt running
// tasks.
type Task[V any] func(ctx context.Context) (V, error)

// Status tags an [Outcome].
type Status int

const (
	StatusFulfilled Status = iota
	StatusRejected
)

func (s Status) String() string {
	if s == StatusFulfilled {
		return "fulfilled"
	}
	return "rejected"
}

// Outcome is the recorded result of one task: fulfilled with Value when Err
// is nil, rejected with Err otherwise.
type Outcome[V any] struct {
	Value V
	Err   error
}

// Fulfilled returns a successful outcome.
func Fulfilled[V any](v V) Outcome[V] {
	return Outcome[V]{Value: v}
}

// Rejected returns a failed outcome.
func Rejected[V any](err error) Outcome[V] {
	return Outcome[V]{Err: err}
}

func (o Outcome[V]) Fulfilled() bool { return o.Err == nil }

func (o Outcome[V]) Rejected() bool { return o.Err != nil }

func (o Outcome[V]) Status() Status {
	if o.Err != nil {
		return StatusRejected
	}
	return StatusFulfilled
}

// Get returns the value and error of the outcome.
func (o Outcome[V]) Get() (V, error) {
	return o.Value, o.Err
}
