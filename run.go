package batchpool

import (
	"context"
	"slices"

	"github.com/google/uuid"
)

// Run is the handle of one logical run of a [Pool]. Every caller that
// starts or joins the same run receives the same *Run.
type Run[V any] struct {
	id   string
	done chan struct{}

	// written once before done is closed
	outcomes []Outcome[V]
	err      error
	stopped  bool
}

func newRun[V any]() *Run[V] {
	return &Run[V]{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// settledRun returns a run that is already complete. It is what Start and
// Stop hand out when no run is active.
func settledRun[V any](outcomes []Outcome[V]) *Run[V] {
	r := &Run[V]{done: make(chan struct{})}
	r.finish(outcomes, nil, false)
	return r
}

func (r *Run[V]) finish(outcomes []Outcome[V], err error, stopped bool) {
	r.outcomes = outcomes
	r.err = err
	r.stopped = stopped
	close(r.done)
}

// ID returns the run identifier used in logs and spans. Runs that were
// never started (empty queue) have an empty ID.
func (r *Run[V]) ID() string {
	return r.id
}

// Done returns a channel closed when the run has finished.
func (r *Run[V]) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes or ctx is done. It returns the
// outcomes accumulated by the run and, for a [FailFast] pool, the
// [*TaskError] that aborted it. Cancelling ctx only abandons the wait; the
// run keeps going. A run that has already finished returns its result
// even if ctx is done.
func (r *Run[V]) Wait(ctx context.Context) ([]Outcome[V], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Settled() {
		return slices.Clone(r.outcomes), r.err
	}
	select {
	case <-r.done:
		return slices.Clone(r.outcomes), r.err
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// Settled reports whether the run has finished.
func (r *Run[V]) Settled() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Stopped reports whether the run ended because of [Pool.Stop].
// It is only meaningful once the run is done.
func (r *Run[V]) Stopped() bool {
	return r.Settled() && r.stopped
}
