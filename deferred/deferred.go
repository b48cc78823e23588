// Package deferred provides a value that is settled from outside the code
// waiting on it. It bridges callback or event driven completion into a
// [batchpool.Task].
//
//	d := deferred.New[string]()
//	bus.Once("ready", func(msg string) { d.Resolve(msg) })
//	pool.Enqueue(d.Task())
package deferred

import (
	"context"
	"errors"
	"sync"

	"github.com/baxromumarov/batchpool"
)

// ErrNilReason is the rejection reason recorded when Reject is given nil.
var ErrNilReason = errors.New("deferred: rejected without a reason")

// Deferred is a write-once value. The first call to Resolve or Reject
// settles it; later calls have no effect.
type Deferred[V any] struct {
	once sync.Once
	done chan struct{}

	val V
	err error
}

// New returns an unsettled Deferred.
func New[V any]() *Deferred[V] {
	return &Deferred[V]{done: make(chan struct{})}
}

// Resolve settles d with v. It reports whether this call settled d.
func (d *Deferred[V]) Resolve(v V) bool {
	return d.settle(v, nil)
}

// Reject settles d with err. It reports whether this call settled d.
func (d *Deferred[V]) Reject(err error) bool {
	if err == nil {
		err = ErrNilReason
	}
	var zero V
	return d.settle(zero, err)
}

func (d *Deferred[V]) settle(v V, err error) bool {
	settled := false
	d.once.Do(func() {
		d.val, d.err = v, err
		close(d.done)
		settled = true
	})
	return settled
}

// Done returns a channel closed once d is settled.
func (d *Deferred[V]) Done() <-chan struct{} {
	return d.done
}

// Settled reports whether d has been resolved or rejected.
func (d *Deferred[V]) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Wait blocks until d is settled or ctx is done.
func (d *Deferred[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-d.done:
		return d.val, d.err
	case <-ctx.Done():
		var zero V
		return zero, context.Cause(ctx)
	}
}

// Task returns a task that waits for d. Invoking it more than once yields
// the same settlement.
func (d *Deferred[V]) Task() batchpool.Task[V] {
	return d.Wait
}

// Bridge returns a task that calls start with a fresh Deferred and waits
// for it to be settled. start is invoked when the task runs, not when the
// task is created, so the pool's concurrency limit applies to the work
// start kicks off.
func Bridge[V any](start func(d *Deferred[V])) batchpool.Task[V] {
	if start == nil {
		panic("deferred: Bridge requires a non-nil start function")
	}
	return func(ctx context.Context) (V, error) {
		d := New[V]()
		start(d)
		return d.Wait(ctx)
	}
}
