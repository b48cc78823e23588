// Package batchpool runs deferred tasks in batches under a concurrency limit.
//
// A [Pool] holds a FIFO queue of [Task] values. A run dequeues up to
// Concurrency tasks, invokes them concurrently, waits for the whole batch to
// settle, appends one [Outcome] per task to the run's results and only then
// dispatches the next batch. Outcomes keep dequeue order regardless of the
// order in which tasks complete.
//
//	p, err := batchpool.New[string](batchpool.WithConcurrency(2))
//	if err != nil {
//	    return err
//	}
//	outcomes, err := p.Enqueue(fetchA, fetchB, fetchC).Process(ctx)
//
// # Runs
//
// At most one run is active per pool. [Pool.Start] begins a run and returns
// its [Run] handle; calling it again while the run is active returns the
// same handle, so concurrent callers join rather than dispatching tasks
// twice. [Pool.Process] is Start followed by [Run.Wait].
//
// Tasks enqueued while a run is active join that run: once the batch in
// flight settles, the run takes a fresh look at the queue and keeps going,
// appending the new outcomes after the existing ones.
//
// # Settle Policies
//
//   - [Collect] (default): every task of a batch settles; failures are
//     recorded as rejected outcomes and the run continues.
//   - [FailFast]: the first failure aborts the run. [Pool.Process] returns a
//     [*TaskError] wrapping the task's reason. The batch is still awaited in
//     full so no goroutine outlives the run, but outcomes from the failing
//     task onward are discarded.
//
// A task that panics is rejected with a [*PanicError].
//
// # Stopping
//
// [Pool.Stop] is cooperative: tasks already dispatched finish, no further
// batch is started, and the remaining tasks stay queued for a later run.
// Cancelling the context given to Start has the same effect and makes the
// run report the context's cause.
//
// # Progress
//
// [WithObserver] (or [Pool.SetObserver]) receives the cumulative outcomes
// after each batch. [WithOnBatch] receives per-batch [BatchInfo].
// [Pool.Stats] and [Pool.State] expose counters and run flags, and the pool
// reports OpenTelemetry spans and metrics through the providers given with
// [WithTracerProvider] and [WithMeterProvider].
//
// # Helpers
//
//   - [ProcessAll]: run a slice of tasks through a fresh pool.
//   - [Values]: split outcomes into values and a joined error.
//   - [Retry]: retry a task with exponential backoff.
//   - [Timeout]: give a task a per-invocation deadline.
package batchpool
