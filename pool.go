package batchpool

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pool executes queued tasks in batches of at most Concurrency tasks.
// A batch is dispatched only after the previous one has fully settled.
//
// At most one run is active at a time. Tasks enqueued while a run is active
// join that run and their outcomes are appended after the ones already
// queued. A Pool is safe for concurrent use.
type Pool[V any] struct {
	mu sync.Mutex

	queue   *queue[Task[V]]
	results []Outcome[V]

	active     *Run[V]
	updated    bool // queue mutated during the active run
	stopped    bool // stop requested for the active run
	processing bool

	concurrency int
	policy      Policy
	observer    func([]Outcome[V])
	onBatch     func(BatchInfo)

	log  *slog.Logger
	inst *instruments

	// Observability counters.
	enqueued   atomic.Int64
	dispatched atomic.Int64
	fulfilled  atomic.Int64
	rejected   atomic.Int64
	batches    atomic.Int64
	runs       atomic.Int64
	inFlight   atomic.Int64
}

// State is a snapshot of a pool's run flags.
type State struct {
	Processing bool // a run is active
	Updated    bool // tasks were enqueued during the active run and not yet picked up
	Stopped    bool // Stop was called and the active run has not yet ended
}

// Stats provides a point-in-time snapshot of pool activity.
type Stats struct {
	Enqueued    int64 // tasks accepted by Enqueue
	Dispatched  int64 // tasks invoked by runs
	Fulfilled   int64 // tasks that returned a nil error
	Rejected    int64 // tasks that returned an error or panicked
	Batches     int64 // settled batches
	Runs        int64 // runs started
	InFlight    int64 // tasks currently executing
	Queued      int   // tasks waiting in the queue
	Concurrency int
}

// New creates an empty pool.
func New[V any](opts ...Option) (*Pool[V], error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var observer func([]Outcome[V])
	if cfg.observer != nil {
		fn, ok := cfg.observer.(func([]Outcome[V]))
		if !ok {
			return nil, ErrObserverType
		}
		observer = fn
	}

	inst, err := newInstruments(cfg)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if cfg.name != "" {
		logger = logger.With("pool", cfg.name)
	}

	return &Pool[V]{
		queue:       newQueue[Task[V]](),
		concurrency: cfg.concurrency,
		policy:      cfg.policy,
		observer:    observer,
		onBatch:     cfg.onBatch,
		log:         logger,
		inst:        inst,
	}, nil
}

// NewWithTasks creates a pool with tasks already queued.
func NewWithTasks[V any](tasks []Task[V], opts ...Option) (*Pool[V], error) {
	p, err := New[V](opts...)
	if err != nil {
		return nil, err
	}
	return p.Enqueue(tasks...), nil
}

// Enqueue appends tasks to the queue and returns the pool for chaining.
// Nil tasks are ignored. If a run is active, the tasks join it.
func (p *Pool[V]) Enqueue(tasks ...Task[V]) *Pool[V] {
	p.mu.Lock()
	p.enqueueLocked(tasks)
	p.mu.Unlock()
	return p
}

// EnqueueAndStart appends tasks and makes sure a run is in progress. It
// returns the active run if there is one, or starts a new run otherwise.
func (p *Pool[V]) EnqueueAndStart(ctx context.Context, tasks ...Task[V]) *Run[V] {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enqueueLocked(tasks)
	return p.startLocked(ctx)
}

func (p *Pool[V]) enqueueLocked(tasks []Task[V]) {
	var n int64
	for _, t := range tasks {
		if t == nil {
			continue
		}
		p.queue.push(t)
		n++
	}
	if n == 0 {
		return
	}
	p.enqueued.Add(n)
	if p.active != nil {
		p.updated = true
	}
}

// Dequeue removes and returns up to Concurrency tasks from the head of the
// queue. It returns an empty slice when the queue is empty.
func (p *Pool[V]) Dequeue() []Task[V] {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.queue.popN(p.concurrency)
	if out == nil {
		return []Task[V]{}
	}
	return out
}

// Peek returns the task at the head of the queue without removing it.
func (p *Pool[V]) Peek() (Task[V], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.peek()
}

// IsEmpty reports whether no task is waiting in the queue.
func (p *Pool[V]) IsEmpty() bool {
	return p.Len() == 0
}

// Len returns the number of tasks waiting in the queue.
func (p *Pool[V]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// Concurrency returns the current batch size.
func (p *Pool[V]) Concurrency() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.concurrency
}

// SetConcurrency changes the batch size. It takes effect at the next
// dequeue; a batch already in flight keeps its size. Values below one are
// rejected with [ErrInvalidConcurrency] and leave the pool unchanged.
func (p *Pool[V]) SetConcurrency(n int) error {
	if n < 1 {
		return ErrInvalidConcurrency
	}
	p.mu.Lock()
	p.concurrency = n
	p.mu.Unlock()
	return nil
}

// SetObserver installs, replaces or (with nil) removes the observer.
// Batches settled before the call are not replayed.
func (p *Pool[V]) SetObserver(fn func([]Outcome[V])) *Pool[V] {
	p.mu.Lock()
	p.observer = fn
	p.mu.Unlock()
	return p
}

// State returns the current run flags.
func (p *Pool[V]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Processing: p.processing,
		Updated:    p.updated,
		Stopped:    p.stopped,
	}
}

// Results returns a copy of the outcomes accumulated by the current run,
// or by the last one if no run is active.
func (p *Pool[V]) Results() []Outcome[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.results)
}

// Stats returns a point-in-time snapshot of pool activity.
// Safe to call concurrently.
func (p *Pool[V]) Stats() Stats {
	p.mu.Lock()
	queued, concurrency := p.queue.len(), p.concurrency
	p.mu.Unlock()

	return Stats{
		Enqueued:    p.enqueued.Load(),
		Dispatched:  p.dispatched.Load(),
		Fulfilled:   p.fulfilled.Load(),
		Rejected:    p.rejected.Load(),
		Batches:     p.batches.Load(),
		Runs:        p.runs.Load(),
		InFlight:    p.inFlight.Load(),
		Queued:      queued,
		Concurrency: concurrency,
	}
}

// Process starts a run, or joins the active one, and waits for it to
// finish. See [Pool.Start] and [Run.Wait].
func (p *Pool[V]) Process(ctx context.Context) ([]Outcome[V], error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.Start(ctx).Wait(ctx)
}

// Start begins a run over the queued tasks and returns without waiting.
//
// If a run is already active, Start returns it instead of starting a second
// one, so no task is ever dispatched twice. If the queue is empty, Start
// returns a settled run carrying the current results unchanged.
//
// Tasks receive ctx. Once ctx is done, the run ends after the batch in
// flight settles and reports the context's cause.
func (p *Pool[V]) Start(ctx context.Context) *Run[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startLocked(ctx)
}

func (p *Pool[V]) startLocked(ctx context.Context) *Run[V] {
	if p.active != nil {
		return p.active
	}
	if p.queue.len() == 0 {
		return settledRun(slices.Clone(p.results))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r := newRun[V]()
	p.active = r
	p.processing = true
	p.updated = false
	p.stopped = false
	p.results = nil
	p.runs.Add(1)

	go p.loop(ctx, r)
	return r
}

// Stop asks the active run to end once its current batch has settled.
// Tasks already dispatched run to completion; nothing further is dequeued
// and the rest of the queue is kept for a later run. Stop returns the
// active run, or a settled run carrying the current results if none is
// active.
func (p *Pool[V]) Stop() *Run[V] {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return settledRun(slices.Clone(p.results))
	}
	p.stopped = true
	return p.active
}

// loop drives one logical run. Each pass snapshots the number of batches
// needed for the queue as it is; tasks enqueued during the pass trigger a
// fresh snapshot instead of extending the current one.
func (p *Pool[V]) loop(ctx context.Context, r *Run[V]) {
	ctx, span := p.inst.startRun(ctx, r.id)
	log := p.log.With("run_id", r.id)
	log.Info("batchpool: run started")

	var (
		runErr  error
		stopped bool
		batch   int
	)
	defer func() {
		endSpan(span, runErr)
		log.Info("batchpool: run finished",
			"batches", batch,
			"stopped", stopped,
			"error", runErr,
		)
	}()

	p.mu.Lock()
	remaining := p.batchCountLocked()
	p.mu.Unlock()

	for {
		p.mu.Lock()
		if remaining == 0 && p.queue.len() > 0 {
			// Tasks left after the snapshot: the concurrency shrank mid-pass.
			p.updated = false
			remaining = p.batchCountLocked()
		}
		if remaining == 0 || p.queue.len() == 0 {
			p.finishLocked(r, nil, false)
			p.mu.Unlock()
			return
		}
		if p.stopped {
			stopped = true
			p.finishLocked(r, nil, true)
			p.mu.Unlock()
			return
		}
		if err := ctx.Err(); err != nil {
			runErr = context.Cause(ctx)
			p.finishLocked(r, runErr, false)
			p.mu.Unlock()
			return
		}
		tasks := p.queue.popN(p.concurrency)
		base := len(p.results)
		remaining--
		p.mu.Unlock()

		outcomes, err := p.runBatch(ctx, log, r.id, batch, base, tasks)
		batch++

		p.mu.Lock()
		p.results = append(p.results, outcomes...)
		if err != nil {
			runErr = err
			p.finishLocked(r, err, false)
			p.mu.Unlock()
			return
		}
		observer := p.observer
		var snapshot []Outcome[V]
		if observer != nil {
			snapshot = slices.Clone(p.results)
		}
		p.mu.Unlock()

		if observer != nil {
			observer(snapshot)
		}

		p.mu.Lock()
		if p.stopped {
			stopped = true
			p.finishLocked(r, nil, true)
			p.mu.Unlock()
			return
		}
		if p.updated {
			p.updated = false
			remaining = p.batchCountLocked()
		}
		p.mu.Unlock()
	}
}

func (p *Pool[V]) batchCountLocked() int {
	n := p.queue.len()
	if n == 0 {
		return 0
	}
	return (n-1)/p.concurrency + 1
}

// finishLocked resets the run state and settles r with the accumulated
// results.
func (p *Pool[V]) finishLocked(r *Run[V], err error, stopped bool) {
	p.active = nil
	p.processing = false
	p.updated = false
	p.stopped = false
	r.finish(slices.Clone(p.results), err, stopped)
}

// runBatch invokes every task of a batch concurrently and waits for all of
// them to settle. Outcomes are returned in dequeue order. Under FailFast the
// batch error is the first failure observed; only the fulfilled outcomes
// that precede the earliest failing task are returned with it.
func (p *Pool[V]) runBatch(
	ctx context.Context,
	log *slog.Logger,
	runID string,
	batch, base int,
	tasks []Task[V],
) ([]Outcome[V], error) {
	ctx, span := p.inst.startBatch(ctx, batch, len(tasks))
	log.Debug("batchpool: dispatching batch", "batch", batch, "size", len(tasks))
	start := time.Now()

	outcomes := make([]Outcome[V], len(tasks))
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			v, err := p.call(ctx, log, task)
			outcomes[i] = Outcome[V]{Value: v, Err: err}
			if err != nil && p.policy == FailFast {
				return &TaskError{RunID: runID, Batch: batch, Index: base + i, Err: err}
			}
			return nil
		})
	}
	err := g.Wait()
	elapsed := time.Since(start)

	var rejected int
	for _, o := range outcomes {
		if o.Rejected() {
			rejected++
		}
	}
	fulfilled := len(outcomes) - rejected

	p.dispatched.Add(int64(len(tasks)))
	p.fulfilled.Add(int64(fulfilled))
	p.rejected.Add(int64(rejected))
	p.batches.Add(1)
	p.inst.recordBatch(ctx, fulfilled, rejected, elapsed)
	endSpan(span, err)

	if p.onBatch != nil {
		p.onBatch(BatchInfo{
			RunID:    runID,
			Index:    batch,
			Size:     len(tasks),
			Rejected: rejected,
			Duration: elapsed,
			Err:      err,
		})
	}

	if err != nil {
		log.Debug("batchpool: batch failed", "batch", batch, "error", err)
		cut := slices.IndexFunc(outcomes, Outcome[V].Rejected)
		return outcomes[:cut], err
	}
	log.Debug("batchpool: batch settled", "batch", batch, "rejected", rejected, "elapsed", elapsed)
	return outcomes, nil
}

// call runs one task, converting a panic into a rejected outcome.
func (p *Pool[V]) call(ctx context.Context, log *slog.Logger, task Task[V]) (v V, err error) {
	p.inFlight.Add(1)
	defer func() {
		p.inFlight.Add(-1)
		if r := recover(); r != nil {
			pe := newPanicError(r)
			log.Warn("batchpool: task panic recovered", "panic", r)
			var zero V
			v, err = zero, pe
		}
	}()
	return task(ctx)
}
