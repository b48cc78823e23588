package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/baxromumarov/batchpool"
	"github.com/baxromumarov/batchpool/apperr"
	"github.com/baxromumarov/batchpool/deferred"
	"github.com/baxromumarov/batchpool/internal/config"
)

// summary describes a finished workload run.
type summary struct {
	RunID     string
	Batches   int
	Fulfilled int
	Rejected  int
	Queued    int // tasks left in the queue after a stop or interrupt
	Stopped   bool
	Codes     map[apperr.Code]int
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "run %s: %d batches, %d fulfilled, %d rejected, %d still queued",
		s.RunID, s.Batches, s.Fulfilled, s.Rejected, s.Queued)
	if s.Stopped {
		fmt.Fprint(w, " (stopped)")
	}
	fmt.Fprintln(w)

	codes := make([]string, 0, len(s.Codes))
	for c := range s.Codes {
		codes = append(codes, string(c))
	}
	sort.Strings(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %s: %d\n", c, s.Codes[apperr.Code(c)])
	}
}

// syntheticTask settles after delay from a timer callback. Task i fails
// when failEvery divides i+1.
func syntheticTask(i, failEvery int, delay time.Duration) batchpool.Task[int] {
	return deferred.Bridge(func(d *deferred.Deferred[int]) {
		time.AfterFunc(delay, func() {
			if failEvery > 0 && (i+1)%failEvery == 0 {
				d.Reject(apperr.Newf(apperr.UnprocessableContent, "task %d: synthetic failure", i))
				return
			}
			d.Resolve(i)
		})
	})
}

func syntheticTasks(from, n int, cfg config.Config) []batchpool.Task[int] {
	tasks := make([]batchpool.Task[int], n)
	for i := range tasks {
		tasks[i] = syntheticTask(from+i, cfg.FailEvery, cfg.TaskDelay)
	}
	return tasks
}

// runWorkload enqueues cfg.Tasks synthetic tasks and processes them,
// printing a progress line after every batch. Cancelling ctx ends the run
// after the batch in flight.
func runWorkload(ctx context.Context, cfg config.Config, logger *slog.Logger, w io.Writer) (summary, error) {
	total := cfg.Tasks + cfg.Requeue

	p, err := batchpool.New[int](cfg.PoolOptions(logger)...)
	if err != nil {
		return summary{}, err
	}

	var batches int
	p.SetObserver(func(outcomes []batchpool.Outcome[int]) {
		batches++
		fmt.Fprintf(w, "batch %d: %d/%d settled\n", batches, len(outcomes), total)
		if batches == 1 && cfg.Requeue > 0 {
			p.Enqueue(syntheticTasks(cfg.Tasks, cfg.Requeue, cfg)...)
		}
		if cfg.StopAfter > 0 && batches >= cfg.StopAfter {
			p.Stop()
		}
	})

	run := p.EnqueueAndStart(ctx, syntheticTasks(0, cfg.Tasks, cfg)...)
	// The run ends on its own once ctx is done, so wait for it unconditionally.
	outcomes, err := run.Wait(context.Background())

	sum := summary{
		RunID:   run.ID(),
		Batches: int(p.Stats().Batches),
		Queued:  p.Len(),
		Stopped: run.Stopped(),
		Codes:   make(map[apperr.Code]int),
	}
	values, rejected := batchpool.Values(outcomes)
	sum.Fulfilled = len(values)
	sum.Rejected = len(outcomes) - len(values)
	if rejected != nil {
		for _, o := range outcomes {
			if code, ok := apperr.CodeOf(o.Err); ok {
				sum.Codes[code]++
			}
		}
		logger.Debug("rejected tasks", "error", rejected)
	}

	if err != nil {
		return sum, fmt.Errorf("run %s aborted: %w", run.ID(), err)
	}
	return sum, nil
}
