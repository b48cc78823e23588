package batchpool_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/batchpool"
)

var quiet = batchpool.WithLogger(slog.New(slog.DiscardHandler))

func noop(context.Context) (int, error) { return 0, nil }

// BenchmarkProcessNoWork measures the overhead of running N tasks that do
// nothing through a pool.
func BenchmarkProcessNoWork(b *testing.B) {
	for _, n := range []int{1, 10, 100, 1000} {
		b.Run(taskCountName(n), func(b *testing.B) {
			b.ReportAllocs()
			tasks := make([]batchpool.Task[int], n)
			for j := range tasks {
				tasks[j] = noop
			}
			for i := 0; i < b.N; i++ {
				_, _ = batchpool.ProcessAll(context.Background(), tasks, quiet)
			}
		})
	}
}

// BenchmarkProcessConcurrency measures how the batch size affects a fixed
// workload.
func BenchmarkProcessConcurrency(b *testing.B) {
	const n = 1000
	tasks := make([]batchpool.Task[int], n)
	for j := range tasks {
		tasks[j] = noop
	}
	for _, c := range []int{1, 10, 100, n} {
		b.Run(fmt.Sprintf("c=%d", c), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_, _ = batchpool.ProcessAll(context.Background(), tasks, quiet, batchpool.WithConcurrency(c))
			}
		})
	}
}

// BenchmarkErrgroupBatches is the baseline: the same batching done by hand
// with an errgroup per batch.
func BenchmarkErrgroupBatches(b *testing.B) {
	for _, n := range []int{1, 10, 100, 1000} {
		b.Run(taskCountName(n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				results := make([]int, n)
				for start := 0; start < n; start += batchpool.DefaultConcurrency {
					end := min(start+batchpool.DefaultConcurrency, n)
					var g errgroup.Group
					for j := start; j < end; j++ {
						g.Go(func() error {
							v, err := noop(context.Background())
							results[j] = v
							return err
						})
					}
					_ = g.Wait()
				}
			}
		})
	}
}

func taskCountName(n int) string {
	return fmt.Sprintf("tasks=%d", n)
}
