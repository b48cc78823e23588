package promstats

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/batchpool"
)

type fixedSource batchpool.Stats

func (s fixedSource) Stats() batchpool.Stats { return batchpool.Stats(s) }

func TestCollectorExposition(t *testing.T) {
	c := NewCollector("ingest", fixedSource{
		Enqueued:    10,
		Dispatched:  8,
		Fulfilled:   6,
		Rejected:    2,
		Batches:     4,
		Runs:        1,
		InFlight:    2,
		Queued:      2,
		Concurrency: 2,
	})

	expected := `
# HELP batchpool_tasks_completed_total Settled tasks by status.
# TYPE batchpool_tasks_completed_total counter
batchpool_tasks_completed_total{pool="ingest",status="fulfilled"} 6
batchpool_tasks_completed_total{pool="ingest",status="rejected"} 2
# HELP batchpool_queue_length Tasks waiting in the queue.
# TYPE batchpool_queue_length gauge
batchpool_queue_length{pool="ingest"} 2
# HELP batchpool_tasks_in_flight Tasks currently executing.
# TYPE batchpool_tasks_in_flight gauge
batchpool_tasks_in_flight{pool="ingest"} 2
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"batchpool_tasks_completed_total",
		"batchpool_queue_length",
		"batchpool_tasks_in_flight",
	)
	require.NoError(t, err)
	assert.Equal(t, 9, testutil.CollectAndCount(c))
}

func TestCollectorWithPool(t *testing.T) {
	p, err := batchpool.New[int](batchpool.WithConcurrency(2))
	require.NoError(t, err)

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(NewCollector("jobs", p)))

	p.Enqueue(
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, errors.New("x") },
		func(context.Context) (int, error) { return 3, nil },
	)
	_, err = p.Process(context.Background())
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			got[mf.GetName()+labelSuffix(m)] += value(m)
		}
	}

	assert.Equal(t, float64(3), got["batchpool_tasks_enqueued_total"])
	assert.Equal(t, float64(3), got["batchpool_tasks_dispatched_total"])
	assert.Equal(t, float64(2), got["batchpool_tasks_completed_total/fulfilled"])
	assert.Equal(t, float64(1), got["batchpool_tasks_completed_total/rejected"])
	assert.Equal(t, float64(2), got["batchpool_batches_total"])
	assert.Equal(t, float64(1), got["batchpool_runs_total"])
	assert.Equal(t, float64(0), got["batchpool_queue_length"])
	assert.Equal(t, float64(2), got["batchpool_concurrency"])
}

func TestNewCollectorRequiresSource(t *testing.T) {
	assert.Panics(t, func() { NewCollector("x", nil) })
}

func labelSuffix(m *dto.Metric) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == "status" {
			return "/" + lp.GetValue()
		}
	}
	return ""
}

func value(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return m.GetGauge().GetValue()
}
