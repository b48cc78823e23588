// Package promstats exports the counters of a batchpool.Pool to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	reg.MustRegister(promstats.NewCollector("ingest", pool))
package promstats

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/baxromumarov/batchpool"
)

const namespace = "batchpool"

// Source is anything that reports pool statistics. *batchpool.Pool[V]
// satisfies it for every V.
type Source interface {
	Stats() batchpool.Stats
}

// Collector is a prometheus.Collector reading a Source on every scrape.
type Collector struct {
	src Source

	enqueued    *prometheus.Desc
	dispatched  *prometheus.Desc
	completed   *prometheus.Desc
	batches     *prometheus.Desc
	runs        *prometheus.Desc
	inFlight    *prometheus.Desc
	queued      *prometheus.Desc
	concurrency *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for src. name is attached to every
// metric as the "pool" label so several pools can share a registry.
func NewCollector(name string, src Source) *Collector {
	if src == nil {
		panic("promstats: NewCollector requires a non-nil source")
	}
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, variable, labels)
	}

	return &Collector{
		src:         src,
		enqueued:    desc("tasks_enqueued_total", "Tasks accepted into the queue."),
		dispatched:  desc("tasks_dispatched_total", "Tasks invoked by runs."),
		completed:   desc("tasks_completed_total", "Settled tasks by status.", "status"),
		batches:     desc("batches_total", "Settled batches."),
		runs:        desc("runs_total", "Runs started."),
		inFlight:    desc("tasks_in_flight", "Tasks currently executing."),
		queued:      desc("queue_length", "Tasks waiting in the queue."),
		concurrency: desc("concurrency", "Configured batch size."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.enqueued
	ch <- c.dispatched
	ch <- c.completed
	ch <- c.batches
	ch <- c.runs
	ch <- c.inFlight
	ch <- c.queued
	ch <- c.concurrency
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()

	ch <- prometheus.MustNewConstMetric(c.enqueued, prometheus.CounterValue, float64(s.Enqueued))
	ch <- prometheus.MustNewConstMetric(c.dispatched, prometheus.CounterValue, float64(s.Dispatched))
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.Fulfilled),
		batchpool.StatusFulfilled.String())
	ch <- prometheus.MustNewConstMetric(c.completed, prometheus.CounterValue, float64(s.Rejected),
		batchpool.StatusRejected.String())
	ch <- prometheus.MustNewConstMetric(c.batches, prometheus.CounterValue, float64(s.Batches))
	ch <- prometheus.MustNewConstMetric(c.runs, prometheus.CounterValue, float64(s.Runs))
	ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(s.InFlight))
	ch <- prometheus.MustNewConstMetric(c.queued, prometheus.GaugeValue, float64(s.Queued))
	ch <- prometheus.MustNewConstMetric(c.concurrency, prometheus.GaugeValue, float64(s.Concurrency))
}
