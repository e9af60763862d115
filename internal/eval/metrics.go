package eval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tapeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "lazytape_eval_tape_duration_seconds",
	Help:    "Time to generate and execute one tape.",
	Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
})

var (
	cacheHitsDesc = prometheus.NewDesc("lazytape_eval_cache_hits_total",
		"Evaluations served without running a tape.", nil, nil)
	cacheMissesDesc = prometheus.NewDesc("lazytape_eval_cache_misses_total",
		"Evaluations that required running a tape.", nil, nil)
	operationsDesc = prometheus.NewDesc("lazytape_eval_operations_executed_total",
		"Tape operations executed.", nil, nil)
	memoryDesc = prometheus.NewDesc("lazytape_eval_memory_allocated_bytes",
		"Bytes of results produced since the cache was last cleared.", nil, nil)
)

// collector exports a manager's Stats.
type collector struct {
	m *Manager
}

// Collector returns a prometheus.Collector exporting the manager's Stats.
// Registering it is up to the caller.
func (m *Manager) Collector() prometheus.Collector {
	return collector{m: m}
}

// Describe implements prometheus.Collector.
func (c collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheHitsDesc
	ch <- cacheMissesDesc
	ch <- operationsDesc
	ch <- memoryDesc
}

// Collect implements prometheus.Collector.
func (c collector) Collect(ch chan<- prometheus.Metric) {
	s := c.m.Stats()
	ch <- prometheus.MustNewConstMetric(cacheHitsDesc, prometheus.CounterValue, float64(s.CacheHits))
	ch <- prometheus.MustNewConstMetric(cacheMissesDesc, prometheus.CounterValue, float64(s.CacheMisses))
	ch <- prometheus.MustNewConstMetric(operationsDesc, prometheus.CounterValue, float64(s.OperationsExecuted))
	ch <- prometheus.MustNewConstMetric(memoryDesc, prometheus.GaugeValue, float64(s.MemoryAllocated))
}
