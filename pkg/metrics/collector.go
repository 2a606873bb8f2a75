package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/lendpool/pkg/pool"
)

// StatsSource is anything that reports pool statistics under a name.
// *pool.Pool and *bytespool.BytesPool both satisfy it.
type StatsSource interface {
	Name() string
	Stats() pool.Stats
}

// PoolCollector is a prometheus.Collector over a set of pools. Values are
// read from each pool at scrape time and emitted as const metrics labelled
// by pool name.
type PoolCollector struct {
	mu      sync.RWMutex
	sources map[string]StatsSource

	allocated *prometheus.Desc
	hits      *prometheus.Desc
	misses    *prometheus.Desc
	returned  *prometheus.Desc
	discarded *prometheus.Desc
	inUse     *prometheus.Desc
	idle      *prometheus.Desc
}

// NewPoolCollector creates a collector whose metric names start with namespace.
//
// Example:
//
//	collector := metrics.NewPoolCollector("lendpool")
//	collector.Add(bp)
//	prometheus.MustRegister(collector)
func NewPoolCollector(namespace string) *PoolCollector {
	labels := []string{"pool"}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", name), help, labels, nil)
	}
	return &PoolCollector{
		sources:   make(map[string]StatsSource),
		allocated: desc("allocated_total", "Values built by the pool factory"),
		hits:      desc("hits_total", "Lends served from the free list"),
		misses:    desc("misses_total", "Lends that found the free list empty"),
		returned:  desc("returned_total", "Values pushed back onto the free list"),
		discarded: desc("discarded_total", "Values dropped instead of recycled"),
		inUse:     desc("in_use", "Values currently lent out"),
		idle:      desc("idle", "Values waiting on the free list"),
	}
}

// Add starts collecting src, replacing any source with the same name.
func (c *PoolCollector) Add(src StatsSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[src.Name()] = src
}

// Remove stops collecting the named source.
func (c *PoolCollector) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, name)
}

// Describe implements prometheus.Collector.
func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.allocated
	ch <- c.hits
	ch <- c.misses
	ch <- c.returned
	ch <- c.discarded
	ch <- c.inUse
	ch <- c.idle
}

// Collect implements prometheus.Collector.
func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	names := make([]string, 0, len(c.sources))
	for name := range c.sources {
		names = append(names, name)
	}
	sources := make([]StatsSource, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		sources = append(sources, c.sources[name])
	}
	c.mu.RUnlock()

	for i, src := range sources {
		s := src.Stats()
		name := names[i]
		ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.CounterValue, float64(s.Allocated), name)
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(s.Hits), name)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(s.Misses), name)
		ch <- prometheus.MustNewConstMetric(c.returned, prometheus.CounterValue, float64(s.Returned), name)
		ch <- prometheus.MustNewConstMetric(c.discarded, prometheus.CounterValue, float64(s.Discarded), name)
		ch <- prometheus.MustNewConstMetric(c.inUse, prometheus.GaugeValue, float64(s.InUse), name)
		ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.Idle), name)
	}
}
