// control/collector.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collector reading pool counters at scrape time.

package control

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momentics/hioload-memcache/api"
)

const metricsNamespace = "hioload_memcache"

type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(api.PoolStats) float64
}

func newPoolMetric(name, help string, kind prometheus.ValueType, value func(api.PoolStats) float64) poolMetric {
	return poolMetric{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", name),
			help, []string{"pool", "variant"}, nil),
		kind:  kind,
		value: value,
	}
}

// PoolCollector exports api.PoolStats of every added pool.
type PoolCollector struct {
	mu      sync.RWMutex
	pools   map[string]api.MemCache
	metrics []poolMetric
}

var _ prometheus.Collector = (*PoolCollector)(nil)

// NewPoolCollector creates a collector with no pools.
func NewPoolCollector() *PoolCollector {
	counter, gauge := prometheus.CounterValue, prometheus.GaugeValue
	return &PoolCollector{
		pools: make(map[string]api.MemCache),
		metrics: []poolMetric{
			newPoolMetric("free_blocks", "Blocks currently in the free list.", gauge,
				func(s api.PoolStats) float64 { return float64(s.FreeBlocks) }),
			newPoolMetric("min_free_blocks", "Configured free-list target.", gauge,
				func(s api.PoolStats) float64 { return float64(s.MinFreeBlocks) }),
			newPoolMetric("blocks_in_use", "Blocks handed out and not yet released.", gauge,
				func(s api.PoolStats) float64 { return float64(s.InUse()) }),
			newPoolMetric("allocation_events_total", "Upkeep calls that allocated.", counter,
				func(s api.PoolStats) float64 { return float64(s.AllocationEvents) }),
			newPoolMetric("blocks_allocated_total", "Blocks allocated by upkeep.", counter,
				func(s api.PoolStats) float64 { return float64(s.Allocated) }),
			newPoolMetric("blocks_freed_total", "Blocks freed by upkeep or close.", counter,
				func(s api.PoolStats) float64 { return float64(s.Freed) }),
			newPoolMetric("acquires_total", "Successful acquires.", counter,
				func(s api.PoolStats) float64 { return float64(s.Acquires) }),
			newPoolMetric("failed_acquires_total", "Acquires that found the pool empty.", counter,
				func(s api.PoolStats) float64 { return float64(s.FailedAcquires) }),
			newPoolMetric("releases_total", "Blocks released.", counter,
				func(s api.PoolStats) float64 { return float64(s.Releases) }),
			newPoolMetric("merged_blocks_total", "Blocks released during a lock-free upkeep and merged back.", counter,
				func(s api.PoolStats) float64 { return float64(s.Merged) }),
			newPoolMetric("dropped_blocks_total", "Blocks released during a lock-free upkeep and discarded.", counter,
				func(s api.PoolStats) float64 { return float64(s.Dropped) }),
		},
	}
}

// Add registers mc under its name. Names must be unique.
func (pc *PoolCollector) Add(mc api.MemCache) error {
	if mc == nil {
		return errors.Wrap(api.ErrInvalidArgument, "nil pool")
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if _, dup := pc.pools[mc.Name()]; dup {
		return errors.Wrapf(api.ErrInvalidArgument, "pool %q already registered", mc.Name())
	}
	pc.pools[mc.Name()] = mc
	return nil
}

// Names returns the registered pool names, sorted.
func (pc *PoolCollector) Names() []string {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	names := make([]string, 0, len(pc.pools))
	for name := range pc.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (pc *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range pc.metrics {
		ch <- m.desc
	}
}

func (pc *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	for _, mc := range pc.pools {
		s := mc.Stats()
		for _, m := range pc.metrics {
			ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(s), s.Name, s.Variant)
		}
	}
}
