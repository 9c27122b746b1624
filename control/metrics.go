// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for system-level monitoring.
// Pool counters are exported through a private Prometheus registry; ad-hoc
// values live in a thread-safe map with dynamic registration.

package control

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/momentics/hioload-memcache/api"
)

// MetricsRegistry holds mutable and read-only metrics.
type MetricsRegistry struct {
	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time

	prom  *prometheus.Registry
	pools *PoolCollector
}

// NewMetricsRegistry creates a registry with an empty pool collector.
func NewMetricsRegistry() *MetricsRegistry {
	mr := &MetricsRegistry{
		metrics: make(map[string]any),
		prom:    prometheus.NewRegistry(),
		pools:   NewPoolCollector(),
	}
	mr.prom.MustRegister(mr.pools)
	return mr
}

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the latest ad-hoc metrics.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	return out
}

// Updated returns when Set last ran.
func (mr *MetricsRegistry) Updated() time.Time {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	return mr.updated
}

// RegisterPool starts exporting mc's counters.
func (mr *MetricsRegistry) RegisterPool(mc api.MemCache) error {
	return mr.pools.Add(mc)
}

// Registry exposes the Prometheus registry, e.g. for extra collectors.
func (mr *MetricsRegistry) Registry() *prometheus.Registry { return mr.prom }

// Handler serves the registry in the Prometheus exposition format.
func (mr *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(mr.prom, promhttp.HandlerOpts{})
}
