// File: facade/memcache.go
// Unified facade layer for hioload-memcache.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// MemCache aggregates a size-segmented pool manager, its upkeeper and the
// control adapter behind a single handle. Start runs the upkeeper in the
// background; pools obtained through GetPool are exported to metrics and
// debug probes automatically.

package facade

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/containerd/log"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/adapters"
	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/control"
	"github.com/momentics/hioload-memcache/internal/concurrency"
	"github.com/momentics/hioload-memcache/pool"
)

// Config holds parameters immutable per run. The upkeep interval can still
// be changed at runtime through the Control interface.
type Config struct {
	Variant         pool.Variant         // Free-list implementation
	MinFreeBlocks   int                  // Free blocks kept per pool
	UpkeepInterval  time.Duration        // Delay between upkeep rounds, 0 spins
	ReinstallPolicy pool.ReinstallPolicy // Lock-free window handling
	Preload         []int                // Block sizes created by New with the defaults above
	Pools           []control.PoolConfig // Pools created by New with their own settings
	CPUAffinity     bool                 // Pin the upkeeper thread
	UpkeeperCPU     int                  // Index into the allowed CPU set
	Logger          *log.Entry           // Defaults to log.L
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Variant:         pool.VariantLockFree,
		MinFreeBlocks:   64,
		UpkeepInterval:  10 * time.Millisecond,
		ReinstallPolicy: pool.ReinstallMerge,
	}
}

// ConfigFromFile maps a loaded file config onto a facade config. Every
// listed pool keeps its own name, minimum and reinstall policy.
func ConfigFromFile(fc *control.FileConfig) (*Config, error) {
	v, err := pool.ParseVariant(fc.Variant)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Variant = v
	cfg.UpkeepInterval = fc.UpkeepInterval
	cfg.Pools = append([]control.PoolConfig(nil), fc.Pools...)
	for _, pc := range cfg.Pools {
		if _, err := pool.ParseReinstallPolicy(pc.ReinstallPolicy); err != nil {
			return nil, errors.Wrapf(err, "pool %q", pc.Name)
		}
	}
	return cfg, nil
}

// MemCache is the main facade type.
// It implements api.GracefulShutdown to allow unified shutdown logic.
type MemCache struct {
	config  *Config
	manager *pool.Manager
	control *adapters.ControlAdapter
	logger  *log.Entry

	mu         sync.Mutex // Protects started, registered and the run state
	started    bool
	registered map[int]bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*MemCache)(nil)

// New constructs a MemCache and creates the preloaded pools.
func New(cfg *Config) (*MemCache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if _, err := pool.ParseVariant(string(cfg.Variant)); err != nil {
		return nil, err
	}
	if cfg.MinFreeBlocks < 0 || cfg.UpkeepInterval < 0 {
		return nil, errors.Wrapf(api.ErrInvalidArgument,
			"min free blocks %d, upkeep interval %s", cfg.MinFreeBlocks, cfg.UpkeepInterval)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.L
	}

	m := &MemCache{
		config: cfg,
		manager: pool.NewManager(cfg.Variant, cfg.MinFreeBlocks, cfg.UpkeepInterval,
			pool.WithReinstallPolicy(cfg.ReinstallPolicy), pool.WithLogger(logger)),
		control:    adapters.NewControlAdapter(),
		logger:     logger.WithField("component", "memcache"),
		registered: make(map[int]bool),
	}
	m.control.AttachUpkeeper(m.manager.Upkeeper())
	if err := m.control.SetConfig(map[string]any{
		control.KeyVariant:        string(cfg.Variant),
		control.KeyUpkeepInterval: cfg.UpkeepInterval,
	}); err != nil {
		return nil, err
	}

	for _, size := range cfg.Preload {
		if _, err := m.GetPool(size); err != nil {
			_ = m.manager.Shutdown()
			return nil, err
		}
	}
	for _, pc := range cfg.Pools {
		if err := m.addPool(pc); err != nil {
			_ = m.manager.Shutdown()
			return nil, errors.Wrapf(err, "pool %q", pc.Name)
		}
	}
	return m, nil
}

// addPool creates one configured pool. An empty policy inherits
// Config.ReinstallPolicy and an empty name keeps the generated one.
func (m *MemCache) addPool(pc control.PoolConfig) error {
	var opts []pool.Option
	if pc.ReinstallPolicy != "" {
		policy, err := pool.ParseReinstallPolicy(pc.ReinstallPolicy)
		if err != nil {
			return err
		}
		opts = append(opts, pool.WithReinstallPolicy(policy))
	}
	if pc.Name != "" {
		opts = append(opts, pool.WithName(pc.Name))
	}
	p, err := m.manager.GetPoolWith(pc.BlockSize, pc.MinFreeBlocks, opts...)
	if err != nil {
		return err
	}
	return m.register(p)
}

// GetPool returns the pool for blockSize, creating and registering it on
// first use.
func (m *MemCache) GetPool(blockSize int) (pool.Cache, error) {
	p, err := m.manager.GetPool(blockSize)
	if err != nil {
		return nil, err
	}
	if err := m.register(p); err != nil {
		return nil, err
	}
	return p, nil
}

// register exports p to metrics and probes once.
func (m *MemCache) register(p pool.Cache) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.registered[p.BlockSize()] {
		return nil
	}
	if err := m.control.RegisterPool(p); err != nil {
		return err
	}
	m.registered[p.BlockSize()] = true
	return nil
}

// Pools returns all pools ordered by block size.
func (m *MemCache) Pools() []pool.Cache { return m.manager.Pools() }

// Start runs the upkeeper in the background. Subsequent calls to Start()
// have no effect until Stop.
func (m *MemCache) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}
	ctx, cancel := context.WithCancel(log.WithLogger(context.Background(), m.logger))
	m.cancel = cancel
	m.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		if m.config.CPUAffinity {
			if err := concurrency.PinCurrentThread(m.config.UpkeeperCPU); err != nil {
				m.logger.WithError(err).Warn("upkeeper runs unpinned")
			}
		}
		if err := m.manager.Run(ctx); err != nil {
			m.logger.WithError(err).Error("upkeeper exited")
		}
	}(m.done)
	m.started = true
	return nil
}

// Stop halts background upkeep and waits for the upkeeper to return.
// Pools stay usable and can be upkept again after another Start.
func (m *MemCache) Stop() error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Shutdown implements api.GracefulShutdown: it stops upkeep and closes
// every pool.
func (m *MemCache) Shutdown() error {
	if err := m.Stop(); err != nil {
		return err
	}
	return m.manager.Shutdown()
}

// GetControl returns the Control interface for dynamic config and metrics.
func (m *MemCache) GetControl() api.Control {
	return m.control
}

// MetricsHandler serves pool metrics in the Prometheus exposition format.
func (m *MemCache) MetricsHandler() http.Handler {
	return m.control.Metrics().Handler()
}
