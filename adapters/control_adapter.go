// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control interface using control package primitives.

package adapters

import (
	"sync"

	"github.com/containerd/log"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/control"
	"github.com/momentics/hioload-memcache/pool"
)

// ControlAdapter ties config, metrics and debug probes to running pools.
// Runtime keys it acts on: control.KeyUpkeepInterval retunes every attached
// upkeeper, control.KeyLogLevel sets the global log level. control.KeyVariant
// is informational: it is validated and reported by Stats.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes

	mu        sync.Mutex
	upkeepers []*pool.Upkeeper
}

var _ api.Control = (*ControlAdapter)(nil)

func NewControlAdapter() *ControlAdapter {
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(adapter.debug)
	adapter.config.OnReload(adapter.applyRuntime)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig validates the runtime keys in cfg, then merges cfg and notifies
// reload listeners. Nothing is stored when validation fails.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	if v, ok := cfg[control.KeyUpkeepInterval]; ok {
		d, err := control.AsDuration(v)
		if err != nil {
			return errors.Wrap(err, control.KeyUpkeepInterval)
		}
		if d < 0 {
			return errors.Wrapf(api.ErrInvalidArgument, "%s %s is negative", control.KeyUpkeepInterval, d)
		}
	}
	if v, ok := cfg[control.KeyLogLevel]; ok {
		if _, isString := v.(string); !isString {
			return errors.Wrapf(api.ErrInvalidArgument, "%s must be a string", control.KeyLogLevel)
		}
	}
	if v, ok := cfg[control.KeyVariant]; ok {
		s, _ := v.(string)
		if _, err := pool.ParseVariant(s); err != nil {
			return err
		}
	}
	c.config.SetConfig(cfg)
	return nil
}

func (c *ControlAdapter) applyRuntime() {
	if d, ok, err := c.config.Duration(control.KeyUpkeepInterval); ok && err == nil {
		c.mu.Lock()
		for _, u := range c.upkeepers {
			u.SetInterval(d)
		}
		c.mu.Unlock()
	}
	if v, ok := c.config.Get(control.KeyLogLevel); ok {
		level, isString := v.(string)
		if !isString {
			log.L.WithField("value", v).Warn("ignoring non-string log level")
		} else if err := log.SetLevel(level); err != nil {
			log.L.WithError(err).Warn("ignoring log level")
		}
	}
}

func (c *ControlAdapter) Stats() map[string]any {
	stats := c.metrics.GetSnapshot()
	debugStats := c.debug.DumpState()
	combined := make(map[string]any, len(stats)+len(debugStats))
	for k, v := range stats {
		combined[k] = v
	}
	for k, v := range debugStats {
		combined["debug."+k] = v
	}
	if v, ok := c.config.Get(control.KeyVariant); ok {
		combined[control.KeyVariant] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) SetMetric(key string, value any) {
	c.metrics.Set(key, value)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// RegisterPool exports mc's counters and adds a "pool.<name>" probe.
func (c *ControlAdapter) RegisterPool(mc api.MemCache) error {
	if err := c.metrics.RegisterPool(mc); err != nil {
		return err
	}
	c.debug.RegisterPoolProbe(mc)
	return nil
}

// AttachUpkeeper puts u under runtime control. A configured upkeep interval
// is applied immediately.
func (c *ControlAdapter) AttachUpkeeper(u *pool.Upkeeper) {
	c.mu.Lock()
	c.upkeepers = append(c.upkeepers, u)
	c.mu.Unlock()
	if d, ok, err := c.config.Duration(control.KeyUpkeepInterval); ok && err == nil {
		u.SetInterval(d)
	}
}

// Metrics exposes the registry, e.g. to serve its Prometheus handler.
func (c *ControlAdapter) Metrics() *control.MetricsRegistry { return c.metrics }
