// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Thread-safe configuration store with dynamic update and hot-reload propagation.

package control

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
)

// Well-known runtime keys.
const (
	KeyUpkeepInterval = "upkeep.interval"
	KeyLogLevel       = "log.level"
	KeyVariant        = "pool.variant" // informational, pools keep their variant
)

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func()
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config:    make(map[string]any),
		listeners: make([]func(), 0),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}

// Get returns a single value.
func (cs *ConfigStore) Get(key string) (any, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	v, ok := cs.config[key]
	return v, ok
}

// Duration reads key as a time.Duration. Strings use time.ParseDuration
// syntax, integers count nanoseconds.
func (cs *ConfigStore) Duration(key string) (time.Duration, bool, error) {
	v, ok := cs.Get(key)
	if !ok {
		return 0, false, nil
	}
	d, err := AsDuration(v)
	if err != nil {
		return 0, true, errors.Wrapf(err, "config key %q", key)
	}
	return d, true, nil
}

// AsDuration converts a config value to a duration.
func AsDuration(v any) (time.Duration, error) {
	switch d := v.(type) {
	case time.Duration:
		return d, nil
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0, errors.Wrapf(api.ErrInvalidArgument, "duration %q", d)
		}
		return parsed, nil
	case int:
		return time.Duration(d), nil
	case int64:
		return time.Duration(d), nil
	}
	return 0, errors.Wrapf(api.ErrInvalidArgument, "%T is not a duration", v)
}

// SetConfig merges new values and then runs every reload listener in
// registration order, outside the lock.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	listeners := append([]func(){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// OnReload registers a listener hook called on config changes.
func (cs *ConfigStore) OnReload(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}
