// File: pool/manager.go
// Author: momentics <momentics@gmail.com>
//
// Manager keeps one pool per block size and a shared upkeeper for all of them.

package pool

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
)

// Manager provides size-segmented pools of a single variant.
type Manager struct {
	mu       sync.RWMutex
	pools    map[int]Cache // Key: block size
	variant  Variant
	minFree  int
	opts     []Option
	upkeeper *Upkeeper
	closed   bool
}

// Ensure compliance with api.GracefulShutdown.
var _ api.GracefulShutdown = (*Manager)(nil)

// NewManager creates a manager; pools are created lazily by GetPool.
func NewManager(v Variant, minFreeBlocks int, interval time.Duration, opts ...Option) *Manager {
	return &Manager{
		pools:    make(map[int]Cache),
		variant:  v,
		minFree:  minFreeBlocks,
		opts:     opts,
		upkeeper: NewUpkeeper(interval),
	}
}

// GetPool obtains or creates the pool for blockSize. A new pool is upkept
// once before it is returned, so it starts with minFreeBlocks free blocks.
func (m *Manager) GetPool(blockSize int) (Cache, error) {
	return m.GetPoolWith(blockSize, m.minFree)
}

// GetPoolWith is GetPool with a per-pool minimum and options. opts are applied
// after the manager's own, so a WithName here replaces the generated name.
// They only take effect when the pool is created; an existing pool is
// returned as is.
func (m *Manager) GetPoolWith(blockSize, minFreeBlocks int, opts ...Option) (Cache, error) {
	m.mu.RLock()
	p, ok := m.pools[blockSize]
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, errManagerClosed(blockSize)
	}
	if ok {
		return p, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errManagerClosed(blockSize)
	}
	if p, ok := m.pools[blockSize]; ok {
		return p, nil
	}
	all := make([]Option, 0, 1+len(m.opts)+len(opts))
	all = append(all, WithName(fmt.Sprintf("%s-%d", m.variant, blockSize)))
	all = append(all, m.opts...)
	all = append(all, opts...)
	p, err := New(m.variant, minFreeBlocks, blockSize, all...)
	if err != nil {
		return nil, errors.Wrapf(err, "manager: pool for %d-byte blocks", blockSize)
	}
	p.Upkeep()
	m.pools[blockSize] = p
	m.upkeeper.Add(p)
	return p, nil
}

// Lookup returns the existing pool for blockSize without creating one.
func (m *Manager) Lookup(blockSize int) (Cache, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errManagerClosed(blockSize)
	}
	p, ok := m.pools[blockSize]
	if !ok {
		return nil, api.NewError(api.ErrCodeNotFound, "no pool for block size").
			WithContext("block_size", blockSize)
	}
	return p, nil
}

func errManagerClosed(blockSize int) error {
	return api.NewError(api.ErrCodePoolClosed, "manager is shut down").
		WithContext("block_size", blockSize)
}

// Pools returns all pools ordered by block size.
func (m *Manager) Pools() []Cache {
	m.mu.RLock()
	out := make([]Cache, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].BlockSize() < out[j].BlockSize() })
	return out
}

// Upkeeper returns the manager's upkeep actor.
func (m *Manager) Upkeeper() *Upkeeper { return m.upkeeper }

// Run drives upkeep for all pools until ctx is done or Shutdown is called.
func (m *Manager) Run(ctx context.Context) error {
	return m.upkeeper.Run(ctx)
}

// Shutdown stops upkeep and closes every pool.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.upkeeper.Stop()
	for _, p := range m.pools {
		p.Close()
	}
	return nil
}
