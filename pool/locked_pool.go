// File: pool/locked_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Mutex-guarded block pool. Acquire, Release and Upkeep hold the lock for
// their whole duration, allocation and freeing included.

package pool

import (
	"sync"

	"github.com/momentics/hioload-memcache/api"
)

// LockedPool keeps free blocks in a slice behind a single mutex.
// Any number of goroutines may call every method, Upkeep included.
type LockedPool struct {
	cfg       poolConfig
	minFree   int
	blockSize int

	mu     sync.Mutex
	free   []*Block
	closed bool

	counters
}

var _ Cache = (*LockedPool)(nil)

// NewLockedPool creates an empty pool; call Upkeep to fill it.
func NewLockedPool(minFreeBlocks, blockSize int, opts ...Option) (*LockedPool, error) {
	cfg, err := newPoolConfig(VariantLocked, minFreeBlocks, blockSize, opts)
	if err != nil {
		return nil, err
	}
	return &LockedPool{
		cfg:       cfg,
		minFree:   minFreeBlocks,
		blockSize: blockSize,
		free:      make([]*Block, 0, minFreeBlocks),
	}, nil
}

func (p *LockedPool) Name() string       { return p.cfg.name }
func (p *LockedPool) BlockSize() int     { return p.blockSize }
func (p *LockedPool) MinFreeBlocks() int { return p.minFree }

// Upkeep converges the free count to the configured minimum.
func (p *LockedPool) Upkeep() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	r := upkeepResult{before: len(p.free)}
	switch {
	case r.before < p.minFree:
		r.grown = p.grow(p.minFree - r.before)
	case r.before > p.minFree:
		r.shrunk = p.shrink(r.before - p.minFree)
	}
	r.after = len(p.free)
	p.mu.Unlock()

	logUpkeep(p.cfg.logger, r)
}

// grow appends n new blocks. Caller holds mu.
func (p *LockedPool) grow(n int) int {
	p.allocEvents.Add(1)
	for i := 0; i < n; i++ {
		p.free = append(p.free, &Block{data: allocBuffer(p.blockSize), owner: p})
	}
	p.allocated.Add(uint64(n))
	return n
}

// shrink frees n blocks from the tail, most recently released first. Caller holds mu.
func (p *LockedPool) shrink(n int) int {
	last := len(p.free) - n
	clear(p.free[last:])
	p.free = p.free[:last]
	p.freed.Add(uint64(n))
	return n
}

// Acquire pops the most recently released block, or returns nil.
func (p *LockedPool) Acquire() *Block {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		p.failed.Add(1)
		return nil
	}
	b := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.mu.Unlock()

	b.held.Store(true)
	p.acquires.Add(1)
	return b
}

// Release returns b to the free list. nil is a no-op.
// Releasing a block twice, or into a pool that did not create it, panics.
func (p *LockedPool) Release(b *Block) {
	if b == nil {
		return
	}
	b.claim(p)
	p.releases.Add(1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.freed.Add(1)
		return
	}
	p.free = append(p.free, b)
	p.mu.Unlock()
}

// FreeBlocks returns the exact free count.
func (p *LockedPool) FreeBlocks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// AllocationEvents returns how many Upkeep calls allocated.
func (p *LockedPool) AllocationEvents() uint64 { return p.allocEvents.Load() }

// Stats returns a counters snapshot.
func (p *LockedPool) Stats() api.PoolStats {
	s := api.PoolStats{
		Name:          p.cfg.name,
		Variant:       string(VariantLocked),
		BlockSize:     p.blockSize,
		MinFreeBlocks: p.minFree,
		FreeBlocks:    p.FreeBlocks(),
	}
	p.counters.fill(&s)
	return s
}

// Close frees all free blocks. Later Upkeep is a no-op, Acquire returns nil
// and Release drops the block.
func (p *LockedPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if n := len(p.free); n > 0 {
		p.shrink(n)
	}
}
