// File: pool/lockfree_pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Lock-free block pool over a tagged-head stack of arena slots.
//
// Upkeep protocol:
//  1. steal the shared list by exchanging its head with empty;
//  2. grow or shrink the stolen (now private) list to the target;
//  3. install the private head with a second exchange;
//  4. deal with whatever was released onto the shared head meanwhile,
//     according to the ReinstallPolicy.
//
// Between 1 and 3 Acquire may fail although free blocks exist (they sit in
// the private list). Release stays lossless on the shared head throughout.

package pool

import (
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
	"github.com/momentics/hioload-memcache/internal/concurrency"
)

// LockFreePool never blocks Acquire or Release.
// Upkeep assumes a single caller at a time; see Upkeeper.
type LockFreePool struct {
	cfg       poolConfig
	minFree   int
	blockSize int

	arena  *concurrency.Arena[Block]
	free   *concurrency.LockFreeList[Block]
	closed atomic.Bool

	counters
}

var _ Cache = (*LockFreePool)(nil)

// NewLockFreePool creates an empty pool; call Upkeep to fill it.
func NewLockFreePool(minFreeBlocks, blockSize int, opts ...Option) (*LockFreePool, error) {
	cfg, err := newPoolConfig(VariantLockFree, minFreeBlocks, blockSize, opts)
	if err != nil {
		return nil, err
	}
	if cfg.maxBlocks > 0 && cfg.maxBlocks < minFreeBlocks {
		return nil, errors.Wrapf(api.ErrInvalidArgument,
			"max blocks %d below min free blocks %d", cfg.maxBlocks, minFreeBlocks)
	}
	arena := concurrency.NewArena[Block](cfg.maxBlocks)
	return &LockFreePool{
		cfg:       cfg,
		minFree:   minFreeBlocks,
		blockSize: blockSize,
		arena:     arena,
		free:      concurrency.NewLockFreeList(arena, 0),
	}, nil
}

func (p *LockFreePool) Name() string       { return p.cfg.name }
func (p *LockFreePool) BlockSize() int     { return p.blockSize }
func (p *LockFreePool) MinFreeBlocks() int { return p.minFree }

// Upkeep steals, retargets and reinstalls the free list.
// Allocation failure (arena exhausted) panics after the stolen blocks are
// handed back to the shared list.
func (p *LockFreePool) Upkeep() {
	if p.closed.Load() {
		return
	}
	work := concurrency.NewLockFreeList(p.arena, p.free.ExchangeHead(0))

	r := upkeepResult{before: work.Len()}
	switch {
	case r.before < p.minFree:
		r.grown = p.grow(work, p.minFree-r.before)
	case r.before > p.minFree:
		r.shrunk = p.shrink(work, r.before-p.minFree)
	}
	r.after = p.minFree

	if p.cfg.windowHook != nil {
		p.cfg.windowHook()
	}

	if window := p.free.ExchangeHead(work.Head()); window != 0 {
		switch p.cfg.policy {
		case ReinstallDrop:
			concurrency.WalkChain(p.arena, window, func(idx uint32) {
				p.arena.Free(idx)
				r.dropped++
			})
			p.dropped.Add(uint64(r.dropped))
		default:
			r.merged = p.free.PushChain(window)
			p.merged.Add(uint64(r.merged))
			r.after += r.merged
		}
	}

	logUpkeep(p.cfg.logger, r)
}

func (p *LockFreePool) grow(work *concurrency.LockFreeList[Block], n int) int {
	p.allocEvents.Add(1)
	for i := 0; i < n; i++ {
		idx, node, err := p.arena.Alloc()
		if err != nil {
			p.allocated.Add(uint64(i))
			p.free.PushChain(work.ExchangeHead(0))
			panic(errors.Wrapf(err, "pool %s: grow by %d blocks", p.cfg.name, n))
		}
		b := &node.Value
		b.data = allocBuffer(p.blockSize)
		b.slot = idx
		b.owner = p
		work.Push(idx)
	}
	p.allocated.Add(uint64(n))
	return n
}

// shrink frees n blocks from the front, most recently released first.
func (p *LockFreePool) shrink(work *concurrency.LockFreeList[Block], n int) int {
	freed := 0
	for ; freed < n; freed++ {
		idx, ok := work.Pop()
		if !ok {
			break
		}
		p.arena.Free(idx)
	}
	p.freed.Add(uint64(freed))
	return freed
}

// Acquire pops the front block, or returns nil when the shared list is empty
// or the pool is closed.
func (p *LockFreePool) Acquire() *Block {
	if p.closed.Load() {
		p.failed.Add(1)
		return nil
	}
	idx, ok := p.free.Pop()
	if !ok {
		p.failed.Add(1)
		return nil
	}
	b := &p.arena.Node(idx).Value
	b.held.Store(true)
	p.acquires.Add(1)
	return b
}

// Release pushes b onto the shared list. nil is a no-op.
// Releasing a block twice, or into a pool that did not create it, panics.
// A release that races Close still ends with the block freed.
func (p *LockFreePool) Release(b *Block) {
	if b == nil {
		return
	}
	b.claim(p)
	p.releases.Add(1)
	if p.closed.Load() {
		p.arena.Free(b.slot)
		p.freed.Add(1)
		return
	}
	p.free.Push(b.slot)
	if p.closed.Load() {
		p.freeAll()
	}
}

// FreeBlocks counts the shared list from one snapshot (best-effort).
func (p *LockFreePool) FreeBlocks() int { return p.free.Len() }

// AllocationEvents returns how many Upkeep calls allocated.
func (p *LockFreePool) AllocationEvents() uint64 { return p.allocEvents.Load() }

// Stats returns a counters snapshot.
func (p *LockFreePool) Stats() api.PoolStats {
	s := api.PoolStats{
		Name:          p.cfg.name,
		Variant:       string(VariantLockFree),
		BlockSize:     p.blockSize,
		MinFreeBlocks: p.minFree,
		FreeBlocks:    p.FreeBlocks(),
	}
	p.counters.fill(&s)
	return s
}

// Close frees every block on the shared list. It must not race with Upkeep.
// Blocks released afterwards are freed immediately.
func (p *LockFreePool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.freeAll()
}

// freeAll detaches the whole shared list and frees it. Concurrent callers
// each detach a disjoint chain.
func (p *LockFreePool) freeAll() {
	var n uint64
	concurrency.WalkChain(p.arena, p.free.ExchangeHead(0), func(idx uint32) {
		p.arena.Free(idx)
		n++
	})
	p.freed.Add(n)
}
