// File: pool/cache.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync/atomic"

	"github.com/containerd/log"
	"github.com/pkg/errors"

	"github.com/momentics/hioload-memcache/api"
)

// Cache is a fixed-size block pool. Both variants implement it.
type Cache interface {
	api.MemCache

	// Acquire removes a block from the free list, or returns nil when the
	// pool is (apparently) empty. It never allocates.
	Acquire() *Block

	// Release hands a block back. nil is a no-op. It never frees.
	Release(b *Block)

	BlockSize() int
	MinFreeBlocks() int

	// Close frees every block resting in the free list.
	Close()
}

// New builds a pool of the given variant.
func New(v Variant, minFreeBlocks, blockSize int, opts ...Option) (Cache, error) {
	switch v {
	case VariantLocked:
		return NewLockedPool(minFreeBlocks, blockSize, opts...)
	case VariantLockFree:
		return NewLockFreePool(minFreeBlocks, blockSize, opts...)
	}
	return nil, errors.Wrapf(api.ErrNotSupported, "pool variant %q", v)
}

// counters are shared accounting for both variants.
type counters struct {
	allocEvents atomic.Uint64
	allocated   atomic.Uint64
	freed       atomic.Uint64
	acquires    atomic.Uint64
	failed      atomic.Uint64
	releases    atomic.Uint64
	merged      atomic.Uint64
	dropped     atomic.Uint64
}

func (c *counters) fill(s *api.PoolStats) {
	s.AllocationEvents = c.allocEvents.Load()
	s.Allocated = c.allocated.Load()
	s.Freed = c.freed.Load()
	s.Acquires = c.acquires.Load()
	s.FailedAcquires = c.failed.Load()
	s.Releases = c.releases.Load()
	s.Merged = c.merged.Load()
	s.Dropped = c.dropped.Load()
}

// upkeepResult is what one Upkeep call changed.
type upkeepResult struct {
	before, after   int
	grown, shrunk   int
	merged, dropped int
}

func (r upkeepResult) changed() bool {
	return r.grown+r.shrunk+r.merged+r.dropped > 0
}

func logUpkeep(l *log.Entry, r upkeepResult) {
	if !r.changed() || !l.Logger.IsLevelEnabled(log.DebugLevel) {
		return
	}
	l.WithFields(log.Fields{
		"before":  r.before,
		"after":   r.after,
		"grown":   r.grown,
		"shrunk":  r.shrunk,
		"merged":  r.merged,
		"dropped": r.dropped,
	}).Debug("upkeep retargeted free list")
}
