// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines the block pool ("memory cache") contracts shared by the pool,
// upkeep, metrics and debug layers.

package api

// MemCache is the maintenance and accounting surface of a fixed-size block pool.
// Acquire/Release live on the concrete pool types since they hand out blocks.
type MemCache interface {
	// Name identifies the pool in logs, metrics and debug probes.
	Name() string

	// Upkeep grows or shrinks the free list toward the configured minimum.
	Upkeep()

	// FreeBlocks returns the current number of free blocks.
	// Best-effort for lock-free pools under concurrent mutation.
	FreeBlocks() int

	// AllocationEvents returns the number of Upkeep calls that allocated.
	AllocationEvents() uint64

	// Stats exposes accounting counters for observability.
	Stats() PoolStats
}

// PoolStats aggregates block allocation and reuse counters.
type PoolStats struct {
	Name             string
	Variant          string
	BlockSize        int
	MinFreeBlocks    int
	FreeBlocks       int
	AllocationEvents uint64 // upkeep calls that performed at least one allocation
	Allocated        uint64 // blocks created by grow
	Freed            uint64 // blocks destroyed by shrink or close
	Acquires         uint64
	FailedAcquires   uint64
	Releases         uint64
	Merged           uint64 // lock-free: blocks released during upkeep and merged back
	Dropped          uint64 // lock-free: blocks released during upkeep and discarded
}

// InUse returns blocks created and not yet destroyed minus those resting free.
func (s PoolStats) InUse() int64 {
	return int64(s.Allocated) - int64(s.Freed) - int64(s.Dropped) - int64(s.FreeBlocks)
}
