package pool

import (
	"sync"
	"time"
)

const (
	defaultMinFreeBlocks  = 64
	defaultUpkeepInterval = 10 * time.Millisecond
)

var (
	defaultOnce sync.Once
	defaultMgr  *Manager
)

// DefaultManager returns a process-wide lock-free Manager so components
// share pools per block size instead of fragmenting them.
// Its upkeeper is not running; start it with DefaultManager().Run(ctx).
func DefaultManager() *Manager {
	defaultOnce.Do(func() {
		defaultMgr = NewManager(VariantLockFree, defaultMinFreeBlocks, defaultUpkeepInterval)
	})
	return defaultMgr
}

// DefaultPool is a shortcut to fetch a pool from the default manager.
func DefaultPool(blockSize int) (Cache, error) {
	return DefaultManager().GetPool(blockSize)
}
