// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"sync/atomic"

	"github.com/momentics/hioload-memcache/api"
)

// CountingCache is a stub api.MemCache that only counts Upkeep calls.
type CountingCache struct {
	ID       string
	upkeeps  atomic.Uint64
	OnUpkeep func()
}

var _ api.MemCache = (*CountingCache)(nil)

func (c *CountingCache) Name() string { return c.ID }

func (c *CountingCache) Upkeep() {
	c.upkeeps.Add(1)
	if c.OnUpkeep != nil {
		c.OnUpkeep()
	}
}

// Upkeeps returns how many times Upkeep ran.
func (c *CountingCache) Upkeeps() uint64 { return c.upkeeps.Load() }

func (c *CountingCache) FreeBlocks() int { return 0 }

func (c *CountingCache) AllocationEvents() uint64 { return 0 }

func (c *CountingCache) Stats() api.PoolStats {
	return api.PoolStats{Name: c.ID, Variant: "fake"}
}
