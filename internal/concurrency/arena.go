// File: internal/concurrency/arena.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Segmented, index-addressed node storage backing the lock-free list.
// Segments are allocated lazily and never moved or unmapped, so any index
// ever handed out stays dereferenceable for the lifetime of the arena.

package concurrency

import (
	"sync"
	"sync/atomic"
)

const (
	segmentShift = 10
	segmentSize  = 1 << segmentShift
	segmentMask  = segmentSize - 1

	// MaxArenaSlots is the hard upper bound of slots an arena can address.
	MaxArenaSlots = 1 << 26
)

// Node is an arena slot: a payload plus the intrusive link used by LockFreeList.
// next holds the index of the following node, 0 meaning nil.
type Node[T any] struct {
	next  atomic.Uint32
	Value T
}

type segment[T any] [segmentSize]Node[T]

// Arena hands out stable 1-based uint32 indices to Node[T] slots.
// Alloc and Free are serialized; Node is lock-free.
type Arena[T any] struct {
	segments []atomic.Pointer[segment[T]]

	mu   sync.Mutex
	free []uint32 // recycled slots
	used uint32   // high-water mark
	live atomic.Int64
}

// NewArena creates an arena addressing up to maxSlots slots.
// maxSlots <= 0 or above MaxArenaSlots selects MaxArenaSlots.
func NewArena[T any](maxSlots int) *Arena[T] {
	if maxSlots <= 0 || maxSlots > MaxArenaSlots {
		maxSlots = MaxArenaSlots
	}
	n := (maxSlots + segmentSize - 1) / segmentSize
	return &Arena[T]{
		segments: make([]atomic.Pointer[segment[T]], n),
	}
}

// Alloc reserves a slot and returns its index and node.
// The node's link is cleared and its Value holds the zero value or whatever
// the caller stored before the slot was last freed and cleared.
func (a *Arena[T]) Alloc() (uint32, *Node[T], error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		if int(a.used) >= a.Cap() {
			return 0, nil, ErrArenaExhausted
		}
		a.used++
		idx = a.used
		si := (idx - 1) >> segmentShift
		if a.segments[si].Load() == nil {
			a.segments[si].Store(new(segment[T]))
		}
	}
	a.live.Add(1)
	return idx, a.Node(idx), nil
}

// Free clears the slot and makes it available for reuse.
// Stale readers may still load the slot's link; list tags make that harmless.
func (a *Arena[T]) Free(idx uint32) {
	if idx == 0 {
		return
	}
	n := a.Node(idx)
	var zero T
	n.Value = zero
	n.next.Store(0)

	a.mu.Lock()
	a.free = append(a.free, idx)
	a.mu.Unlock()
	a.live.Add(-1)
}

// Node returns the slot for idx. idx must have been returned by Alloc.
func (a *Arena[T]) Node(idx uint32) *Node[T] {
	i := idx - 1
	return &a.segments[i>>segmentShift].Load()[i&segmentMask]
}

// Live returns the number of slots currently allocated.
func (a *Arena[T]) Live() int { return int(a.live.Load()) }

// Cap returns the number of addressable slots.
func (a *Arena[T]) Cap() int { return len(a.segments) * segmentSize }
