// File: internal/concurrency/lock_free_list.go
// Package concurrency provides a lock-free LIFO list over arena indices.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The head is a single 64-bit word packing a 32-bit version tag and a 32-bit
// arena index. Every successful head change bumps the tag, so a compare-and-swap
// taken against a stale snapshot fails even when the same node is back on top.

package concurrency

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// LockFreeList is a Treiber stack of arena nodes.
// Push, Pop and ExchangeHead are safe for concurrent use.
type LockFreeList[T any] struct {
	_     cpu.CacheLinePad
	head  atomic.Uint64
	_     cpu.CacheLinePad
	arena *Arena[T]
}

func pack(tag, idx uint32) uint64 { return uint64(tag)<<32 | uint64(idx) }

func unpack(w uint64) (tag, idx uint32) { return uint32(w >> 32), uint32(w) }

// NewLockFreeList creates a list over arena whose first node is head (0 = empty).
func NewLockFreeList[T any](arena *Arena[T], head uint32) *LockFreeList[T] {
	l := &LockFreeList[T]{arena: arena}
	l.head.Store(pack(0, head))
	return l
}

// Push links idx in front of the current head.
func (l *LockFreeList[T]) Push(idx uint32) {
	if idx == 0 {
		return
	}
	n := l.arena.Node(idx)
	for {
		old := l.head.Load()
		tag, top := unpack(old)
		n.next.Store(top)
		if l.head.CompareAndSwap(old, pack(tag+1, idx)) {
			return
		}
	}
}

// Pop detaches the front node. ok is false when the list is empty.
func (l *LockFreeList[T]) Pop() (idx uint32, ok bool) {
	for {
		old := l.head.Load()
		tag, top := unpack(old)
		if top == 0 {
			return 0, false
		}
		n := l.arena.Node(top)
		next := n.next.Load()
		if l.head.CompareAndSwap(old, pack(tag+1, next)) {
			n.next.Store(0)
			return top, true
		}
	}
}

// ExchangeHead atomically replaces the head with idx and returns the previous
// front index. The returned chain is detached and owned by the caller.
func (l *LockFreeList[T]) ExchangeHead(idx uint32) uint32 {
	for {
		old := l.head.Load()
		tag, top := unpack(old)
		if l.head.CompareAndSwap(old, pack(tag+1, idx)) {
			return top
		}
	}
}

// Head returns the current front index without modifying the list.
func (l *LockFreeList[T]) Head() uint32 {
	_, top := unpack(l.head.Load())
	return top
}

// Len counts nodes reachable from one head snapshot.
// Not linearizable under concurrent mutation; bounded by the arena capacity.
func (l *LockFreeList[T]) Len() int {
	return l.chainLen(l.Head())
}

func (l *LockFreeList[T]) chainLen(idx uint32) int {
	limit := l.arena.Cap()
	n := 0
	for ; idx != 0 && n < limit; n++ {
		idx = l.arena.Node(idx).next.Load()
	}
	return n
}

// PushChain pushes every node of a detached chain starting at first and
// returns how many were pushed.
func (l *LockFreeList[T]) PushChain(first uint32) int {
	n := 0
	for idx := first; idx != 0; n++ {
		next := l.arena.Node(idx).next.Load()
		l.Push(idx)
		idx = next
	}
	return n
}

// WalkChain calls fn for each node of a detached chain starting at first.
// The link is read before fn runs, so fn may free the node.
func WalkChain[T any](arena *Arena[T], first uint32, fn func(idx uint32)) {
	for idx := first; idx != 0; {
		n := arena.Node(idx)
		next := n.next.Load()
		n.next.Store(0)
		fn(idx)
		idx = next
	}
}
