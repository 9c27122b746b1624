// Package pool — zero-alloc batching without locks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Batch is a stack of held blocks owned by one goroutine.
// This implementation is NOT thread-safe and avoids mutex in hot-path.

package pool

// Releaser is anything blocks can be handed back to.
type Releaser interface {
	Release(b *Block)
}

// Batch holds acquired blocks, most recent last.
type Batch struct {
	blocks []*Block
}

// NewBatch creates a new batch with given capacity.
func NewBatch(capacity int) *Batch {
	return &Batch{
		blocks: make([]*Block, 0, capacity),
	}
}

// Append adds a block to the batch.
func (b *Batch) Append(blk *Block) {
	b.blocks = append(b.blocks, blk)
}

// Pop removes and returns the most recently appended block, or nil.
func (b *Batch) Pop() *Block {
	n := len(b.blocks)
	if n == 0 {
		return nil
	}
	blk := b.blocks[n-1]
	b.blocks[n-1] = nil
	b.blocks = b.blocks[:n-1]
	return blk
}

// Len returns number of blocks in the batch.
func (b *Batch) Len() int {
	return len(b.blocks)
}

// Get retrieves the block at index.
func (b *Batch) Get(idx int) *Block {
	return b.blocks[idx]
}

// ReleaseAll hands every block back to r, most recent first, and empties the batch.
func (b *Batch) ReleaseAll(r Releaser) {
	for blk := b.Pop(); blk != nil; blk = b.Pop() {
		r.Release(blk)
	}
}

// Reset clears the batch retaining underlying storage.
func (b *Batch) Reset() {
	clear(b.blocks)
	b.blocks = b.blocks[:0]
}
