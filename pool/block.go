// File: pool/block.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// noCopy lets `go vet` flag accidental Block copies.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Block owns one fixed-size byte buffer handed out by a pool.
// A Block has exactly one owner at a time; it must not be copied.
type Block struct {
	noCopy noCopy

	data  []byte
	slot  uint32 // arena slot for lock-free pools, 0 otherwise
	held  atomic.Bool
	owner Cache
}

// Bytes returns the block's buffer. len == cap == the pool's block size.
func (b *Block) Bytes() []byte { return b.data }

// Len returns the buffer size in bytes.
func (b *Block) Len() int { return len(b.data) }

// claim transfers ownership from a caller back to pool c.
func (b *Block) claim(c Cache) {
	if b.owner != c {
		panic(fmt.Sprintf("pool: block released into %q but belongs to another pool", c.Name()))
	}
	if !b.held.CompareAndSwap(true, false) {
		panic(fmt.Sprintf("pool: block released twice into %q", c.Name()))
	}
}

// As reinterprets the block's bytes as *T without copying.
//
// T must be free of Go pointers: the buffer is untyped memory the garbage
// collector does not scan. The only check is that T fits in the block.
func As[T any](b *Block) *T {
	var zero T
	if size := unsafe.Sizeof(zero); uintptr(len(b.data)) < size {
		panic(fmt.Sprintf("pool: %T needs %d bytes, block has %d", zero, size, len(b.data)))
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(b.data)))
}

// allocBuffer returns a size-byte buffer aligned for any 8-byte word.
func allocBuffer(size int) []byte {
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
}
