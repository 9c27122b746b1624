// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

package fake

import (
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// Record is a pointer-free payload used to check block integrity.
// Every field is derived from one int so a reader can verify it knows
// what the writer stored.
type Record struct {
	I int32
	F float32
	D float64
}

// RecordSize is the number of bytes a Record occupies in a block.
const RecordSize = int(unsafe.Sizeof(Record{}))

// Set derives all fields from v.
func (r *Record) Set(v int) {
	r.I = int32(v)
	r.F = float32(v) * 0.5
	r.D = float64(v) * 1.3
}

// Verify reports whether r still holds what Set(v) wrote.
func (r *Record) Verify(v int) bool {
	return r.I == int32(v) &&
		r.F == float32(v)*0.5 &&
		r.D == float64(v)*1.3
}

// Digest hashes the record's raw bytes.
func (r *Record) Digest() uint64 {
	return xxhash.Sum64(unsafe.Slice((*byte)(unsafe.Pointer(r)), RecordSize))
}
