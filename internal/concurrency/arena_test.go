package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArena_AllocFreeReuse(t *testing.T) {
	a := NewArena[int](segmentSize)
	require.Equal(t, segmentSize, a.Cap())

	i1, n1, err := a.Alloc()
	require.NoError(t, err)
	require.EqualValues(t, 1, i1)
	n1.Value = 42

	i2, _, err := a.Alloc()
	require.NoError(t, err)
	require.EqualValues(t, 2, i2)
	assert.Equal(t, 2, a.Live())

	a.Free(i1)
	assert.Equal(t, 1, a.Live())

	i3, n3, err := a.Alloc()
	require.NoError(t, err)
	assert.Equal(t, i1, i3, "freed slot is reused first")
	assert.Zero(t, n3.Value, "freed slot is cleared")
}

func TestArena_SpansSegments(t *testing.T) {
	a := NewArena[uint32](3 * segmentSize)
	for i := 0; i < 2*segmentSize+5; i++ {
		idx, n, err := a.Alloc()
		require.NoError(t, err)
		n.Value = idx
	}
	for idx := uint32(1); idx <= 2*segmentSize+5; idx++ {
		require.Equal(t, idx, a.Node(idx).Value)
	}
}

func TestArena_Exhausted(t *testing.T) {
	a := NewArena[int](1) // rounds up to one segment
	for i := 0; i < segmentSize; i++ {
		_, _, err := a.Alloc()
		require.NoError(t, err)
	}
	_, _, err := a.Alloc()
	assert.ErrorIs(t, err, ErrArenaExhausted)

	a.Free(7)
	idx, _, err := a.Alloc()
	require.NoError(t, err)
	assert.EqualValues(t, 7, idx)
}

func TestArena_FreeZeroIsNoop(t *testing.T) {
	a := NewArena[int](0)
	assert.Equal(t, MaxArenaSlots, a.Cap())
	a.Free(0)
	assert.Equal(t, 0, a.Live())
}
