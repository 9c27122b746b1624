package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-memcache/pool"
)

type recordingReleaser struct{ got []*pool.Block }

func (r *recordingReleaser) Release(b *pool.Block) { r.got = append(r.got, b) }

func TestBatch(t *testing.T) {
	c := newCache(t, pool.VariantLocked, 3, 8)
	c.Upkeep()

	b := pool.NewBatch(2)
	assert.Nil(t, b.Pop())

	blocks := []*pool.Block{c.Acquire(), c.Acquire(), c.Acquire()}
	for _, blk := range blocks {
		require.NotNil(t, blk)
		b.Append(blk)
	}
	require.Equal(t, 3, b.Len())
	assert.Same(t, blocks[1], b.Get(1))

	rec := &recordingReleaser{}
	b.ReleaseAll(rec)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, []*pool.Block{blocks[2], blocks[1], blocks[0]}, rec.got)

	b.Append(blocks[0])
	b.Reset()
	assert.Equal(t, 0, b.Len())

	for _, blk := range blocks {
		c.Release(blk)
	}
	assert.Equal(t, 3, c.FreeBlocks())
}
