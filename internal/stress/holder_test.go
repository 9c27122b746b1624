package stress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/hioload-memcache/pool"
)

func TestHolderOrder(t *testing.T) {
	c, err := pool.New(pool.VariantLocked, 3, 8)
	require.NoError(t, err)
	defer c.Close()
	c.Upkeep()
	blocks := []*pool.Block{c.Acquire(), c.Acquire(), c.Acquire()}

	tests := []struct {
		order Order
		want  []int
	}{
		{LIFO, []int{2, 1, 0}},
		{FIFO, []int{0, 1, 2}},
	}
	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			h := newHolder(tt.order, 2)
			for i, b := range blocks {
				h.push(b, mark{value: i})
			}
			require.Equal(t, 3, h.len())

			var seen []int
			require.NoError(t, h.each(func(b *pool.Block, m mark) error {
				assert.Same(t, blocks[m.value], b)
				seen = append(seen, m.value)
				return nil
			}))
			assert.Equal(t, []int{0, 1, 2}, seen, "each walks oldest first")

			var popped []int
			for b, m, ok := h.pop(); ok; b, m, ok = h.pop() {
				assert.Same(t, blocks[m.value], b)
				popped = append(popped, m.value)
			}
			assert.Equal(t, tt.want, popped)
			assert.Zero(t, h.len())
		})
	}

	for _, b := range blocks {
		c.Release(b)
	}
}
