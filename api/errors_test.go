package api_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/momentics/hioload-memcache/api"
)

func TestError_IsSentinel(t *testing.T) {
	err := api.NewError(api.ErrCodeInvalidArgument, "block size must be positive").
		WithContext("block_size", 0)

	assert.True(t, errors.Is(err, api.ErrInvalidArgument))
	assert.False(t, errors.Is(err, api.ErrPoolClosed))
	assert.Contains(t, err.Error(), "block_size")
}

func TestError_NoContext(t *testing.T) {
	err := &api.Error{Code: api.ErrCodeInternal, Message: "boom"}
	assert.Equal(t, "boom", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestPoolStats_InUse(t *testing.T) {
	s := api.PoolStats{Allocated: 10, Freed: 2, Dropped: 1, FreeBlocks: 3}
	assert.EqualValues(t, 4, s.InUse())
}
