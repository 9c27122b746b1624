//go:build linux

package concurrency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNthCPU(t *testing.T) {
	var set unix.CPUSet
	assert.Equal(t, -1, nthCPU(&set, 0))

	set.Set(1)
	set.Set(3)
	set.Set(70)
	assert.Equal(t, 1, nthCPU(&set, 0))
	assert.Equal(t, 3, nthCPU(&set, 1))
	assert.Equal(t, 70, nthCPU(&set, 2))
	assert.Equal(t, 1, nthCPU(&set, 3), "wraps around")
	assert.Equal(t, 70, nthCPU(&set, -1))
}

func TestPinCurrentThread(t *testing.T) {
	var before unix.CPUSet
	require.NoError(t, unix.SchedGetaffinity(0, &before))

	done := make(chan error, 1)
	go func() {
		if err := PinCurrentThread(0); err != nil {
			done <- err
			return
		}
		// leave the thread locked so the runtime discards it on exit
		var now unix.CPUSet
		if err := unix.SchedGetaffinity(0, &now); err != nil {
			done <- err
			return
		}
		if now.Count() != 1 || !now.IsSet(nthCPU(&before, 0)) {
			done <- ErrPinUnsupported
			return
		}
		done <- nil
	}()
	assert.NoError(t, <-done)
}
