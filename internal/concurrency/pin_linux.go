//go:build linux
// +build linux

// File: internal/concurrency/pin_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux runtime pinning through sched_setaffinity, no cgo required.

package concurrency

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// PinCurrentThread locks the calling goroutine to its OS thread and binds that
// thread to the cpu-th CPU of the process's allowed set (modulo its size).
// The goroutine stays locked; when it exits the runtime discards the thread.
func PinCurrentThread(cpu int) error {
	var allowed unix.CPUSet
	if err := unix.SchedGetaffinity(0, &allowed); err != nil {
		return err
	}
	target := nthCPU(&allowed, cpu)
	if target < 0 {
		return ErrPinUnsupported
	}

	runtime.LockOSThread()
	var set unix.CPUSet
	set.Set(target)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

// nthCPU returns the id of the (n mod count)-th CPU in set, or -1 if empty.
func nthCPU(set *unix.CPUSet, n int) int {
	count := set.Count()
	if count == 0 {
		return -1
	}
	n %= count
	if n < 0 {
		n += count
	}
	for id := 0; id < len(set)*64; id++ {
		if set.IsSet(id) {
			if n == 0 {
				return id
			}
			n--
		}
	}
	return -1
}
