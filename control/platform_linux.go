//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probe integrations.

package control

import (
	"golang.org/x/sys/unix"
)

func registerOSProbes(dp *DebugProbes) {
	// CPUs this process may run on, which can be fewer than NumCPU under cgroups or taskset.
	dp.RegisterProbe("platform.affinity_cpus", func() any {
		var set unix.CPUSet
		if err := unix.SchedGetaffinity(0, &set); err != nil {
			return -1
		}
		return set.Count()
	})
}
