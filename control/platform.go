// control/platform.go
// Author: momentics <momentics@gmail.com>
//
// Platform debug probes shared by every OS.

package control

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// RegisterPlatformProbes sets CPU and Go runtime debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.cache_line", func() any {
		return int(unsafe.Sizeof(cpu.CacheLinePad{}))
	})
	dp.RegisterProbe("runtime.goroutines", func() any {
		return runtime.NumGoroutine()
	})
	dp.RegisterProbe("runtime.heap", func() any {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return map[string]uint64{
			"alloc_bytes": ms.HeapAlloc,
			"objects":     ms.HeapObjects,
			"gc_cycles":   uint64(ms.NumGC),
		}
	})
	registerOSProbes(dp)
}
