//go:build windows
// +build windows

// control/platform_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows-specific metrics/debug introspection points.

package control

import (
	"runtime"
)

// RegisterPlatformProbes sets Windows-specific debug probes, plus the
// socket lifecycle counters if sm is non-nil.
func RegisterPlatformProbes(dp *DebugProbes, sm *SocketMetrics) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	if sm != nil {
		dp.RegisterProbe("netcore.sockets", func() any {
			return sm.Snapshot()
		})
	}
}
