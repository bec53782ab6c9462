//go:build !linux && !windows
// +build !linux,!windows

// control/platform_stub.go
// Author: momentics <momentics@gmail.com>
//
// Debug probe registration for platforms without a dedicated probe set.

package control

import "runtime"

// RegisterPlatformProbes sets generic debug probes, plus the socket
// lifecycle counters if sm is non-nil.
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
