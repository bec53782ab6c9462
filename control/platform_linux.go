//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific platform metrics or debug probe integrations.

package control

import (
	"runtime"
)

// RegisterPlatformProbes sets Linux-specific debug metrics, plus the
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
