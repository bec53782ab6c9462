//go:build !linux && !windows

// File: pool/bufferpool_stub.go
// Author: momentics <momentics@gmail.com>
//
// Fallback NUMA node resolution for platforms without a topology probe.
package pool

func numaResolve(preferred int) int { return 0 }
