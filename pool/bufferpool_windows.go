//go:build windows

// File: pool/bufferpool_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows NUMA node resolution for BufferPoolManager. The teacher used
// VirtualAllocExNuma for hugepage-backed per-node allocation; netcore's
// ring buffers are small and short-lived, so this always resolves to
// node 0 rather than carrying that machinery forward (see DESIGN.md).
package pool

func numaResolve(preferred int) int { return 0 }
