//go:build linux

// File: pool/bufferpool_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux NUMA node resolution for BufferPoolManager. Real topology
// queries (sched_getaffinity + /sys/devices/system/node) are the
// teacher's approach in the deleted numa_linux.go; netcore has no
// per-node allocation requirement for ring buffers, so this always
// resolves to node 0 (see DESIGN.md's deliberate-simplification entry
// for pool/bufpool).
package pool

func numaResolve(preferred int) int { return 0 }
