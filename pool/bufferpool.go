// File: pool/bufferpool.go
// Author: momentics <momentics@gmail.com>
//
// The size-classed slab buffer pool (spec component J): supplies the
// backing []byte arrays for each socket record's fixed-size ring
// buffers (buffer_in, buffer_out). Adapted from the teacher's
// BufferPoolManager/slabPool size-class design, simplified to drop the
// NUMA/hugepage machinery that has no socket-record use here (see
// DESIGN.md, component J).
package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/netcore/api"
)

// sizeClasses mirrors spec.md 3's 4-64 KiB build-constant range for
// buffer_in/buffer_out.
var sizeClasses = [...]int{4 << 10, 8 << 10, 16 << 10, 32 << 10, 64 << 10}

// SlabPool is a size-classed, sync.Pool-backed allocator satisfying
// api.BytePool. Each size class gets its own sync.Pool so a socket
// closing at 8 KiB doesn't recycle into a 64 KiB caller and waste
// memory, matching the teacher's per-class isolation in slab_pool.go.
type SlabPool struct {
	classes    [len(sizeClasses)]sync.Pool
	totalAlloc atomic.Int64
	totalFree  atomic.Int64
}

// NewSlabPool constructs an empty slab pool.
func NewSlabPool() *SlabPool {
	sp := &SlabPool{}
	for i, size := range sizeClasses {
		size := size
		sp.classes[i].New = func() any {
			return make([]byte, size)
		}
	}
	return sp
}

// classIndexFor returns the index of the smallest size class that can
// hold n bytes, or -1 if n exceeds the largest class.
func classIndexFor(n int) int {
	for i, size := range sizeClasses {
		if n <= size {
			return i
		}
	}
	return -1
}

// Acquire returns a slice of at least n bytes, satisfying api.BytePool.
func (sp *SlabPool) Acquire(n int) []byte {
	idx := classIndexFor(n)
	if idx < 0 {
		sp.totalAlloc.Add(1)
		return make([]byte, n)
	}
	buf := sp.classes[idx].Get().([]byte)
	sp.totalAlloc.Add(1)
	return buf[:sizeClasses[idx]]
}

// Release returns buf to its size class's pool.
func (sp *SlabPool) Release(buf []byte) {
	idx := classIndexFor(cap(buf))
	// Only recycle exact size-class allocations; oversized buffers from
	// the >64 KiB fallback path are simply dropped for the GC to reclaim.
	if idx >= 0 && cap(buf) == sizeClasses[idx] {
		sp.classes[idx].Put(buf[:cap(buf)])
		sp.totalFree.Add(1)
	}
}

// Stats reports allocation/reuse counters for observability, exposed
// by netcore.Init through the "netcore.bufpool" debug probe.
func (sp *SlabPool) Stats() api.BufferPoolStats {
	alloc := sp.totalAlloc.Load()
	free := sp.totalFree.Load()
	return api.BufferPoolStats{
		TotalAlloc: alloc,
		TotalFree:  free,
		InUse:      alloc - free,
	}
}

var _ api.BytePool = (*SlabPool)(nil)

// BufferPoolManager adapts SlabPool to the richer api.BufferPool/
// api.Buffer zero-copy contract, segmented by NUMA node preference.
// NUMA node preference is accepted but, absent platform topology info,
// always resolves to node 0 — a deliberate simplification recorded in
// DESIGN.md rather than carrying over the teacher's hugepage/
// VirtualAllocExNuma machinery.
type BufferPoolManager struct {
	mu    sync.RWMutex
	slabs map[int]*SlabPool // keyed by resolved NUMA node, currently always {0: ...}
}

// NewBufferPoolManager creates an empty manager.
func NewBufferPoolManager() *BufferPoolManager {
	return &BufferPoolManager{slabs: make(map[int]*SlabPool)}
}

func resolveNUMANode(preferred int) int {
	return numaResolve(preferred)
}

// GetPool obtains or creates the SlabPool for a NUMA node, exposed for
// callers (e.g. control.DebugProbes) that want direct Stats access.
func (m *BufferPoolManager) GetPool(numaPreferred int) *SlabPool {
	node := resolveNUMANode(numaPreferred)
	m.mu.RLock()
	sp, ok := m.slabs[node]
	m.mu.RUnlock()
	if ok {
		return sp
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if sp, ok := m.slabs[node]; ok {
		return sp
	}
	sp = NewSlabPool()
	m.slabs[node] = sp
	return sp
}

type slabBuffer struct {
	data []byte
	pool *SlabPool
	node int
}

func (b *slabBuffer) Bytes() []byte { return b.data }

func (b *slabBuffer) Slice(from, to int) api.Buffer {
	return &slabBuffer{data: b.data[from:to], pool: b.pool, node: b.node}
}

func (b *slabBuffer) Release() {
	if b.pool != nil {
		b.pool.Release(b.data)
	}
}

func (b *slabBuffer) Copy() []byte {
	c := make([]byte, len(b.data))
	copy(c, b.data)
	return c
}

func (b *slabBuffer) NUMANode() int { return b.node }

// Get returns a zero-copy Buffer sized at least size bytes.
func (m *BufferPoolManager) Get(size int, numaPreferred int) api.Buffer {
	node := resolveNUMANode(numaPreferred)
	sp := m.GetPool(node)
	return &slabBuffer{data: sp.Acquire(size), pool: sp, node: node}
}

// Put returns buf to its owning pool.
func (m *BufferPoolManager) Put(buf api.Buffer) {
	if sb, ok := buf.(*slabBuffer); ok {
		sb.Release()
	}
}

// Stats aggregates stats across every NUMA-segmented slab pool.
func (m *BufferPoolManager) Stats() api.BufferPoolStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg := api.BufferPoolStats{NUMAStats: make(map[int]int64, len(m.slabs))}
	for node, sp := range m.slabs {
		s := sp.Stats()
		agg.TotalAlloc += s.TotalAlloc
		agg.TotalFree += s.TotalFree
		agg.InUse += s.InUse
		agg.NUMAStats[node] = s.InUse
	}
	return agg
}

var _ api.BufferPool = (*BufferPoolManager)(nil)
