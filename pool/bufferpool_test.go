package pool

import "testing"

func TestSlabPool_AcquireRoundsToSizeClass(t *testing.T) {
	sp := NewSlabPool()
	buf := sp.Acquire(100)
	if len(buf) != sizeClasses[0] {
		t.Fatalf("expected acquire(100) to round up to the smallest size class %d, got %d",
			sizeClasses[0], len(buf))
	}
}

func TestSlabPool_OversizedFallsBackToRawAllocation(t *testing.T) {
	sp := NewSlabPool()
	huge := sizeClasses[len(sizeClasses)-1] + 1
	buf := sp.Acquire(huge)
	if len(buf) != huge {
		t.Fatalf("expected an oversized request to get an exact allocation, got %d want %d", len(buf), huge)
	}

	before := sp.Stats()
	sp.Release(buf)
	after := sp.Stats()
	if after.TotalFree != before.TotalFree {
		t.Fatal("expected an oversized buffer release to be dropped rather than recycled")
	}
}

func TestSlabPool_ReleaseRecyclesExactSizeClass(t *testing.T) {
	sp := NewSlabPool()
	buf := sp.Acquire(sizeClasses[0])
	before := sp.Stats()
	sp.Release(buf)
	after := sp.Stats()
	if after.TotalFree != before.TotalFree+1 {
		t.Fatalf("expected a size-class-exact release to be recorded, before=%d after=%d",
			before.TotalFree, after.TotalFree)
	}
}

func TestBufferPoolManager_GetPutRoundTrip(t *testing.T) {
	m := NewBufferPoolManager()
	buf := m.Get(1024, 3) // NUMA preference always resolves to node 0 in this build.
	if buf.NUMANode() != 0 {
		t.Fatalf("expected NUMA node to resolve to 0, got %d", buf.NUMANode())
	}
	data := buf.Bytes()
	if len(data) < 1024 {
		t.Fatalf("expected at least 1024 bytes, got %d", len(data))
	}
	m.Put(buf)

	stats := m.Stats()
	if stats.InUse != 0 {
		t.Fatalf("expected 0 buffers in use after Put, got %d", stats.InUse)
	}
}

func TestSlabBuffer_SliceSharesBackingArray(t *testing.T) {
	m := NewBufferPoolManager()
	buf := m.Get(16, 0)
	copy(buf.Bytes(), []byte("0123456789ABCDEF"))

	slice := buf.Slice(4, 8)
	if string(slice.Bytes()) != "4567" {
		t.Fatalf("expected sliced view %q, got %q", "4567", slice.Bytes())
	}

	c := slice.Copy()
	c[0] = 'X'
	if slice.Bytes()[0] == 'X' {
		t.Fatal("expected Copy() to be independent of the original backing array")
	}
}
