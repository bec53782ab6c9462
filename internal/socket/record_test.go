package socket

import (
	"testing"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
)

// stubHooks satisfies Hooks for tests that never exercise IO.
type stubHooks struct{}

func (stubHooks) Open(*Record, api.Family) error              { return nil }
func (stubHooks) Connect(*Record, addr.Address, int) error    { return nil }
func (stubHooks) BufferedRead(*Record, int) error              { return nil }
func (stubHooks) BufferedWrite(*Record) error                  { return nil }

func TestRecord_RefCountLifecycle(t *testing.T) {
	tbl := slot.NewTable(1)
	r := New(api.ID(1), stubHooks{}, tbl, make([]byte, 8), make([]byte, 8))

	if r.RefCount() != 1 {
		t.Fatalf("expected initial refcount 1, got %d", r.RefCount())
	}
	if got := r.Ref(); got != 2 {
		t.Fatalf("expected refcount 2 after Ref, got %d", got)
	}
	if got := r.Unref(); got != 1 {
		t.Fatalf("expected refcount 1 after Unref, got %d", got)
	}
	if got := r.Unref(); got != 0 {
		t.Fatalf("expected refcount 0 after second Unref, got %d", got)
	}
}

func TestRecord_BaseDefaultsToUnclaimed(t *testing.T) {
	tbl := slot.NewTable(1)
	r := New(api.ID(1), stubHooks{}, tbl, nil, nil)
	if r.Base() != -1 {
		t.Fatalf("expected fresh record to report base -1, got %d", r.Base())
	}
	if r.Slot() != nil {
		t.Fatal("expected Slot() to be nil when base is unclaimed")
	}
	r.SetBase(0)
	if r.Slot() == nil {
		t.Fatal("expected Slot() to resolve once base is claimed")
	}
}

func TestRecord_BufferedInWraps(t *testing.T) {
	tbl := slot.NewTable(1)
	r := New(api.ID(1), stubHooks{}, tbl, make([]byte, 8), nil)

	// write ahead of read: straightforward case.
	r.SetOffsetReadIn(2)
	r.SetOffsetWriteIn(5)
	if got := r.BufferedIn(); got != 3 {
		t.Fatalf("expected 3 buffered bytes, got %d", got)
	}

	// write behind read: wrapped case, buffered = capacity - (read-write).
	r.SetOffsetReadIn(6)
	r.SetOffsetWriteIn(2)
	if got := r.BufferedIn(); got != 4 {
		t.Fatalf("expected 4 buffered bytes across the wrap, got %d", got)
	}
}

func TestRecord_SavedFlagsRoundTrip(t *testing.T) {
	tbl := slot.NewTable(1)
	r := New(api.ID(1), stubHooks{}, tbl, nil, nil)

	r.AddSavedFlags(slot.FlagTCPNoDelay | slot.FlagReuseAddr)
	if r.SavedFlags()&slot.FlagTCPNoDelay == 0 {
		t.Fatal("expected FlagTCPNoDelay to be saved")
	}
	r.ClearSavedFlags(slot.FlagTCPNoDelay)
	if r.SavedFlags()&slot.FlagTCPNoDelay != 0 {
		t.Fatal("expected FlagTCPNoDelay to be cleared")
	}
	if r.SavedFlags()&slot.FlagReuseAddr == 0 {
		t.Fatal("expected FlagReuseAddr to remain set")
	}
}
