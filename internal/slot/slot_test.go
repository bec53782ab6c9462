package slot

import (
	"sync"
	"testing"

	"github.com/momentics/netcore/api"
)

func TestTable_ClaimAndRelease(t *testing.T) {
	tbl := NewTable(4)
	idx := tbl.Claim(api.ID(1))
	if idx < 0 {
		t.Fatal("Claim failed on an empty table")
	}
	sl := tbl.At(idx)
	if sl.Object() != api.ID(1) {
		t.Fatalf("expected slot object 1, got %d", sl.Object())
	}
	if sl.FD() != InvalidFD {
		t.Fatalf("expected fresh slot to carry InvalidFD, got %d", sl.FD())
	}

	sl.SetFD(42)
	sl.AddFlags(FlagBlocking | FlagTCPNoDelay)
	if !sl.Has(FlagBlocking) || !sl.Has(FlagTCPNoDelay) {
		t.Fatal("expected both flags to be set")
	}
	sl.ClearFlags(FlagBlocking)
	if sl.Has(FlagBlocking) {
		t.Fatal("expected FlagBlocking to be cleared")
	}

	tbl.Release(idx)
	if sl.Object() != api.InvalidID {
		t.Fatal("expected slot object to be cleared after Release")
	}
	if sl.FD() != InvalidFD {
		t.Fatal("expected slot fd to reset to InvalidFD after Release")
	}
	if sl.Flags() != 0 {
		t.Fatal("expected slot flags to reset to 0 after Release")
	}
}

func TestTable_ClaimFullFails(t *testing.T) {
	tbl := NewTable(2)
	if idx := tbl.Claim(api.ID(1)); idx < 0 {
		t.Fatal("first claim on a 2-slot table should succeed")
	}
	if idx := tbl.Claim(api.ID(2)); idx < 0 {
		t.Fatal("second claim on a 2-slot table should succeed")
	}
	if idx := tbl.Claim(api.ID(3)); idx >= 0 {
		t.Fatalf("expected Claim to fail once the table is full, got index %d", idx)
	}
}

func TestTable_ConcurrentClaimNoOverlap(t *testing.T) {
	tbl := NewTable(32)
	var wg sync.WaitGroup
	results := make(chan int, tbl.Cap())

	for i := 0; i < tbl.Cap(); i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if idx := tbl.Claim(api.ID(id + 1)); idx >= 0 {
				results <- idx
			}
		}(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for idx := range results {
		if seen[idx] {
			t.Fatalf("slot %d claimed by more than one goroutine", idx)
		}
		seen[idx] = true
	}
	if len(seen) != tbl.Cap() {
		t.Fatalf("expected %d distinct claims, got %d", tbl.Cap(), len(seen))
	}
}

func TestSlot_StateAndLastEvent(t *testing.T) {
	tbl := NewTable(1)
	idx := tbl.Claim(api.ID(1))
	sl := tbl.At(idx)

	if sl.State() != api.StateNotConnected {
		t.Fatalf("expected fresh slot state NOT_CONNECTED, got %s", sl.State())
	}
	before := sl.LastEvent()
	sl.SetState(api.StateConnected)
	if sl.State() != api.StateConnected {
		t.Fatal("expected state to update to CONNECTED")
	}
	if !sl.LastEvent().After(before) {
		t.Fatal("expected SetState to advance last_event timestamp")
	}
}
