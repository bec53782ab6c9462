package reactor

import (
	"testing"

	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
)

// fakeReactor is a minimal in-memory EventReactor for exercising
// SlotReactor without any real epoll/IOCP handle.
type fakeReactor struct {
	registered map[uintptr]uintptr
	pending    []Event
	closed     bool
}

func newFakeReactor() *fakeReactor {
	return &fakeReactor{registered: make(map[uintptr]uintptr)}
}

func (f *fakeReactor) Register(fd uintptr, userData uintptr) error {
	f.registered[fd] = userData
	return nil
}

func (f *fakeReactor) Wait(events []Event) (int, error) {
	n := copy(events, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakeReactor) Close() error {
	f.closed = true
	return nil
}

func TestSlotReactor_RegisterSlotArmsUnderlyingReactor(t *testing.T) {
	tbl := slot.NewTable(4)
	idx := tbl.Claim(api.ID(1))
	sl := tbl.At(idx)
	sl.SetFD(99)

	fake := newFakeReactor()
	sr := NewSlotReactor(fake, tbl)

	if err := sr.RegisterSlot(idx); err != nil {
		t.Fatalf("RegisterSlot failed: %v", err)
	}
	if fake.registered[99] != uintptr(idx) {
		t.Fatalf("expected fd 99 registered with userData=%d, got %d", idx, fake.registered[99])
	}
	if !sl.Has(slot.FlagPolled) {
		t.Fatal("expected RegisterSlot to mark the slot FlagPolled")
	}
}

func TestSlotReactor_WaitResolvesToSlotIndices(t *testing.T) {
	tbl := slot.NewTable(4)
	idxA := tbl.Claim(api.ID(1))
	idxB := tbl.Claim(api.ID(2))
	tbl.At(idxA).SetFD(10)
	tbl.At(idxB).SetFD(20)

	fake := newFakeReactor()
	sr := NewSlotReactor(fake, tbl)
	sr.RegisterSlot(idxA)
	sr.RegisterSlot(idxB)

	fake.pending = []Event{
		{Fd: 20, UserData: uintptr(idxB)},
		{Fd: 10, UserData: uintptr(idxA)},
	}

	ready, err := sr.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(ready) != 2 || ready[0] != idxB || ready[1] != idxA {
		t.Fatalf("expected ready indices [%d %d] in delivery order, got %v", idxB, idxA, ready)
	}
}

func TestSlotReactor_CloseDelegatesToUnderlyingReactor(t *testing.T) {
	tbl := slot.NewTable(1)
	fake := newFakeReactor()
	sr := NewSlotReactor(fake, tbl)

	if err := sr.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !fake.closed {
		t.Fatal("expected SlotReactor.Close to delegate to the underlying reactor")
	}
}
