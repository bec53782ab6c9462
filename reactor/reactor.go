// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral event reactor interface for cross-platform IO
// multiplexing, plus SlotReactor which binds an EventReactor to the
// descriptor slot table (internal/slot.Table) so that an external event
// loop can drive readiness off raw file descriptors without ever
// dereferencing a socket record.

package reactor

import (
	"github.com/momentics/netcore/internal/slot"
)

// EventReactor defines basic reactor operations across OS platforms.
type EventReactor interface {
	// Register an FD (epoll) or HANDLE (Windows) for IO notifications.
	// userData is returned verbatim in Event.UserData on delivery; the
	// slot table's index is what SlotReactor stores there.
	Register(fd uintptr, userData uintptr) error

	// Wait blocks until events are available and writes into the output slice.
	// Returns number of events written or an error.
	Wait(events []Event) (n int, err error)

	// Close cleans up resources (handle/epfd).
	Close() error
}

// Event contains event information returned by Wait call.
type Event struct {
	Fd       uintptr // File descriptor or handle.
	UserData uintptr // User-provided data.
}

// SlotReactor binds an EventReactor to internal/slot.Table: Register
// takes a slot index rather than a raw fd, reading the fd out of the
// slot itself, and Wait resolves ready events back to slot indices.
// Nothing here dereferences internal/socket.Record — callers get
// indices to hand to internal/poller or a manager, satisfying spec.md
// 4.B's poller-scans-slots-only requirement.
type SlotReactor struct {
	r     EventReactor
	slots *slot.Table
	buf   []Event
}

// NewSlotReactor wraps r, sizing its internal event buffer to the slot
// table's capacity.
func NewSlotReactor(r EventReactor, slots *slot.Table) *SlotReactor {
	return &SlotReactor{r: r, slots: slots, buf: make([]Event, slots.Cap())}
}

// RegisterSlot arms the reactor on the descriptor currently held by
// slot index idx and marks the slot FlagPolled. The caller must have
// already opened a descriptor into the slot (SetFD).
func (sr *SlotReactor) RegisterSlot(idx int) error {
	sl := sr.slots.At(idx)
	if err := sr.r.Register(sl.FD(), uintptr(idx)); err != nil {
		return err
	}
	sl.AddFlags(slot.FlagPolled)
	return nil
}

// Wait blocks for reactor readiness and returns the slot indices that
// became ready, in delivery order.
func (sr *SlotReactor) Wait() ([]int, error) {
	n, err := sr.r.Wait(sr.buf)
	if err != nil {
		return nil, err
	}
	ready := make([]int, n)
	for i := 0; i < n; i++ {
		ready[i] = int(sr.buf[i].UserData)
	}
	return ready, nil
}

// Close releases the underlying reactor's resources.
func (sr *SlotReactor) Close() error { return sr.r.Close() }
