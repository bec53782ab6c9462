// File: internal/slot/slot.go
// Author: momentics <momentics@gmail.com>
//
// The descriptor slot table (spec component B): a fixed-size array of
// descriptor+flag+state tuples. Sockets lazily claim a slot by
// monotonically incrementing a shared atomic cursor modulo capacity and
// CAS-ing a slot's object field from 0 to the caller's id, retrying on
// contention or occupation. This gives O(1) average claim time and a
// bounded worst case without a global lock.
//
// Slots are the only structure an external event loop (see reactor/)
// scans: a reader may inspect state and flags on any slot with nonzero
// object and fd != InvalidFD without ever dereferencing the (possibly
// destroyed) socket record that owns it.
package slot

import (
	"sync/atomic"
	"time"

	"github.com/momentics/netcore/api"
)

// InvalidFD is the sentinel platform descriptor value for an unclaimed
// or closed slot.
const InvalidFD = ^uintptr(0)

// Flag is a bitmask stored per slot.
type Flag uint32

const (
	FlagBlocking Flag = 1 << iota
	FlagReuseAddr
	FlagReusePort
	FlagTCPNoDelay
	FlagPolled
	FlagConnectionPending
	FlagErrorPending
	FlagHangupPending
	FlagReflush
)

// Slot is one row of the descriptor table.
//
// object is atomic and is the only field a concurrent external poller
// may read without additional synchronization. fd, flags, state and
// last_event are owned by whichever record currently holds the slot
// (via base) and are serialized through that record's own operations —
// the table itself does not lock them.
type Slot struct {
	object    atomic.Uint64
	fd        uintptr
	flags     Flag
	state     api.State
	lastEvent time.Time
}

// Object returns the id of the record currently owning this slot, or
// api.InvalidID if the slot is free. Safe to call concurrently from a
// poller thread.
func (s *Slot) Object() api.ID {
	return api.ID(s.object.Load())
}

// FD returns the platform descriptor stored in this slot.
func (s *Slot) FD() uintptr { return s.fd }

// SetFD sets the platform descriptor. Caller must own the slot.
func (s *Slot) SetFD(fd uintptr) { s.fd = fd }

// Flags returns the current flag bitmask.
func (s *Slot) Flags() Flag { return s.flags }

// SetFlags replaces the flag bitmask outright.
func (s *Slot) SetFlags(f Flag) { s.flags = f }

// AddFlags ORs flags into the bitmask.
func (s *Slot) AddFlags(f Flag) { s.flags |= f }

// ClearFlags clears the given bits from the bitmask.
func (s *Slot) ClearFlags(f Flag) { s.flags &^= f }

// Has reports whether all bits in f are set.
func (s *Slot) Has(f Flag) bool { return s.flags&f == f }

// State returns the slot's connection state.
func (s *Slot) State() api.State { return s.state }

// SetState sets the slot's connection state and stamps last_event.
func (s *Slot) SetState(st api.State) {
	s.state = st
	s.lastEvent = time.Now()
}

// LastEvent returns the timestamp of the most recent state change,
// used to debounce edge-triggered event delivery.
func (s *Slot) LastEvent() time.Time { return s.lastEvent }

// reset clears every field of the slot back to its free state. Called
// only by the owning record's close path, after CAS-releasing object.
func (s *Slot) reset() {
	s.fd = InvalidFD
	s.flags = 0
	s.state = api.StateNotConnected
	s.lastEvent = time.Time{}
}

// Table is the fixed-size descriptor slot table sized at Init(maxSockets).
type Table struct {
	slots  []Slot
	cursor atomic.Uint64
}

// NewTable allocates a slot table with capacity for maxSockets
// concurrently open descriptors.
func NewTable(maxSockets int) *Table {
	t := &Table{slots: make([]Slot, maxSockets)}
	for i := range t.slots {
		t.slots[i].fd = InvalidFD
	}
	return t
}

// Cap returns the table's fixed capacity.
func (t *Table) Cap() int { return len(t.slots) }

// At returns a pointer to slot index i for direct inspection by a
// poller. Callers must not exceed Cap().
func (t *Table) At(i int) *Slot { return &t.slots[i] }

// Claim finds a free slot for id, returning its index, or -1 if the
// table is full. The cursor advances monotonically so that repeated
// claims spread across the table rather than always retrying slot 0.
func (t *Table) Claim(id api.ID) int {
	n := uint64(len(t.slots))
	if n == 0 {
		return -1
	}
	for attempt := uint64(0); attempt < n; attempt++ {
		idx := t.cursor.Add(1) % n
		s := &t.slots[idx]
		if s.object.CompareAndSwap(0, uint64(id)) {
			return int(idx)
		}
	}
	return -1
}

// Release frees slot index i, resetting it for reuse. The caller (the
// record that owns the slot, from close()) must have already zeroed
// its own base field before calling Release, per invariant 6.
func (t *Table) Release(i int) {
	s := &t.slots[i]
	s.object.Store(0)
	s.reset()
}
