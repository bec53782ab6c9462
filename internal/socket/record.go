// File: internal/socket/record.go
// Author: momentics <momentics@gmail.com>
//
// The socket record (spec component C): the per-socket heap object
// referenced indirectly through the handle registry. Holds identity,
// family, ring buffers, counters, addresses, and the transport function
// hooks selected at construction (TCP is the only variant implemented
// here; UDP and pipe transports are future variants per spec.md 9).
package socket

import (
	"sync/atomic"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
)

// Hooks is the polymorphic set of transport operations installed on a
// record at construction. TCP is the sole implementation; the shape
// mirrors the source's per-record function pointers (open, connect,
// read, write, stream_initialize) as spec.md 9 recommends modeling
// them: a small interface rather than raw function pointers.
type Hooks interface {
	// Open lazily creates the platform descriptor for the given family
	// if none exists yet, failing on family mismatch.
	Open(r *Record, family api.Family) error
	// Connect drives the connect(2)/WSAConnect(2) sequence.
	Connect(r *Record, remote addr.Address, timeoutMs int) error
	// BufferedRead pulls kernel data into buffer_in (spec.md 4.D).
	BufferedRead(r *Record, want int) error
	// BufferedWrite drains buffer_out to the kernel (spec.md 4.D).
	BufferedWrite(r *Record) error
}

// Record is the per-socket heap object. Exactly one goroutine may
// destroy it (the one observing ref transition to zero); everything
// else is either atomic or owned by whichever caller currently holds
// a live reference.
type Record struct {
	id  api.ID
	ref atomic.Int32

	// base is the slot index into the shared descriptor table, or -1
	// if no slot is currently claimed. Cleared to -1 before the slot
	// itself is released, per invariant 6.
	base atomic.Int32

	family api.Family

	addressLocal  *addr.Address
	addressRemote *addr.Address

	bufferIn  []byte
	bufferOut []byte

	offsetReadIn   int
	offsetWriteIn  int
	offsetWriteOut int

	bytesRead    uint64
	bytesWritten uint64

	stream any // back-pointer to *stream.Adapter; opaque to avoid import cycle

	hooks Hooks
	slots *slot.Table

	// savedFlags remembers flag settings requested while no descriptor
	// existed (or across a close/reopen), so a fresh Open can reapply
	// them — spec.md 4.D notes TCP_NODELAY specifically must survive
	// descriptor recreation, and the same mechanism serves REUSE_ADDR
	// and REUSE_PORT for consistency.
	savedFlags slot.Flag
}

// New allocates a record with id, installs hooks and the ring buffers,
// and initializes ref to 1 (the caller's own reference), matching
// spec.md 3's "ref: initialized to 1 at allocation".
func New(id api.ID, hooks Hooks, slots *slot.Table, bufIn, bufOut []byte) *Record {
	r := &Record{
		id:        id,
		hooks:     hooks,
		slots:     slots,
		bufferIn:  bufIn,
		bufferOut: bufOut,
	}
	r.ref.Store(1)
	r.base.Store(-1)
	return r
}

// ID returns the record's own identifier, for reverse lookup from
// slot to record.
func (r *Record) ID() api.ID { return r.id }

// Ref increments the reference count and returns the new value.
func (r *Record) Ref() int32 { return r.ref.Add(1) }

// Unref decrements the reference count and returns the new value. The
// caller observing 0 owns destruction.
func (r *Record) Unref() int32 { return r.ref.Add(-1) }

// RefCount returns the current reference count, for diagnostics.
func (r *Record) RefCount() int32 { return r.ref.Load() }

// Base returns the currently claimed slot index, or -1.
func (r *Record) Base() int { return int(r.base.Load()) }

// SetBase sets the claimed slot index.
func (r *Record) SetBase(b int) { r.base.Store(int32(b)) }

// Family returns the address family fixed at first descriptor creation.
func (r *Record) Family() api.Family { return r.family }

// SetFamily fixes the record's family; immutable thereafter by
// convention (callers must not call this after a descriptor exists).
func (r *Record) SetFamily(f api.Family) { r.family = f }

// Slot returns the record's currently claimed slot, or nil if base < 0.
func (r *Record) Slot() *slot.Slot {
	b := r.Base()
	if b < 0 {
		return nil
	}
	return r.slots.At(b)
}

// Slots returns the shared slot table this record's slots are claimed
// from, so a caller closing the record can release its slot without
// needing a separately threaded reference to the table.
func (r *Record) Slots() *slot.Table { return r.slots }

// SavedFlags returns the flags remembered across descriptor recreation.
func (r *Record) SavedFlags() slot.Flag { return r.savedFlags }

// AddSavedFlags ORs f into the remembered flag set.
func (r *Record) AddSavedFlags(f slot.Flag) { r.savedFlags |= f }

// ClearSavedFlags clears f from the remembered flag set.
func (r *Record) ClearSavedFlags(f slot.Flag) { r.savedFlags &^= f }

// AddressLocal returns the interior pointer to the local address,
// valid only while the caller holds a ref.
func (r *Record) AddressLocal() *addr.Address { return r.addressLocal }

// AddressRemote returns the interior pointer to the remote address.
func (r *Record) AddressRemote() *addr.Address { return r.addressRemote }

// SetAddressLocal stores a clone of a as the record's local address.
func (r *Record) SetAddressLocal(a addr.Address) {
	c := a.Clone()
	r.addressLocal = &c
}

// SetAddressRemote stores a clone of a as the record's remote address.
func (r *Record) SetAddressRemote(a addr.Address) {
	c := a.Clone()
	r.addressRemote = &c
}

// ClearAddresses frees both address fields (called from close).
func (r *Record) ClearAddresses() {
	r.addressLocal = nil
	r.addressRemote = nil
}

// Stream returns the back-pointer to this record's stream adapter, or
// nil if none is attached.
func (r *Record) Stream() any { return r.stream }

// SetStream attaches or clears the stream back-pointer. Invariant 4:
// at most one stream adapter references a given record.
func (r *Record) SetStream(s any) { r.stream = s }

// Hooks returns the transport hooks installed on this record.
func (r *Record) Hooks() Hooks { return r.hooks }

// BytesRead returns the lifetime read counter.
func (r *Record) BytesRead() uint64 { return r.bytesRead }

// BytesWritten returns the lifetime write counter.
func (r *Record) BytesWritten() uint64 { return r.bytesWritten }

// AddBytesRead increments the lifetime read counter.
func (r *Record) AddBytesRead(n uint64) { r.bytesRead += n }

// AddBytesWritten increments the lifetime write counter.
func (r *Record) AddBytesWritten(n uint64) { r.bytesWritten += n }

// BufferIn returns the fixed-size read ring buffer backing array.
func (r *Record) BufferIn() []byte { return r.bufferIn }

// BufferOut returns the fixed-size linear write buffer backing array.
func (r *Record) BufferOut() []byte { return r.bufferOut }

// OffsetReadIn returns the ring-buffer read cursor.
func (r *Record) OffsetReadIn() int { return r.offsetReadIn }

// OffsetWriteIn returns the ring-buffer write cursor.
func (r *Record) OffsetWriteIn() int { return r.offsetWriteIn }

// SetOffsetReadIn sets the ring-buffer read cursor.
func (r *Record) SetOffsetReadIn(v int) { r.offsetReadIn = v }

// SetOffsetWriteIn sets the ring-buffer write cursor.
func (r *Record) SetOffsetWriteIn(v int) { r.offsetWriteIn = v }

// OffsetWriteOut returns the linear fill level of buffer_out.
func (r *Record) OffsetWriteOut() int { return r.offsetWriteOut }

// SetOffsetWriteOut sets the linear fill level of buffer_out.
func (r *Record) SetOffsetWriteOut(v int) { r.offsetWriteOut = v }

// BufferedIn returns the number of bytes currently buffered in the
// read ring, per invariant 2: (write - read) mod capacity, one slot
// sacrificed so buffered <= capacity-1.
func (r *Record) BufferedIn() int {
	n := len(r.bufferIn)
	if n == 0 {
		return 0
	}
	d := r.offsetWriteIn - r.offsetReadIn
	if d < 0 {
		d += n
	}
	return d
}
