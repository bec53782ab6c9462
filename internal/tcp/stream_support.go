// File: internal/tcp/stream_support.go
// Author: momentics <momentics@gmail.com>
//
// The narrow surface stream.Adapter (component F) needs from component
// D: ring-buffer copy primitives plus buffered-read/write entry
// points, each wrapped in the registry lookup/release discipline of
// spec.md 5. Keeping these here (rather than exposing internal/socket
// directly to stream/) preserves the data-flow spec.md 2 describes:
// "F wraps an identifier and routes read/write through A->C->D".
package tcp

import (
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/sysnet"
)

// BufferedRead is the public entry point for stream.Adapter.Read's
// shortfall path, matching spec.md 4.D's buffered-read hook.
func (m *Manager) BufferedRead(id api.ID, want int) error {
	rec, ref := m.lookup(id)
	if rec == nil {
		return api.ErrInvalidID
	}
	defer ref.Release()
	return rec.Hooks().BufferedRead(rec, want)
}

// BufferedWrite is the public entry point for stream.Adapter.Flush,
// matching spec.md 4.D's buffered-write hook.
func (m *Manager) BufferedWrite(id api.ID) error {
	rec, ref := m.lookup(id)
	if rec == nil {
		return api.ErrInvalidID
	}
	defer ref.Release()
	return rec.Hooks().BufferedWrite(rec)
}

// DrainRing copies up to len(p) bytes out of the in-ring into p,
// advancing offset_read_in (wrapping at capacity), and returns the
// number of bytes copied.
func (m *Manager) DrainRing(id api.ID, p []byte) int {
	rec, ref := m.lookup(id)
	if rec == nil {
		return 0
	}
	defer ref.Release()

	buf := rec.BufferIn()
	capacity := len(buf)
	if capacity == 0 {
		return 0
	}
	readIn, writeIn := rec.OffsetReadIn(), rec.OffsetWriteIn()
	buffered := rec.BufferedIn()
	if buffered == 0 || len(p) == 0 {
		return 0
	}
	want := len(p)
	if want > buffered {
		want = buffered
	}

	copied := 0
	if writeIn >= readIn {
		n := copy(p[:want], buf[readIn:readIn+want])
		copied = n
	} else {
		// Wraps: copy the tail to buffer end, then the head from 0.
		tail := capacity - readIn
		if tail > want {
			tail = want
		}
		n := copy(p[:tail], buf[readIn:readIn+tail])
		copied = n
		if copied < want {
			head := want - copied
			n2 := copy(p[copied:copied+head], buf[0:head])
			copied += n2
		}
	}
	newRead := (readIn + copied) % capacity
	rec.SetOffsetReadIn(newRead)
	return copied
}

// FillOutBuffer copies as much of p as fits into the remaining room in
// buffer_out, advancing offset_write_out, and returns the number of
// bytes copied.
func (m *Manager) FillOutBuffer(id api.ID, p []byte) int {
	rec, ref := m.lookup(id)
	if rec == nil {
		return 0
	}
	defer ref.Release()

	buf := rec.BufferOut()
	room := len(buf) - rec.OffsetWriteOut()
	if room <= 0 || len(p) == 0 {
		return 0
	}
	n := copy(buf[rec.OffsetWriteOut():], p)
	if n > room {
		n = room
	}
	rec.SetOffsetWriteOut(rec.OffsetWriteOut() + n)
	return n
}

// OutBufferFull reports whether buffer_out has no remaining room.
func (m *Manager) OutBufferFull(id api.ID) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	return rec.OffsetWriteOut() >= len(rec.BufferOut())
}

// OutBufferLen returns the current linear fill level of buffer_out.
func (m *Manager) OutBufferLen(id api.ID) int {
	rec, ref := m.lookup(id)
	if rec == nil {
		return 0
	}
	defer ref.Release()
	return rec.OffsetWriteOut()
}

// BufferedInLen returns the number of bytes currently buffered in the
// read ring.
func (m *Manager) BufferedInLen(id api.ID) int {
	rec, ref := m.lookup(id)
	if rec == nil {
		return 0
	}
	defer ref.Release()
	return rec.BufferedIn()
}

// HasFD reports whether id's slot currently holds a live descriptor.
func (m *Manager) HasFD(id api.ID) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	sl := rec.Slot()
	return sl != nil && sl.FD() != slot.InvalidFD
}

// IsPolled reports whether id's slot is marked as externally polled
// (spec.md's glossary: "the stream does not issue its own kernel reads
// on available-read checks").
func (m *Manager) IsPolled(id api.ID) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	sl := rec.Slot()
	return sl != nil && sl.Has(slot.FlagPolled)
}

// AvailableRead returns buffered-in plus kernel-reported FIONREAD if
// positive, matching spec.md 4.F's available_read().
func (m *Manager) AvailableRead(id api.ID) int {
	rec, ref := m.lookup(id)
	if rec == nil {
		return 0
	}
	defer ref.Release()
	n := rec.BufferedIn()
	sl := rec.Slot()
	if sl != nil && sl.FD() != slot.InvalidFD {
		if k, err := sysnet.FIONREAD(sl.FD()); err == nil && k > 0 {
			n += k
		}
	}
	return n
}

// AddBytesRead/AddBytesWritten/BytesRead expose the lifetime counters
// so stream.Adapter can maintain them without reaching into
// internal/socket directly.
func (m *Manager) AddBytesRead(id api.ID, n uint64) {
	rec, ref := m.lookup(id)
	if rec == nil {
		return
	}
	defer ref.Release()
	rec.AddBytesRead(n)
	if m.Metrics != nil {
		m.Metrics.AddBytesRead(int(n))
	}
}

func (m *Manager) AddBytesWritten(id api.ID, n uint64) {
	rec, ref := m.lookup(id)
	if rec == nil {
		return
	}
	defer ref.Release()
	rec.AddBytesWritten(n)
	if m.Metrics != nil {
		m.Metrics.AddBytesWritten(int(n))
	}
}

func (m *Manager) BytesRead(id api.ID) uint64 {
	rec, ref := m.lookup(id)
	if rec == nil {
		return 0
	}
	defer ref.Release()
	return rec.BytesRead()
}
