// File: internal/tcp/manager.go
// Author: momentics <momentics@gmail.com>
//
// The platform-neutral half of component D (TCP Operations): record
// construction, close semantics, flag mutators, and the socket.Hooks
// glue. open/listen/accept/connect and the buffered read/write paths
// live in tcp.go; the platform-specific syscalls behind them live in
// internal/sysnet (sysnet_unix.go / sysnet_windows.go, selected by
// build tag), behind SetBlocking/CloseFD/ClassifyErrno.
package tcp

import (
	"log/slog"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/control"
	"github.com/momentics/netcore/internal/event"
	"github.com/momentics/netcore/internal/poller"
	"github.com/momentics/netcore/internal/registry"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/socket"
	"github.com/momentics/netcore/internal/sysnet"
)

// DefaultBufferSize is the ring buffer backing array size used when the
// caller doesn't override it, within spec.md 3's 4-64 KiB range.
const DefaultBufferSize = 8 * 1024

// Manager ties the handle registry, slot table, event bus, and buffer
// pool together for TCP record construction and lifecycle. All public
// entry points that resolve an id perform a registry lookup (ref++) on
// entry and release (ref--) on every exit, per spec.md 5.
type Manager struct {
	Registry *registry.Registry
	Slots    *slot.Table
	Bus      *event.Bus
	Pool     api.BytePool
	BufSize  int
	Log      *slog.Logger
	Metrics  *control.SocketMetrics // optional; nil disables counting
}

// tcpHooks implements socket.Hooks against a Manager, so each Record
// carries a small closure-free capability set rather than raw function
// pointers, per spec.md 9's modeling guidance.
type tcpHooks struct{ mgr *Manager }

func (h tcpHooks) Open(r *socket.Record, family api.Family) error {
	return h.mgr.open(r, family)
}

func (h tcpHooks) Connect(r *socket.Record, remote addr.Address, timeoutMs int) error {
	return h.mgr.connect(r, remote, timeoutMs)
}

func (h tcpHooks) BufferedRead(r *socket.Record, want int) error {
	return h.mgr.bufferedRead(r, want)
}

func (h tcpHooks) BufferedWrite(r *socket.Record) error {
	return h.mgr.bufferedWrite(r)
}

func (m *Manager) bufSize() int {
	if m.BufSize > 0 {
		return m.BufSize
	}
	return DefaultBufferSize
}

func (m *Manager) acquireBuffer() []byte {
	if m.Pool != nil {
		return m.Pool.Acquire(m.bufSize())
	}
	return make([]byte, m.bufSize())
}

func (m *Manager) releaseBuffer(b []byte) {
	if m.Pool != nil {
		m.Pool.Release(b)
	}
}

// Create allocates a new TCP record and installs the TCP hooks,
// matching spec.md 4.D's tcp_create.
func (m *Manager) Create() api.ID {
	id := m.Registry.Reserve()
	if id == api.InvalidID {
		return api.InvalidID
	}
	rec := socket.New(id, tcpHooks{m}, m.Slots, m.acquireBuffer(), m.acquireBuffer())
	m.Registry.Set(id, rec)
	if m.Metrics != nil {
		m.Metrics.SocketCreated()
	}
	return id
}

func (m *Manager) lookup(id api.ID) (*socket.Record, *registry.Ref) {
	ref := m.Registry.LookupRef(id)
	if ref == nil {
		return nil, nil
	}
	rec, ok := ref.Record().(*socket.Record)
	if !ok {
		ref.Release()
		return nil, nil
	}
	return rec, ref
}

// IsSocket reports whether id currently resolves to a live record.
func (m *Manager) IsSocket(id api.ID) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	ref.Release()
	return true
}

// Ref extends the lifetime of id across a caller-managed span, matching
// spec.md 4.C's ref(id) -> id|0.
func (m *Manager) Ref(id api.ID) api.ID {
	rec, ref := m.lookup(id)
	if rec == nil {
		return api.InvalidID
	}
	rec.Ref() // second increment: one for lookup, one transferred to caller
	ref.Release()
	return id
}

// Destroy releases one reference on id, driving destruction on the
// zero transition. Matches spec.md 4.C's destroy(id).
func (m *Manager) Destroy(id api.ID) {
	rec, ref := m.lookup(id)
	if rec == nil {
		return
	}
	// The lookup itself holds one ref; release it, then release the
	// caller's own ref. Whichever release drives the count to zero
	// destroys the record.
	if ref.Release() {
		m.destroyRecord(rec)
		return
	}
	if rec.Unref() == 0 {
		m.destroyRecord(rec)
	}
}

func (m *Manager) destroyRecord(rec *socket.Record) {
	m.closeRecord(rec)
	m.Registry.Free(rec.ID())
	m.releaseBuffer(rec.BufferIn())
	m.releaseBuffer(rec.BufferOut())
	if m.Metrics != nil {
		m.Metrics.SocketDestroyed()
	}
}

// State returns the socket's connection state via its slot, or
// StateNotConnected if no slot is claimed.
func (m *Manager) State(id api.ID) api.State {
	rec, ref := m.lookup(id)
	if rec == nil {
		return api.StateNotConnected
	}
	defer ref.Release()
	sl := rec.Slot()
	if sl == nil {
		return api.StateNotConnected
	}
	return poller.Poll(rec, sl, m.Bus)
}

// Close drives the record into closed state, matching spec.md 4.C's
// close semantics: atomically release the slot, zero base, set
// non-blocking, full-duplex shutdown, close descriptor, free addresses.
// The record itself survives until refcount reaches zero.
func (m *Manager) Close(id api.ID) {
	rec, ref := m.lookup(id)
	if rec == nil {
		return
	}
	defer ref.Release()
	m.closeRecord(rec)
}

func (m *Manager) closeRecord(rec *socket.Record) {
	b := rec.Base()
	if b < 0 {
		return
	}
	sl := rec.Slots().At(b)
	fd := sl.FD()
	rec.SetBase(-1)
	if fd != slot.InvalidFD {
		_ = sysnet.SetBlocking(fd, false)
		_ = sysnet.CloseFD(fd)
	}
	m.Slots.Release(b)
	rec.ClearAddresses()
}

// SetBlocking records the blocking mode on the socket's slot and applies
// the kernel call if a live descriptor exists. It does not claim a slot:
// before the first bind or connect the socket has none, and SetBlocking
// then changes nothing and returns false.
func (m *Manager) SetBlocking(id api.ID, blocking bool) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	sl := rec.Slot()
	if sl == nil {
		return false
	}
	if blocking {
		sl.ClearFlags(slot.FlagBlocking)
	} else {
		sl.AddFlags(slot.FlagBlocking)
	}
	if sl.FD() == slot.InvalidFD {
		return true
	}
	return sysnet.SetBlocking(sl.FD(), blocking) == nil
}

// Blocking reports the socket's current blocking-mode flag.
func (m *Manager) Blocking(id api.ID) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	sl := rec.Slot()
	if sl == nil {
		return true
	}
	return !sl.Has(slot.FlagBlocking)
}

// SetDelay toggles TCP_NODELAY. delay==true means Nagle stays enabled
// (i.e. TCP_NODELAY off), matching spec.md 4.D's tcp_set_delay naming.
// The setting is kept in the record's saved flags, so a descriptor
// opened later re-applies the last requested value.
func (m *Manager) SetDelay(id api.ID, delay bool) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	if delay {
		rec.ClearSavedFlags(slot.FlagTCPNoDelay)
	} else {
		rec.AddSavedFlags(slot.FlagTCPNoDelay)
	}
	sl := rec.Slot()
	if sl == nil {
		return true
	}
	if delay {
		sl.ClearFlags(slot.FlagTCPNoDelay)
	} else {
		sl.AddFlags(slot.FlagTCPNoDelay)
	}
	if sl.FD() == slot.InvalidFD {
		return true
	}
	return sysnet.SetNoDelay(sl.FD(), !delay) == nil
}

// ReuseAddress toggles SO_REUSEADDR. The setting is kept in the record's
// saved flags, applied at once if a live descriptor exists, and
// re-applied whenever a descriptor is opened.
func (m *Manager) ReuseAddress(id api.ID, on bool) bool {
	return m.setBoolFlagOpt(id, slot.FlagReuseAddr, on, sysnet.SetReuseAddr)
}

// ReusePort toggles SO_REUSEPORT, kept and applied the same way as
// ReuseAddress.
func (m *Manager) ReusePort(id api.ID, on bool) bool {
	return m.setBoolFlagOpt(id, slot.FlagReusePort, on, sysnet.SetReusePort)
}

func (m *Manager) setBoolFlagOpt(id api.ID, f slot.Flag, on bool, apply func(fd uintptr, on bool) error) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	if on {
		rec.AddSavedFlags(f)
	} else {
		rec.ClearSavedFlags(f)
	}
	sl := rec.Slot()
	if sl == nil {
		return true
	}
	if on {
		sl.AddFlags(f)
	} else {
		sl.ClearFlags(f)
	}
	if sl.FD() == slot.InvalidFD {
		return true
	}
	return apply(sl.FD(), on) == nil
}

// AddressLocal returns a clone of the record's local address, or nil.
func (m *Manager) AddressLocal(id api.ID) *addr.Address {
	rec, ref := m.lookup(id)
	if rec == nil {
		return nil
	}
	defer ref.Release()
	a := rec.AddressLocal()
	if a == nil {
		return nil
	}
	c := a.Clone()
	return &c
}

// AddressRemote returns a clone of the record's remote address, or nil.
func (m *Manager) AddressRemote(id api.ID) *addr.Address {
	rec, ref := m.lookup(id)
	if rec == nil {
		return nil
	}
	defer ref.Release()
	a := rec.AddressRemote()
	if a == nil {
		return nil
	}
	c := a.Clone()
	return &c
}
