// File: internal/tcp/tcp.go
// Author: momentics <momentics@gmail.com>
//
// TCP-specific open/connect/listen/accept plus ring-buffered recv/send
// (spec component D), grounded on tcp_socket_create/listen/accept/
// connect and _tcp_socket_buffer_read/_tcp_socket_buffer_write in
// original_source/network/tcp.c. Platform divergence is confined to
// internal/sysnet; everything here is platform-neutral.
package tcp

import (
	"log/slog"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/socket"
	"github.com/momentics/netcore/internal/sysnet"
)

// open lazily creates the platform descriptor for family if none
// exists yet on rec, failing on family mismatch (spec.md 4.D step 2 of
// tcp_connect, and the shared lazy-open path used by bind/listen too).
func (m *Manager) open(rec *socket.Record, family api.Family) error {
	if rec.Base() >= 0 {
		if rec.Family() != family {
			return api.NewError(api.ErrCodeFamilyMismatch, "socket already bound to a different address family")
		}
		return nil
	}
	fd, err := sysnet.Socket(family)
	if err != nil {
		return api.NewError(api.ErrCodeSystemCallFailure, "socket() failed").WithContext("errno", err.Error())
	}
	idx := m.Slots.Claim(rec.ID())
	if idx < 0 {
		_ = sysnet.CloseFD(fd)
		return api.ErrNoSlot
	}
	sl := m.Slots.At(idx)
	sl.SetFD(fd)
	sl.SetState(api.StateNotConnected)
	sl.SetFlags(rec.SavedFlags())
	rec.SetBase(idx)
	rec.SetFamily(family)

	// Reapply remembered socket options across this (re)creation.
	if sl.Has(slot.FlagTCPNoDelay) {
		_ = sysnet.SetNoDelay(fd, true)
	}
	if sl.Has(slot.FlagReuseAddr) {
		_ = sysnet.SetReuseAddr(fd, true)
	}
	if sl.Has(slot.FlagReusePort) {
		_ = sysnet.SetReusePort(fd, true)
	}
	return nil
}

// Bind lazily opens a descriptor for local.Family() and binds it,
// matching the bind-once law of spec.md section 8.
func (m *Manager) Bind(id api.ID, local addr.Address) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	if err := m.open(rec, local.Family()); err != nil {
		return false
	}
	sl := rec.Slot()
	if err := sysnet.Bind(sl.FD(), local); err != nil {
		return false
	}
	if got, err := sysnet.LocalAddr(sl.FD()); err == nil {
		rec.SetAddressLocal(got)
	} else {
		rec.SetAddressLocal(local)
	}
	return true
}

// Listen succeeds iff state == NOT_CONNECTED, a descriptor exists, and
// the socket has a bound local address (spec.md 4.D's tcp_listen).
func (m *Manager) Listen(id api.ID) bool {
	rec, ref := m.lookup(id)
	if rec == nil {
		return false
	}
	defer ref.Release()
	sl := rec.Slot()
	if sl == nil || sl.State() != api.StateNotConnected || sl.FD() == slot.InvalidFD {
		return false
	}
	if rec.AddressLocal() == nil {
		return false
	}
	if err := sysnet.Listen(sl.FD()); err != nil {
		return false
	}
	sl.SetState(api.StateListening)
	return true
}

// Accept implements spec.md 4.D's tcp_accept, including the preserved
// "flags &= CONNECTION_PENDING" behavior from spec.md 9's first open
// question: the original clears every flag except CONNECTION_PENDING,
// which looks like a typo for "&= ~CONNECTION_PENDING" but is kept
// byte-for-byte-equivalent here because spec.md forbids silently
// fixing it.
func (m *Manager) Accept(id api.ID, timeoutMs int) api.ID {
	rec, ref := m.lookup(id)
	if rec == nil {
		return api.InvalidID
	}
	defer ref.Release()
	sl := rec.Slot()
	if sl == nil || sl.State() != api.StateListening {
		return api.InvalidID
	}

	wasBlocking := !sl.Has(slot.FlagBlocking)
	if wasBlocking && timeoutMs > 0 {
		_ = sysnet.SetBlocking(sl.FD(), false)
		defer sysnet.SetBlocking(sl.FD(), true)
	}

	nfd, peer, err := sysnet.Accept(sl.FD())
	if err != nil {
		if sysnet.ClassifyErrno(err) == sysnet.ErrWouldBlock && timeoutMs > 0 {
			if readable, perr := sysnet.PollReadable(sl.FD(), timeoutMs); perr == nil && readable {
				nfd, peer, err = sysnet.Accept(sl.FD())
			}
		}
		if err != nil {
			if sysnet.ClassifyErrno(err) == sysnet.ErrWouldBlock && m.Metrics != nil {
				m.Metrics.TimedOut()
			}
			return api.InvalidID
		}
	}

	newID := m.Create()
	if newID == api.InvalidID {
		_ = sysnet.CloseFD(nfd)
		return api.InvalidID
	}
	newRec, newRef := m.lookup(newID)
	if newRec == nil {
		_ = sysnet.CloseFD(nfd)
		return api.InvalidID
	}
	defer func() {
		if newRef.Release() {
			m.destroyRecord(newRec)
		}
	}()

	idx := m.Slots.Claim(newID)
	if idx < 0 {
		_ = sysnet.CloseFD(nfd)
		// Drop the construction reference directly; the deferred
		// newRef.Release() above drops the lookup reference and, since
		// this brings the count to zero, drives destruction.
		newRec.Unref()
		return api.InvalidID
	}
	newSlot := m.Slots.At(idx)
	newSlot.SetFD(nfd)
	newSlot.SetState(api.StateConnected)
	// Preserve the listener's flags except CONNECTION_PENDING is
	// cleared — this bitwise AND is the flagged quirk: it clears every
	// bit except FlagConnectionPending, not the intended "clear only
	// FlagConnectionPending". See DESIGN.md Open Question Decisions.
	newSlot.SetFlags(sl.Flags() & slot.FlagConnectionPending)
	newRec.SetBase(idx)
	newRec.SetFamily(rec.Family())
	newRec.SetAddressRemote(peer)
	if local, lerr := sysnet.LocalAddr(nfd); lerr == nil {
		newRec.SetAddressLocal(local)
	}
	if m.Metrics != nil {
		m.Metrics.Accepted()
	}
	return newID
}

// connect implements spec.md 4.D's tcp_connect completion policy.
func (m *Manager) connect(rec *socket.Record, remote addr.Address, timeoutMs int) error {
	if sl := rec.Slot(); sl != nil && sl.State() != api.StateNotConnected {
		return api.ErrInvalidState
	}
	if err := m.open(rec, remote.Family()); err != nil {
		return err
	}
	sl := rec.Slot()
	sl.ClearFlags(slot.FlagConnectionPending | slot.FlagErrorPending | slot.FlagHangupPending)

	wasBlocking := !sl.Has(slot.FlagBlocking)
	if wasBlocking {
		_ = sysnet.SetBlocking(sl.FD(), false)
		defer sysnet.SetBlocking(sl.FD(), true)
	}

	err := sysnet.Connect(sl.FD(), remote)
	if err == nil {
		sl.SetState(api.StateConnected)
		rec.SetAddressRemote(remote)
		if local, lerr := sysnet.LocalAddr(sl.FD()); lerr == nil {
			rec.SetAddressLocal(local)
		}
		if m.Metrics != nil {
			m.Metrics.Connected()
		}
		return nil
	}

	class := sysnet.ClassifyErrno(err)
	if class != sysnet.ErrWouldBlock {
		return api.NewError(api.ErrCodeSystemCallFailure, "connect() failed")
	}

	if timeoutMs == 0 {
		sl.SetState(api.StateConnecting)
		sl.AddFlags(slot.FlagConnectionPending)
		return nil
	}

	writable, hasErr, perr := sysnet.PollWritable(sl.FD(), timeoutMs)
	if perr != nil || hasErr || !writable {
		if !writable && !hasErr && perr == nil {
			if m.Metrics != nil {
				m.Metrics.TimedOut()
			}
			return api.ErrTimeout
		}
		return api.NewError(api.ErrCodeSystemCallFailure, "connect() readiness probe failed")
	}
	errno, serr := sysnet.SOError(sl.FD())
	if serr != nil || errno != 0 {
		return api.NewError(api.ErrCodeSystemCallFailure, "connect() completed with SO_ERROR")
	}
	sl.SetState(api.StateConnected)
	rec.SetAddressRemote(remote)
	if local, lerr := sysnet.LocalAddr(sl.FD()); lerr == nil {
		rec.SetAddressLocal(local)
	}
	if m.Metrics != nil {
		m.Metrics.Connected()
	}
	return nil
}

// Connect is the public entry point wrapping connect() with the
// registry lookup/release discipline.
func (m *Manager) Connect(id api.ID, remote addr.Address, timeoutMs int) error {
	rec, ref := m.lookup(id)
	if rec == nil {
		return api.ErrInvalidID
	}
	defer ref.Release()
	return rec.Hooks().Connect(rec, remote, timeoutMs)
}

// bufferedRead pulls kernel data into buffer_in, mirroring
// _tcp_socket_buffer_read's wrap-around and teardown-error handling.
func (m *Manager) bufferedRead(rec *socket.Record, want int) error {
	sl := rec.Slot()
	if sl == nil || sl.FD() == slot.InvalidFD {
		return nil
	}
	buf := rec.BufferIn()
	capacity := len(buf)
	if capacity == 0 {
		return nil
	}
	readIn, writeIn := rec.OffsetReadIn(), rec.OffsetWriteIn()

	var avail int
	if writeIn >= readIn {
		avail = capacity - writeIn
		if readIn == 0 {
			// Keep the sacrificed slot free: filling to the end would
			// wrap writeIn onto readIn and read as empty.
			avail--
		}
	} else {
		avail = readIn - writeIn - 1
	}
	if avail <= 0 {
		return nil
	}

	tryRead := avail
	if want > 0 && want < tryRead {
		tryRead = want
	}
	if n, ferr := sysnet.FIONREAD(sl.FD()); ferr == nil && n > 0 && n < tryRead {
		tryRead = n
	}
	if tryRead <= 0 {
		return nil
	}

	n, err := sysnet.Recv(sl.FD(), buf[writeIn:writeIn+tryRead])
	switch {
	case err == nil && n == 0:
		// Peer closed cleanly.
		if !sl.Has(slot.FlagHangupPending) {
			sl.AddFlags(slot.FlagHangupPending)
			m.postHangup(rec)
		}
		m.closeRecord(rec)
		return api.ErrConnectionTerminated

	case err == nil && n > 0:
		newWrite := writeIn + n
		if newWrite == capacity {
			newWrite = 0
		}
		rec.SetOffsetWriteIn(newWrite)
		if n == tryRead && newWrite == 0 && writeIn > readIn {
			// The read filled exactly to the buffer's end and more room
			// wraps around to the start; recurse once for the
			// wrap-around segment, matching the original's single
			// recursive continuation.
			remaining := want - n
			if remaining > 0 {
				return m.bufferedRead(rec, remaining)
			}
		}
		return nil

	default:
		class := sysnet.ClassifyErrno(err)
		if class == sysnet.ErrWouldBlock {
			return nil
		}
		if class == sysnet.ErrTerminated {
			if !sl.Has(slot.FlagHangupPending) {
				sl.AddFlags(slot.FlagHangupPending)
				m.postHangup(rec)
			}
			m.closeRecord(rec)
			return api.ErrConnectionTerminated
		}
		m.log().Warn("tcp buffered read failed", slog.String("err", err.Error()))
		return api.NewError(api.ErrCodeSystemCallFailure, "recv() failed")
	}
}

// bufferedWrite drains buffer_out to the kernel, mirroring
// _tcp_socket_buffer_write's memmove-on-partial-send behavior.
func (m *Manager) bufferedWrite(rec *socket.Record) error {
	sl := rec.Slot()
	if sl == nil || sl.FD() == slot.InvalidFD {
		return nil
	}
	buf := rec.BufferOut()
	fill := rec.OffsetWriteOut()
	if fill == 0 {
		sl.ClearFlags(slot.FlagReflush)
		return nil
	}

	sent := 0
	for sent < fill {
		n, err := sysnet.Send(sl.FD(), buf[sent:fill])
		if err != nil {
			class := sysnet.ClassifyErrno(err)
			if class == sysnet.ErrWouldBlock {
				break
			}
			if class == sysnet.ErrTerminated {
				if !sl.Has(slot.FlagHangupPending) {
					sl.AddFlags(slot.FlagHangupPending)
					m.postHangup(rec)
				}
				m.closeRecord(rec)
				return api.ErrConnectionTerminated
			}
			return api.NewError(api.ErrCodeSystemCallFailure, "send() failed")
		}
		if n <= 0 {
			break
		}
		sent += n
	}

	if sent == 0 {
		sl.AddFlags(slot.FlagReflush)
		return nil
	}
	if sent < fill {
		remaining := fill - sent
		copy(buf[0:remaining], buf[sent:fill])
		rec.SetOffsetWriteOut(remaining)
		sl.AddFlags(slot.FlagReflush)
		return nil
	}
	rec.SetOffsetWriteOut(0)
	sl.ClearFlags(slot.FlagReflush)
	return nil
}

func (m *Manager) postHangup(rec *socket.Record) {
	if m.Bus != nil {
		m.Bus.Post(api.EventHangup, rec.ID())
	}
}

func (m *Manager) log() *slog.Logger {
	if m.Log != nil {
		return m.Log
	}
	return slog.Default()
}
