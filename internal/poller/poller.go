// File: internal/poller/poller.go
// Author: momentics <momentics@gmail.com>
//
// The non-blocking connection state poller (spec component E). Poll
// reconciles the NOT_CONNECTED/CONNECTING/CONNECTED/LISTENING/
// DISCONNECTED machine from a readiness probe, exactly matching the
// _socket_poll_state state machine in original_source/network/socket.c
// — including its CONNECTED -> DISCONNECTED fall-through, which is
// intentional (spec.md 9): after discovering a hangup the caller must
// still be able to drain buffered data before the record is actually
// closed. Do not collapse the two branches.
package poller

import (
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/socket"
	"github.com/momentics/netcore/internal/sysnet"
)

// Bus is the minimal event-posting contract Poll needs, satisfied by
// *internal/event.Bus. Declared locally to avoid poller depending on
// event's concrete type beyond this one call.
type Bus interface {
	Post(kind api.EventKind, id api.ID)
}

// Poll reconciles sl's state, returning the (possibly updated) state.
// The record is resolved lazily — only inside the DISCONNECTED branch
// — never eagerly in CONNECTED, to avoid the use-after-free hazard
// spec.md 9 calls out: a record may already be mid-teardown by the
// time CONNECTED's FIONREAD probe observes an error.
func Poll(rec *socket.Record, sl *slot.Slot, bus Bus) api.State {
	switch sl.State() {
	case api.StateNotConnected:
		return api.StateNotConnected

	case api.StateDisconnected:
		return pollDisconnected(rec, sl, bus)

	case api.StateListening:
		return api.StateListening

	case api.StateConnecting:
		return pollConnecting(rec, sl, bus)

	case api.StateConnected:
		return pollConnected(rec, sl, bus)

	default:
		return sl.State()
	}
}

func pollConnecting(rec *socket.Record, sl *slot.Slot, bus Bus) api.State {
	writable, hasErr, err := sysnet.PollWritable(sl.FD(), 0)
	if err != nil || hasErr {
		sl.SetState(api.StateDisconnected)
		return pollDisconnected(rec, sl, bus)
	}
	if writable {
		if errno, serr := sysnet.SOError(sl.FD()); serr == nil && errno == 0 {
			sl.SetState(api.StateConnected)
			return api.StateConnected
		}
		sl.SetState(api.StateDisconnected)
		return pollDisconnected(rec, sl, bus)
	}
	return api.StateConnecting
}

func pollConnected(rec *socket.Record, sl *slot.Slot, bus Bus) api.State {
	n, err := sysnet.FIONREAD(sl.FD())
	if err != nil || n < 0 {
		// Socket error observed via readiness peek: transition and
		// fall through so buffered data already in the ring can still
		// be drained by the caller before the record is closed.
		sl.SetState(api.StateDisconnected)
		return pollDisconnected(rec, sl, bus)
	}
	return api.StateConnected
}

// pollDisconnected resolves rec lazily: by the time this branch runs,
// the record may already be torn down by a concurrent close, so every
// field access here must tolerate rec.Base() == -1.
func pollDisconnected(rec *socket.Record, sl *slot.Slot, bus Bus) api.State {
	if !sl.Has(slot.FlagHangupPending) {
		sl.AddFlags(slot.FlagHangupPending)
		if bus != nil {
			bus.Post(api.EventHangup, rec.ID())
		}
	}
	if rec.BufferedIn() == 0 {
		// No buffered input remains. Poll does not close the descriptor;
		// it stays open until Manager.Close or Destroy, or a buffered
		// read that hits EOF or a teardown error, closes it.
		return api.StateDisconnected
	}
	// Buffered input remains: keep the record's descriptor alive from
	// this poller's point of view so a consumer can drain the tail.
	return api.StateDisconnected
}
