package poller

import (
	"testing"
	"time"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/socket"
	"github.com/momentics/netcore/internal/sysnet"
)

type recordingBus struct {
	posted []api.EventKind
}

func (b *recordingBus) Post(kind api.EventKind, id api.ID) { b.posted = append(b.posted, kind) }

func TestPoll_NotConnectedAndListeningPassThrough(t *testing.T) {
	tbl := slot.NewTable(1)
	idx := tbl.Claim(api.ID(1))
	sl := tbl.At(idx)

	if got := Poll(nil, sl, nil); got != api.StateNotConnected {
		t.Fatalf("expected NOT_CONNECTED to pass through, got %s", got)
	}

	sl.SetState(api.StateListening)
	if got := Poll(nil, sl, nil); got != api.StateListening {
		t.Fatalf("expected LISTENING to pass through, got %s", got)
	}
}

func loopbackListener(t *testing.T) (listenFD uintptr, local addr.Address) {
	t.Helper()
	fd, err := sysnet.Socket(api.FamilyIPv4)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	if err := sysnet.Bind(fd, addr.IPv4Any(0)); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := sysnet.Listen(fd); err != nil {
		t.Fatalf("listen: %v", err)
	}
	local, err = sysnet.LocalAddr(fd)
	if err != nil {
		t.Fatalf("local addr: %v", err)
	}
	return fd, local
}

// TestPoll_ConnectingBecomesConnected drives a real loopback connect
// through pollConnecting and confirms it lands on CONNECTED once the
// kernel reports the socket writable with no pending SO_ERROR.
func TestPoll_ConnectingBecomesConnected(t *testing.T) {
	listenFD, local := loopbackListener(t)
	defer sysnet.CloseFD(listenFD)

	clientFD, err := sysnet.Socket(api.FamilyIPv4)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	defer sysnet.CloseFD(clientFD)
	if err := sysnet.SetBlocking(clientFD, false); err != nil {
		t.Fatalf("set nonblocking: %v", err)
	}

	_ = sysnet.Connect(clientFD, local) // expected to return would-block/in-progress

	acceptFD, _, err := acceptWithRetry(t, listenFD)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	defer sysnet.CloseFD(acceptFD)

	tbl := slot.NewTable(1)
	idx := tbl.Claim(api.ID(1))
	sl := tbl.At(idx)
	sl.SetFD(clientFD)
	sl.SetState(api.StateConnecting)

	bus := &recordingBus{}
	var got api.State
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got = Poll(nil, sl, bus)
		if got != api.StateConnecting {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got != api.StateConnected {
		t.Fatalf("expected CONNECTING to resolve to CONNECTED, got %s", got)
	}
}

// TestPoll_ConnectedFallsThroughOnBadFD exercises the intentional
// CONNECTED->DISCONNECTED fall-through: with an invalid fd in the slot,
// FIONREAD fails, so pollConnected moves the slot to DISCONNECTED and
// continues into pollDisconnected, which posts HANGUP exactly once.
func TestPoll_ConnectedFallsThroughOnBadFD(t *testing.T) {
	tbl := slot.NewTable(1)
	idx := tbl.Claim(api.ID(1))
	sl := tbl.At(idx)
	sl.SetFD(sysnet.InvalidFD)
	sl.SetState(api.StateConnected)

	rec := socket.New(api.ID(1), nil, tbl, nil, nil)
	bus := &recordingBus{}

	got := Poll(rec, sl, bus)
	if got != api.StateDisconnected {
		t.Fatalf("expected DISCONNECTED after FIONREAD fails on an invalid fd, got %s", got)
	}
	if len(bus.posted) != 1 || bus.posted[0] != api.EventHangup {
		t.Fatalf("expected exactly one HANGUP event posted, got %v", bus.posted)
	}
	if !sl.Has(slot.FlagHangupPending) {
		t.Fatal("expected FlagHangupPending to be set")
	}

	// A second Poll call must not double-post the hangup event.
	Poll(rec, sl, bus)
	if len(bus.posted) != 1 {
		t.Fatalf("expected hangup to post exactly once across repeated polls, got %d posts", len(bus.posted))
	}
}

func acceptWithRetry(t *testing.T, listenFD uintptr) (uintptr, addr.Address, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		readable, err := sysnet.PollReadable(listenFD, 50)
		if err != nil {
			return 0, addr.Address{}, err
		}
		if readable {
			return sysnet.Accept(listenFD)
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for a pending connection")
		}
	}
}
