// File: netcore_test.go
// Author: momentics <momentics@gmail.com>
//
// End-to-end scenarios from spec.md section 8, driven entirely through
// the public Module surface against real loopback sockets.
package netcore

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()
	m := Init(64, 0, nil)
	t.Cleanup(m.Shutdown)
	return m
}

// Scenario 1: create, is_socket true, free, is_socket false.
func TestScenario_CreateFreeIsSocket(t *testing.T) {
	m := newTestModule(t)
	id := m.TCPSocketCreate()
	if !m.IsSocket(id) {
		t.Fatal("expected freshly created socket to report IsSocket true")
	}
	m.SocketDestroy(id)
	if m.IsSocket(id) {
		t.Fatal("expected destroyed socket to report IsSocket false")
	}
}

// Scenario 2: toggling blocking mode tracks.
func TestScenario_BlockingToggle(t *testing.T) {
	m := newTestModule(t)
	id := m.TCPSocketCreate()
	defer m.SocketDestroy(id)

	if !m.SocketBlocking(id) {
		t.Fatal("expected new socket to default to blocking")
	}
	if !m.SocketSetBlocking(id, false) {
		t.Fatal("SetBlocking(false) failed")
	}
	if m.SocketBlocking(id) {
		t.Fatal("expected blocking to be false after SetBlocking(false)")
	}
	if !m.SocketSetBlocking(id, true) {
		t.Fatal("SetBlocking(true) failed")
	}
	if !m.SocketBlocking(id) {
		t.Fatal("expected blocking to be true after SetBlocking(true)")
	}
}

// Scenario 3: bind-iterate-ports on IPv4 and IPv6 wildcard addresses.
func TestScenario_BindIteratePorts(t *testing.T) {
	m := newTestModule(t)

	for _, wildcard := range []addr.Address{addr.IPv4Any(0), addr.IPv6Any(0)} {
		id := m.TCPSocketCreate()

		bound := false
		var chosen addr.Address
		for port := 31890; port <= 31900 && !bound; port++ {
			candidate := wildcard.Clone()
			candidate.SetPort(uint16(port))
			if m.SocketBind(id, candidate) {
				bound = true
				chosen = candidate
			}
		}
		if !bound {
			t.Fatalf("failed to bind to any port in range for family %s", wildcard.Family())
		}
		local := m.SocketAddressLocal(id)
		if local == nil {
			t.Fatal("expected address_local to be set after bind")
		}
		if local.Port() != chosen.Port() {
			t.Fatalf("expected bound port %d, got %d", chosen.Port(), local.Port())
		}
		if m.SocketState(id) != api.StateNotConnected {
			t.Fatalf("expected NOT_CONNECTED after bind, got %s", m.SocketState(id))
		}
		m.SocketDestroy(id)
	}
}

func mustListener(t *testing.T, m *Module) (api.ID, addr.Address) {
	t.Helper()
	id := m.TCPSocketCreate()
	local := addr.IPv4Any(0)
	if !m.SocketBind(id, local) {
		t.Fatal("bind failed")
	}
	if !m.TCPSocketListen(id) {
		t.Fatal("listen failed")
	}
	got := m.SocketAddressLocal(id)
	if got == nil {
		t.Fatal("expected local address after bind+listen")
	}
	return id, *got
}

// Scenario 4: listener + client round-trip of "Hello World".
func TestScenario_RoundTrip(t *testing.T) {
	m := newTestModule(t)
	listenerID, listenAddr := mustListener(t, m)
	defer m.SocketDestroy(listenerID)

	clientID := m.TCPSocketCreate()
	defer m.SocketDestroy(clientID)

	dial := loopbackDial(listenAddr)
	if err := m.TCPSocketConnect(clientID, dial, 1000); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	acceptedID := m.TCPSocketAccept(listenerID, 1000)
	if acceptedID == api.InvalidID {
		t.Fatal("accept returned no connection")
	}
	defer m.SocketDestroy(acceptedID)

	payload := []byte("Hello World")

	clientStream := m.SocketStream(clientID)
	defer clientStream.Close()
	if _, err := clientStream.Write(payload); err != nil {
		t.Fatalf("client write failed: %v", err)
	}
	if err := clientStream.Flush(); err != nil {
		t.Fatalf("client flush failed: %v", err)
	}

	serverStream := m.SocketStream(acceptedID)
	defer serverStream.Close()

	buf := make([]byte, len(payload))
	read := 0
	deadline := time.Now().Add(2 * time.Second)
	for read < len(buf) && time.Now().Before(deadline) {
		n, err := serverStream.Read(buf[read:])
		read += n
		if err != nil && n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if read != len(payload) {
		t.Fatalf("expected to read %d bytes, got %d", len(payload), read)
	}
	if string(buf) != string(payload) {
		t.Fatalf("round-trip mismatch: got %q want %q", buf, payload)
	}
}

// Scenario 5: server closes accepted socket; client read returns 0 and
// a HANGUP event is observed for the client's id.
func TestScenario_ServerCloseHangup(t *testing.T) {
	m := newTestModule(t)
	listenerID, listenAddr := mustListener(t, m)
	defer m.SocketDestroy(listenerID)

	clientID := m.TCPSocketCreate()
	defer m.SocketDestroy(clientID)

	dial := loopbackDial(listenAddr)
	if err := m.TCPSocketConnect(clientID, dial, 1000); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	acceptedID := m.TCPSocketAccept(listenerID, 1000)
	if acceptedID == api.InvalidID {
		t.Fatal("accept returned no connection")
	}

	hangups := m.Bus.Subscribe(api.EventHangup)

	m.SocketClose(acceptedID)
	m.SocketDestroy(acceptedID)

	clientStream := m.SocketStream(clientID)
	defer clientStream.Close()

	buf := make([]byte, 16)
	deadline := time.Now().Add(2 * time.Second)
	var n int
	var readErr error
	for time.Now().Before(deadline) {
		n, readErr = clientStream.Read(buf)
		if readErr != nil || n == 0 {
			break
		}
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes after peer close, got %d", n)
	}

	select {
	case ev := <-hangups:
		if ev.ID != clientID {
			t.Fatalf("expected hangup for client id %d, got %d", clientID, ev.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for HANGUP event")
	}
}

// Scenario 6: accept with timeout_ms=50 and no connector returns 0,
// allocates no new record, and the listener remains LISTENING.
func TestScenario_AcceptTimeoutNoConnector(t *testing.T) {
	m := newTestModule(t)
	listenerID, _ := mustListener(t, m)
	defer m.SocketDestroy(listenerID)

	before := m.Stats().SocketsCreated

	got := m.TCPSocketAccept(listenerID, 50)
	if got != api.InvalidID {
		t.Fatalf("expected no accepted connection, got id %d", got)
	}

	after := m.Stats().SocketsCreated
	if after != before {
		t.Fatalf("expected no new record allocated, created count moved from %d to %d", before, after)
	}
	if m.SocketState(listenerID) != api.StateListening {
		t.Fatalf("expected listener to remain LISTENING, got %s", m.SocketState(listenerID))
	}
}

// loopbackDial builds the loopback dial address carrying the listener's
// OS-chosen port, since binding to *Any(0) means the client must dial
// loopback rather than the wildcard address itself.
func loopbackDial(listenAddr addr.Address) addr.Address {
	if listenAddr.Family() == api.FamilyIPv6 {
		return addr.IPv6(net.IPv6loopback, listenAddr.Port())
	}
	return addr.IPv4(net.IPv4(127, 0, 0, 1), listenAddr.Port())
}
