package stream

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
	"github.com/momentics/netcore/internal/event"
	"github.com/momentics/netcore/internal/registry"
	"github.com/momentics/netcore/internal/slot"
	"github.com/momentics/netcore/internal/tcp"
)

func newTestManager(t *testing.T) *tcp.Manager {
	t.Helper()
	return &tcp.Manager{
		Registry: registry.New(16),
		Slots:    slot.NewTable(16),
		Bus:      event.NewBus(nil),
	}
}

// connectedPair builds a real loopback TCP connection and returns both
// endpoint ids, ready for stream adapters.
func connectedPair(t *testing.T, mgr *tcp.Manager) (client, server api.ID) {
	t.Helper()
	listener := mgr.Create()
	if !mgr.Bind(listener, addr.IPv4Any(0)) {
		t.Fatal("bind failed")
	}
	if !mgr.Listen(listener) {
		t.Fatal("listen failed")
	}
	local := mgr.AddressLocal(listener)
	if local == nil {
		t.Fatal("expected a local address after bind+listen")
	}

	client = mgr.Create()
	dial := addr.IPv4(net.IPv4(127, 0, 0, 1), local.Port())
	if err := mgr.Connect(client, dial, 1000); err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	server = mgr.Accept(listener, 1000)
	if server == api.InvalidID {
		t.Fatal("accept returned no connection")
	}
	mgr.Destroy(listener)
	return client, server
}

func TestAdapter_SeekDiscardsBufferedBytes(t *testing.T) {
	mgr := newTestManager(t)
	client, server := connectedPair(t, mgr)
	defer mgr.Destroy(client)
	defer mgr.Destroy(server)

	clientStream := New(mgr, client)
	defer clientStream.Close()
	if _, err := clientStream.Write([]byte("0123456789")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := clientStream.Flush(); err != nil {
		t.Fatalf("flush failed: %v", err)
	}

	serverStream := New(mgr, server)
	defer serverStream.Close()

	// Wait for the payload to actually be readable before seeking past it.
	deadline := time.Now().Add(2 * time.Second)
	for serverStream.AvailableRead() < 10 && time.Now().Before(deadline) {
		serverStream.BufferRead()
		time.Sleep(5 * time.Millisecond)
	}

	if err := serverStream.Seek(5, SeekCurrent); err != nil {
		t.Fatalf("seek failed: %v", err)
	}
	buf := make([]byte, 5)
	n, err := serverStream.Read(buf)
	if err != nil && n == 0 {
		t.Fatalf("read after seek failed: %v", err)
	}
	if string(buf[:n]) != "56789"[:n] {
		t.Fatalf("expected to read the remainder after discarding 5 bytes, got %q", buf[:n])
	}
}

func TestAdapter_SeekRejectsNegativeOffset(t *testing.T) {
	mgr := newTestManager(t)
	client, server := connectedPair(t, mgr)
	defer mgr.Destroy(client)
	defer mgr.Destroy(server)

	s := New(mgr, client)
	defer s.Close()

	if err := s.Seek(-1, SeekCurrent); err != ErrSeekUnsupported {
		t.Fatalf("expected ErrSeekUnsupported for a negative offset, got %v", err)
	}
}

func TestAdapter_SizeAndTruncateAreNoops(t *testing.T) {
	mgr := newTestManager(t)
	client, server := connectedPair(t, mgr)
	defer mgr.Destroy(client)
	defer mgr.Destroy(server)

	s := New(mgr, client)
	defer s.Close()

	if s.Size() != 0 {
		t.Fatalf("expected Size() to always report 0, got %d", s.Size())
	}
	s.Truncate(1000) // must not panic or affect anything observable.
}

func TestAdapter_TellTracksBytesRead(t *testing.T) {
	mgr := newTestManager(t)
	client, server := connectedPair(t, mgr)
	defer mgr.Destroy(client)
	defer mgr.Destroy(server)

	clientStream := New(mgr, client)
	defer clientStream.Close()
	clientStream.Write([]byte("hello"))
	clientStream.Flush()

	serverStream := New(mgr, server)
	defer serverStream.Close()

	buf := make([]byte, 5)
	deadline := time.Now().Add(2 * time.Second)
	read := 0
	for read < len(buf) && time.Now().Before(deadline) {
		n, _ := serverStream.Read(buf[read:])
		read += n
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
		}
	}
	if serverStream.Tell() != int64(read) {
		t.Fatalf("expected Tell() to equal bytes read (%d), got %d", read, serverStream.Tell())
	}
}
