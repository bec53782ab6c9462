//go:build windows

// File: internal/sysnet/sysnet_windows.go
// Author: momentics <momentics@gmail.com>
//
// Windows realization of the raw socket primitives, built on
// golang.org/x/sys/windows the way the teacher's transport_windows*.go
// files use it for IOCP-backed accept/connect.
package sysnet

import (
	"net"

	"golang.org/x/sys/windows"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
)

// ClassifyErrno maps a raw Winsock error into {WouldBlock,
// ConnectionTerminated, Other}.
func ClassifyErrno(err error) ErrClass {
	errno, ok := err.(windows.Errno)
	if !ok {
		return ErrOther
	}
	switch errno {
	case windows.WSAEWOULDBLOCK, windows.WSAEINPROGRESS:
		return ErrWouldBlock
	case windows.WSAECONNRESET, windows.WSAECONNABORTED, windows.WSAETIMEDOUT,
		windows.WSAENOTCONN, windows.WSAESHUTDOWN, windows.WSAEHOSTUNREACH,
		windows.WSAENETRESET:
		return ErrTerminated
	default:
		return ErrOther
	}
}

// SetBlocking toggles FIONBIO via ioctlsocket, the Windows equivalent
// of POSIX's fcntl(O_NONBLOCK).
func SetBlocking(fd uintptr, blocking bool) error {
	var mode uint32
	if !blocking {
		mode = 1
	}
	return windows.IoctlSocket(windows.Handle(fd), windows.FIONBIO, &mode)
}

// CloseFD performs a full-duplex shutdown then closes fd.
func CloseFD(fd uintptr) error {
	_ = windows.Shutdown(windows.Handle(fd), windows.SHUT_RDWR)
	return windows.Closesocket(windows.Handle(fd))
}

// Socket opens a TCP stream socket for the given family.
func Socket(family api.Family) (uintptr, error) {
	af := windows.AF_INET
	if family == api.FamilyIPv6 {
		af = windows.AF_INET6
	}
	fd, err := windows.Socket(af, windows.SOCK_STREAM, windows.IPPROTO_TCP)
	if err != nil {
		return InvalidFD, err
	}
	return uintptr(fd), nil
}

// Bind binds fd to a.
func Bind(fd uintptr, a addr.Address) error {
	sa, err := a.ToSockaddr()
	if err != nil {
		return err
	}
	return windows.Bind(windows.Handle(fd), sa)
}

// Listen marks fd as a listening socket with the platform's SOMAXCONN.
func Listen(fd uintptr) error {
	return windows.Listen(windows.Handle(fd), windows.SOMAXCONN)
}

// Accept accepts a connection on the listening fd, returning the new
// fd and the peer's address.
func Accept(fd uintptr) (uintptr, addr.Address, error) {
	nfd, sa, err := windows.Accept(windows.Handle(fd))
	if err != nil {
		return InvalidFD, addr.Address{}, err
	}
	peer, err := addr.FromSockaddr(sa)
	if err != nil {
		windows.Closesocket(nfd)
		return InvalidFD, addr.Address{}, err
	}
	return uintptr(nfd), peer, nil
}

// Connect issues WSAConnect toward remote.
func Connect(fd uintptr, remote addr.Address) error {
	sa, err := remote.ToSockaddr()
	if err != nil {
		return err
	}
	return windows.Connect(windows.Handle(fd), sa)
}

// SetNoDelay toggles TCP_NODELAY.
func SetNoDelay(fd uintptr, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(fd), windows.IPPROTO_TCP, windows.TCP_NODELAY, v)
}

// SetReuseAddr toggles SO_REUSEADDR.
func SetReuseAddr(fd uintptr, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, v)
}

// SetReusePort is a no-op on Windows: Winsock has no SO_REUSEPORT
// equivalent (SO_REUSEADDR already permits address reuse).
func SetReusePort(fd uintptr, on bool) error {
	return nil
}

// JoinMulticastGroup wires the multicast_group hook onto
// IP_ADD_MEMBERSHIP on Windows.
func JoinMulticastGroup(fd uintptr, group net.IP, iface net.IP) error {
	mreq := windows.IPMreq{}
	copy(mreq.Multiaddr[:], group.To4())
	copy(mreq.Interface[:], iface.To4())
	return windows.SetsockoptIPMreq(windows.Handle(fd), windows.IPPROTO_IP, windows.IP_ADD_MEMBERSHIP, &mreq)
}

// SOError reads and clears SO_ERROR.
func SOError(fd uintptr) (int, error) {
	return windows.GetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_ERROR)
}

// FIONREAD returns the kernel-reported number of bytes available.
func FIONREAD(fd uintptr) (int, error) {
	var n uint32
	err := windows.IoctlSocket(windows.Handle(fd), windows.FIONREAD, &n)
	return int(n), err
}

// Send writes buf to fd.
func Send(fd uintptr, buf []byte) (int, error) {
	return windows.Write(windows.Handle(fd), buf)
}

// Recv reads from fd into buf.
func Recv(fd uintptr, buf []byte) (int, error) {
	return windows.Read(windows.Handle(fd), buf)
}

// PollWritable blocks up to timeoutMs waiting for fd to become
// writable or errored, using select.
func PollWritable(fd uintptr, timeoutMs int) (writable bool, hasError bool, err error) {
	rfds := &windows.FdSet{}
	wfds := &windows.FdSet{}
	efds := &windows.FdSet{}
	wfds.Bits[0] = uint32(fd)
	efds.Bits[0] = uint32(fd)
	tv := windows.NsecToTimeval(int64(timeoutMs) * 1e6)
	n, serr := windows.Select(int(fd)+1, rfds, wfds, efds, &tv)
	if serr != nil {
		return false, false, serr
	}
	if n == 0 {
		return false, false, nil
	}
	return true, false, nil
}

// PollReadable blocks up to timeoutMs waiting for fd to become
// readable.
func PollReadable(fd uintptr, timeoutMs int) (readable bool, err error) {
	rfds := &windows.FdSet{}
	rfds.Bits[0] = uint32(fd)
	tv := windows.NsecToTimeval(int64(timeoutMs) * 1e6)
	n, serr := windows.Select(int(fd)+1, rfds, nil, nil, &tv)
	if serr != nil {
		return false, serr
	}
	return n > 0, nil
}

// LocalAddr and PeerAddr query the kernel for the fd's bound/peer
// addresses.
func LocalAddr(fd uintptr) (addr.Address, error) {
	sa, err := windows.Getsockname(windows.Handle(fd))
	if err != nil {
		return addr.Address{}, err
	}
	return addr.FromSockaddr(sa)
}

func PeerAddr(fd uintptr) (addr.Address, error) {
	sa, err := windows.Getpeername(windows.Handle(fd))
	if err != nil {
		return addr.Address{}, err
	}
	return addr.FromSockaddr(sa)
}

// ProbeCapability opens and immediately closes a UDP datagram socket
// of the given family, used by Module.NetworkInit to detect IPv4/IPv6
// support (spec.md 4.G's network_init, WSAStartup-adjacent probe).
func ProbeCapability(family api.Family) bool {
	af := windows.AF_INET
	if family == api.FamilyIPv6 {
		af = windows.AF_INET6
	}
	fd, err := windows.Socket(af, windows.SOCK_DGRAM, windows.IPPROTO_UDP)
	if err != nil {
		return false
	}
	_ = CloseFD(uintptr(fd))
	return true
}
