//go:build linux || darwin

// File: internal/sysnet/sysnet_unix.go
// Author: momentics <momentics@gmail.com>
//
// POSIX realization of the raw socket primitives, built on
// golang.org/x/sys/unix exactly as the teacher's transport layer uses
// it for its epoll/accept paths.
package sysnet

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/netcore/addr"
	"github.com/momentics/netcore/api"
)

// ClassifyErrno maps a raw errno into {WouldBlock, ConnectionTerminated,
// Other}, matching the teardown-error set from original_source (reset,
// pipe, timed-out, aborted, disconnected).
func ClassifyErrno(err error) ErrClass {
	errno, ok := err.(unix.Errno)
	if !ok {
		return ErrOther
	}
	switch errno {
	case unix.EAGAIN, unix.EINPROGRESS:
		return ErrWouldBlock
	case unix.ECONNRESET, unix.EPIPE, unix.ETIMEDOUT, unix.ECONNABORTED,
		unix.ENOTCONN, unix.ESHUTDOWN, unix.EHOSTUNREACH, unix.ENETRESET:
		return ErrTerminated
	default:
		return ErrOther
	}
}

// SetBlocking toggles O_NONBLOCK on fd.
func SetBlocking(fd uintptr, blocking bool) error {
	return unix.SetNonblock(int(fd), !blocking)
}

// CloseFD performs a full-duplex shutdown then closes fd. The shutdown
// error is intentionally discarded — benign for the unconnected UDP
// capability-probe socket, and irrelevant to a caller who wants the fd
// gone regardless (spec.md 9's second open question).
func CloseFD(fd uintptr) error {
	_ = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	return unix.Close(int(fd))
}

// Socket opens a TCP stream socket for the given family.
func Socket(family api.Family) (uintptr, error) {
	domain := unix.AF_INET
	if family == api.FamilyIPv6 {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
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
	return unix.Bind(int(fd), sa)
}

// Listen marks fd as a listening socket with the platform's SOMAXCONN.
func Listen(fd uintptr) error {
	return unix.Listen(int(fd), unix.SOMAXCONN)
}

// Accept accepts a connection on the listening fd, returning the new
// fd and the peer's address.
func Accept(fd uintptr) (uintptr, addr.Address, error) {
	nfd, sa, err := unix.Accept(int(fd))
	if err != nil {
		return InvalidFD, addr.Address{}, err
	}
	peer, err := addr.FromSockaddr(sa)
	if err != nil {
		unix.Close(nfd)
		return InvalidFD, addr.Address{}, err
	}
	return uintptr(nfd), peer, nil
}

// Connect issues connect(2) toward remote.
func Connect(fd uintptr, remote addr.Address) error {
	sa, err := remote.ToSockaddr()
	if err != nil {
		return err
	}
	return unix.Connect(int(fd), sa)
}

// SetNoDelay toggles TCP_NODELAY.
func SetNoDelay(fd uintptr, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// SetReuseAddr toggles SO_REUSEADDR.
func SetReuseAddr(fd uintptr, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, v)
}

// SetReusePort toggles SO_REUSEPORT.
func SetReusePort(fd uintptr, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, v)
}

// JoinMulticastGroup wires SPEC_FULL's multicast_group hook onto
// IP_ADD_MEMBERSHIP; only the hook is specified by spec.md, actual UDP
// transport is out of scope, but TCP sockets may still legally call
// this on platforms that permit it, matching the source's exposed hook.
func JoinMulticastGroup(fd uintptr, group net.IP, iface net.IP) error {
	mreq := &unix.IPMreq{}
	copy(mreq.Multiaddr[:], group.To4())
	copy(mreq.Interface[:], iface.To4())
	return unix.SetsockoptIPMreq(int(fd), unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
}

// SOError reads and clears SO_ERROR.
func SOError(fd uintptr) (int, error) {
	return unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
}

// FIONREAD returns the kernel-reported number of bytes available to
// read without blocking.
func FIONREAD(fd uintptr) (int, error) {
	return unix.IoctlGetInt(int(fd), unix.TIOCINQ)
}

// Send writes buf to fd in non-blocking-tolerant fashion; the caller
// is responsible for classifying a would-block error via ClassifyErrno.
func Send(fd uintptr, buf []byte) (int, error) {
	n, err := unix.Write(int(fd), buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Recv reads from fd into buf.
func Recv(fd uintptr, buf []byte) (int, error) {
	n, err := unix.Read(int(fd), buf)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// PollWritable blocks up to timeoutMs waiting for fd to become
// writable or errored; timeoutMs==0 returns immediately.
func PollWritable(fd uintptr, timeoutMs int) (writable bool, hasError bool, err error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	n, perr := unix.Poll(pfd, timeoutMs)
	if perr != nil {
		return false, false, perr
	}
	if n == 0 {
		return false, false, nil
	}
	if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return false, true, nil
	}
	return pfd[0].Revents&unix.POLLOUT != 0, false, nil
}

// PollReadable blocks up to timeoutMs waiting for fd to become
// readable; timeoutMs==0 returns immediately.
func PollReadable(fd uintptr, timeoutMs int) (readable bool, err error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, perr := unix.Poll(pfd, timeoutMs)
	if perr != nil {
		return false, perr
	}
	return n > 0 && pfd[0].Revents&unix.POLLIN != 0, nil
}

// LocalAddr and PeerAddr query the kernel for the fd's bound/peer
// addresses, used after accept/connect/bind to populate the record.
func LocalAddr(fd uintptr) (addr.Address, error) {
	sa, err := unix.Getsockname(int(fd))
	if err != nil {
		return addr.Address{}, err
	}
	return addr.FromSockaddr(sa)
}

func PeerAddr(fd uintptr) (addr.Address, error) {
	sa, err := unix.Getpeername(int(fd))
	if err != nil {
		return addr.Address{}, err
	}
	return addr.FromSockaddr(sa)
}

// ProbeCapability opens and immediately closes a UDP datagram socket
// of the given family, used by Module.NetworkInit to detect IPv4/IPv6
// support (spec.md 4.G's network_init).
func ProbeCapability(family api.Family) bool {
	domain := unix.AF_INET
	if family == api.FamilyIPv6 {
		domain = unix.AF_INET6
	}
	fd, err := unix.Socket(domain, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return false
	}
	_ = CloseFD(uintptr(fd))
	return true
}
