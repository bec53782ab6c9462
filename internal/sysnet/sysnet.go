// File: internal/sysnet/sysnet.go
// Author: momentics <momentics@gmail.com>
//
// Package sysnet is the platform-neutral seam spec.md 9 asks for:
// "abstract behind three primitives: set_blocking, close_fd, and an
// error-code classifier mapping to {WouldBlock, ConnectionTerminated,
// Other}". It also carries the small set of raw socket syscalls
// (socket/bind/listen/accept/connect/send/recv/readiness-probe) that
// both internal/tcp (component D) and internal/poller (component E)
// need, so those two packages share this leaf instead of one
// depending on the other.
package sysnet

// ErrClass is the abstract error kind a kernel syscall failure maps to.
type ErrClass int

const (
	ErrOther ErrClass = iota
	ErrWouldBlock
	ErrTerminated
)

// InvalidFD is the sentinel platform descriptor value.
const InvalidFD = ^uintptr(0)
