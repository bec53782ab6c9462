//go:build !linux && !windows
// +build !linux,!windows

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// poll(2)-based reactor for platforms with neither epoll nor IOCP
// (darwin, the various BSDs). O(n) per Wait rather than event-driven,
// same tradeoff internal/sysnet accepts for its unix readiness probes,
// but adequate for the modest socket counts this reactor targets
// outside the two primary platforms.

package reactor

import (
	"sync"

	"golang.org/x/sys/unix"
)

type pollReactor struct {
	mu  sync.Mutex
	fds map[int32]uintptr // fd -> userData
}

// NewReactor constructs a poll(2)-based EventReactor.
func NewReactor() (EventReactor, error) {
	return &pollReactor{fds: make(map[int32]uintptr)}, nil
}

func (r *pollReactor) Register(fd uintptr, userData uintptr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fds[int32(fd)] = userData
	return nil
}

// Wait blocks until at least one registered descriptor is readable or
// writable, reporting each in events. Returns 0 at once if no
// descriptor is registered.
func (r *pollReactor) Wait(events []Event) (int, error) {
	r.mu.Lock()
	pfds := make([]unix.PollFd, 0, len(r.fds))
	order := make([]int32, 0, len(r.fds))
	for fd := range r.fds {
		pfds = append(pfds, unix.PollFd{Fd: fd, Events: unix.POLLIN | unix.POLLOUT})
		order = append(order, fd)
	}
	r.mu.Unlock()

	if len(pfds) == 0 {
		return 0, nil
	}

	n, err := unix.Poll(pfds, -1)
	if err != nil || n == 0 {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for i, pfd := range pfds {
		if count >= len(events) {
			break
		}
		if pfd.Revents == 0 {
			continue
		}
		if ud, ok := r.fds[order[i]]; ok {
			events[count] = Event{Fd: uintptr(pfd.Fd), UserData: ud}
			count++
		}
	}
	return count, nil
}

func (r *pollReactor) Close() error { return nil }
