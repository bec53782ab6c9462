//go:build linux || darwin

// File: addr/sockaddr_unix.go
// Author: momentics <momentics@gmail.com>
//
// Conversions between addr.Address and golang.org/x/sys/unix sockaddr
// types, used only by internal/tcp on POSIX platforms.
package addr

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/netcore/api"
)

// ToSockaddr converts a into a unix.Sockaddr suitable for Bind/Connect.
func (a Address) ToSockaddr() (unix.Sockaddr, error) {
	switch a.family {
	case api.FamilyIPv4:
		sa := &unix.SockaddrInet4{Port: int(a.port)}
		ip4 := a.ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("addr: not an ipv4 address: %v", a.ip)
		}
		copy(sa.Addr[:], ip4)
		return sa, nil
	case api.FamilyIPv6:
		sa := &unix.SockaddrInet6{Port: int(a.port)}
		ip6 := a.ip.To16()
		if ip6 == nil {
			return nil, fmt.Errorf("addr: not an ipv6 address: %v", a.ip)
		}
		copy(sa.Addr[:], ip6)
		return sa, nil
	default:
		return nil, fmt.Errorf("addr: unspecified family")
	}
}

// FromSockaddr converts a unix.Sockaddr into an Address value.
func FromSockaddr(sa unix.Sockaddr) (Address, error) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return IPv4(ip, uint16(v.Port)), nil
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return IPv6(ip, uint16(v.Port)), nil
	default:
		return Address{}, fmt.Errorf("addr: unsupported sockaddr type %T", sa)
	}
}
