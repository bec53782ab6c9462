//go:build windows

// File: addr/sockaddr_windows.go
// Author: momentics <momentics@gmail.com>
//
// Conversions between addr.Address and golang.org/x/sys/windows sockaddr
// types, used only by internal/tcp on Windows.
package addr

import (
	"fmt"
	"net"

	"golang.org/x/sys/windows"

	"github.com/momentics/netcore/api"
)

// ToSockaddr converts a into a windows.Sockaddr suitable for Bind/Connect.
func (a Address) ToSockaddr() (windows.Sockaddr, error) {
	switch a.family {
	case api.FamilyIPv4:
		sa := &windows.SockaddrInet4{Port: int(a.port)}
		ip4 := a.ip.To4()
		if ip4 == nil {
			return nil, fmt.Errorf("addr: not an ipv4 address: %v", a.ip)
		}
		copy(sa.Addr[:], ip4)
		return sa, nil
	case api.FamilyIPv6:
		sa := &windows.SockaddrInet6{Port: int(a.port)}
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

// FromSockaddr converts a windows.Sockaddr into an Address value.
func FromSockaddr(sa windows.Sockaddr) (Address, error) {
	switch v := sa.(type) {
	case *windows.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, v.Addr[:])
		return IPv4(ip, uint16(v.Port)), nil
	case *windows.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, v.Addr[:])
		return IPv6(ip, uint16(v.Port)), nil
	default:
		return Address{}, fmt.Errorf("addr: unsupported sockaddr type %T", sa)
	}
}
