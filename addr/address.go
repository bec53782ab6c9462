// File: addr/address.go
// Author: momentics <momentics@gmail.com>
//
// Package addr provides the concrete NetworkAddress realization that
// spec.md treats as an out-of-scope external collaborator: a value type
// carrying an address family, an IP, and a port, with clone/equal/
// string/wildcard-constructor operations matching the
// network_address_ip_t struct in the original C source.
package addr

import (
	"fmt"
	"net"

	"github.com/momentics/netcore/api"
)

// Address is a value type wrapping an IP, a port, and its family.
type Address struct {
	family api.Family
	ip     net.IP
	port   uint16
}

// IPv4 constructs an IPv4 address value.
func IPv4(ip net.IP, port uint16) Address {
	return Address{family: api.FamilyIPv4, ip: ip.To4(), port: port}
}

// IPv6 constructs an IPv6 address value.
func IPv6(ip net.IP, port uint16) Address {
	return Address{family: api.FamilyIPv6, ip: ip.To16(), port: port}
}

// IPv4Any returns the IPv4 wildcard bind address 0.0.0.0:port.
func IPv4Any(port uint16) Address {
	return IPv4(net.IPv4zero, port)
}

// IPv6Any returns the IPv6 wildcard bind address [::]:port.
func IPv6Any(port uint16) Address {
	return IPv6(net.IPv6unspecified, port)
}

// Family returns the address's family.
func (a Address) Family() api.Family { return a.family }

// IP returns the wrapped IP.
func (a Address) IP() net.IP { return a.ip }

// Port returns the address's port.
func (a Address) Port() uint16 { return a.port }

// SetPort mutates the address's port in place.
func (a *Address) SetPort(p uint16) { a.port = p }

// Clone returns a deep copy of a, matching NetworkAddress.clone.
func (a Address) Clone() Address {
	ipCopy := make(net.IP, len(a.ip))
	copy(ipCopy, a.ip)
	return Address{family: a.family, ip: ipCopy, port: a.port}
}

// Equal reports whether a and other denote the same family/IP/port.
func (a Address) Equal(other Address) bool {
	return a.family == other.family && a.port == other.port && a.ip.Equal(other.ip)
}

// IsZero reports whether a was never assigned an IP.
func (a Address) IsZero() bool { return a.ip == nil }

// String renders "ip:port", bracketed for IPv6.
func (a Address) String() string {
	if a.ip == nil {
		return "<nil>"
	}
	if a.family == api.FamilyIPv6 {
		return fmt.Sprintf("[%s]:%d", a.ip.String(), a.port)
	}
	return fmt.Sprintf("%s:%d", a.ip.String(), a.port)
}
