package addr

import (
	"net"
	"testing"

	"github.com/momentics/netcore/api"
)

func TestIPv4AnyWildcard(t *testing.T) {
	a := IPv4Any(8080)
	if a.Family() != api.FamilyIPv4 {
		t.Fatalf("expected IPv4 family, got %s", a.Family())
	}
	if a.Port() != 8080 {
		t.Fatalf("expected port 8080, got %d", a.Port())
	}
	if !a.IP().Equal(net.IPv4zero) {
		t.Fatalf("expected wildcard IP, got %s", a.IP())
	}
}

func TestIPv6AnyWildcard(t *testing.T) {
	a := IPv6Any(53)
	if a.Family() != api.FamilyIPv6 {
		t.Fatalf("expected IPv6 family, got %s", a.Family())
	}
	if !a.IP().Equal(net.IPv6unspecified) {
		t.Fatalf("expected unspecified IPv6, got %s", a.IP())
	}
}

func TestAddress_CloneIsIndependent(t *testing.T) {
	a := IPv4(net.IPv4(10, 0, 0, 1), 443)
	c := a.Clone()
	c.SetPort(9999)

	if a.Port() == c.Port() {
		t.Fatal("expected Clone to be independently mutable from the original")
	}
	c.IP()[0] = 0
	if a.IP()[0] == 0 {
		t.Fatal("expected Clone's IP backing array to be independent of the original")
	}
}

func TestAddress_Equal(t *testing.T) {
	a := IPv4(net.IPv4(127, 0, 0, 1), 80)
	b := IPv4(net.IPv4(127, 0, 0, 1), 80)
	c := IPv4(net.IPv4(127, 0, 0, 1), 81)

	if !a.Equal(b) {
		t.Fatal("expected identical addresses to compare equal")
	}
	if a.Equal(c) {
		t.Fatal("expected addresses with different ports to compare unequal")
	}
}

func TestAddress_StringBracketsIPv6(t *testing.T) {
	a := IPv6(net.IPv6loopback, 22)
	got := a.String()
	want := "[::1]:22"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAddress_IsZero(t *testing.T) {
	var a Address
	if !a.IsZero() {
		t.Fatal("expected a zero-value Address to report IsZero true")
	}
	a = IPv4Any(0)
	if a.IsZero() {
		t.Fatal("expected an initialized Address to report IsZero false")
	}
}
