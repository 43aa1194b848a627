package domain

import (
	"fmt"
	"net/netip"
)

// Family identifies an IP address family
type Family int

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

// Families lists the supported families in allocation order
var Families = []Family{IPv4, IPv6}

// String returns "ipv4" or "ipv6"
func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Bits returns the address length of the family in bits
func (f Family) Bits() int {
	if f == IPv6 {
		return 128
	}
	return 32
}

// reserved is the number of addresses of a subnet that are never handed to an
// interface: the network address, plus the broadcast address for IPv4.
func (f Family) reserved() int {
	if f == IPv6 {
		return 1
	}
	return 2
}

// ParseFamily converts "ipv4"/"4" and "ipv6"/"6" to a Family
func ParseFamily(s string) (Family, error) {
	switch s {
	case "ipv4", "v4", "4":
		return IPv4, nil
	case "ipv6", "v6", "6":
		return IPv6, nil
	}
	return 0, fmt.Errorf("unknown address family %q", s)
}

// FamilyOf returns the family of an address. IPv4-mapped IPv6 addresses are
// reported as IPv4.
func FamilyOf(a netip.Addr) Family {
	if a.Unmap().Is4() {
		return IPv4
	}
	return IPv6
}

// isAllocatable reports whether an address takes part in subnet allocation.
// Loopback and IPv6 link-local addresses never do.
func isAllocatable(a netip.Addr) bool {
	a = a.Unmap()
	if a.IsLoopback() {
		return false
	}
	if a.Is6() && a.IsLinkLocalUnicast() {
		return false
	}
	return true
}
