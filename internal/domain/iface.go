package domain

import (
	"fmt"
	"net/netip"
)

// Interface is a network interface of a node
type Interface struct {
	Name     string
	Node     *Node
	Peer     *Interface
	Loopback bool

	v4      []netip.Prefix
	v6      []netip.Prefix
	widthV4 int
	widthV6 int

	// position in the node's interface list
	index int
}

// ID returns "node:interface", unique within a topology
func (i *Interface) ID() string {
	return i.Node.Name + ":" + i.Name
}

// String implements fmt.Stringer
func (i *Interface) String() string {
	return i.ID()
}

// Index returns the position of the interface on its node
func (i *Interface) Index() int {
	return i.index
}

// IsConnected reports whether the interface has a peer across a link
func (i *Interface) IsConnected() bool {
	return i.Peer != nil
}

// Width returns how many addresses of the family the interface needs
func (i *Interface) Width(f Family) int {
	w := i.widthV4
	if f == IPv6 {
		w = i.widthV6
	}
	if w <= 0 {
		return 1
	}
	return w
}

// SetWidth sets how many addresses of the family the interface needs
func (i *Interface) SetWidth(f Family, w int) {
	if f == IPv6 {
		i.widthV6 = w
		return
	}
	i.widthV4 = w
}

// Addresses returns every address of the family set on the interface
func (i *Interface) Addresses(f Family) []netip.Prefix {
	if f == IPv6 {
		return append([]netip.Prefix(nil), i.v6...)
	}
	return append([]netip.Prefix(nil), i.v4...)
}

// ConfiguredAddresses returns the addresses of the family that take part in
// subnet allocation: loopback and link-local addresses are left out
func (i *Interface) ConfiguredAddresses(f Family) []netip.Prefix {
	var out []netip.Prefix
	for _, p := range i.Addresses(f) {
		if isAllocatable(p.Addr()) {
			out = append(out, p)
		}
	}
	return out
}

// HasAddress reports whether the interface carries an allocatable address of
// the family
func (i *Interface) HasAddress(f Family) bool {
	return len(i.ConfiguredAddresses(f)) > 0
}

// AddAddress appends an address; the family is derived from the address
func (i *Interface) AddAddress(p netip.Prefix) error {
	if !p.IsValid() {
		return fmt.Errorf("interface %s: invalid address %q", i.ID(), p)
	}
	if p.Addr().Is4In6() {
		p = netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-96)
	}
	if FamilyOf(p.Addr()) == IPv6 {
		i.v6 = append(i.v6, p)
	} else {
		i.v4 = append(i.v4, p)
	}
	return nil
}

// ParseAddress parses CIDR notation and appends the address
func (i *Interface) ParseAddress(s string) error {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return fmt.Errorf("interface %s: %w", i.ID(), err)
	}
	return i.AddAddress(p)
}

// SetAddresses replaces every address of the family
func (i *Interface) SetAddresses(f Family, addrs []netip.Prefix) {
	cp := append([]netip.Prefix(nil), addrs...)
	if f == IPv6 {
		i.v6 = cp
		return
	}
	i.v4 = cp
}
