package domain

import (
	"math/bits"
	"net/netip"
)

// BroadcastDomain is the set of L3 interfaces sharing one L2 segment
type BroadcastDomain struct {
	ID         int
	Interfaces []*Interface

	fixed    map[Family][]Subnet
	assigned map[Family]Subnet
	cursor   map[Family]uint64
}

// NewBroadcastDomain creates a domain over the given member interfaces and
// records the subnets already pinned on them
func NewBroadcastDomain(id int, members []*Interface) *BroadcastDomain {
	d := &BroadcastDomain{
		ID:         id,
		Interfaces: append([]*Interface(nil), members...),
		fixed:      make(map[Family][]Subnet),
		assigned:   make(map[Family]Subnet),
		cursor:     map[Family]uint64{IPv4: 1, IPv6: 1},
	}
	for _, f := range Families {
		seen := make(map[string]bool)
		for _, itf := range d.Interfaces {
			for _, p := range itf.ConfiguredAddresses(f) {
				s := SubnetOf(p)
				if s == nil || seen[s.String()] {
					continue
				}
				seen[s.String()] = true
				d.fixed[f] = append(d.fixed[f], s)
			}
		}
	}
	return d
}

// Len returns the number of member interfaces
func (d *BroadcastDomain) Len() int {
	return len(d.Interfaces)
}

// Uses reports whether any member node has the family enabled
func (d *BroadcastDomain) Uses(f Family) bool {
	for _, itf := range d.Interfaces {
		if itf.Node.Uses(f) {
			return true
		}
	}
	return false
}

// RequiredAddresses is the number of addresses of the family the allocator
// has to provide: the widths of members on nodes using the family that carry
// no address of it yet
func (d *BroadcastDomain) RequiredAddresses(f Family) int {
	n := 0
	for _, itf := range d.Interfaces {
		if !itf.Node.Uses(f) || itf.HasAddress(f) {
			continue
		}
		n += itf.Width(f)
	}
	return n
}

// PrefixLen returns the longest prefix length whose subnet holds every
// required address plus the reserved ones
func (d *BroadcastDomain) PrefixLen(f Family) int {
	total := d.RequiredAddresses(f) + f.reserved()
	return f.Bits() - bits.Len(uint(total-1))
}

// FixedSubnets returns the subnets derived from addresses pinned on members
func (d *BroadcastDomain) FixedSubnets(f Family) []Subnet {
	return append([]Subnet(nil), d.fixed[f]...)
}

// HasFixed reports whether a member carries a pinned address of the family
func (d *BroadcastDomain) HasFixed(f Family) bool {
	return len(d.fixed[f]) > 0
}

// Subnet returns the subnet assigned for the family, or nil
func (d *BroadcastDomain) Subnet(f Family) Subnet {
	return d.assigned[f]
}

// Assign records the subnet of the family
func (d *BroadcastDomain) Assign(f Family, s Subnet) {
	d.assigned[f] = s
}

// Cursor returns the offset of the next address to hand out
func (d *BroadcastDomain) Cursor(f Family) uint64 {
	return d.cursor[f]
}

// Advance moves the cursor forward by n positions
func (d *BroadcastDomain) Advance(f Family, n uint64) {
	d.cursor[f] += n
}

// UsedAddresses returns every allocatable address of the family present on
// member interfaces
func (d *BroadcastDomain) UsedAddresses(f Family) map[netip.Addr]bool {
	used := make(map[netip.Addr]bool)
	for _, itf := range d.Interfaces {
		for _, p := range itf.ConfiguredAddresses(f) {
			used[p.Addr()] = true
		}
	}
	return used
}

// Routers returns the member interfaces that belong to routers
func (d *BroadcastDomain) Routers() []*Interface {
	var out []*Interface
	for _, itf := range d.Interfaces {
		if itf.Node.IsRouter() {
			out = append(out, itf)
		}
	}
	return out
}

// IsLoopback reports whether the domain is a router loopback
func (d *BroadcastDomain) IsLoopback() bool {
	return len(d.Interfaces) == 1 && d.Interfaces[0].Loopback
}
