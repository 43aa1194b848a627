package domain

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"net/netip"
	"strings"
)

// Subnet is a CIDR block of a single address family. The set of
// implementations is closed: IPv4 and IPv6 blocks only.
type Subnet interface {
	Family() Family
	Prefix() netip.Prefix
	Bits() int
	Network() netip.Addr
	// Broadcast returns the last address of the block
	Broadcast() netip.Addr
	Size() *big.Int
	// Nth returns the address at offset i from the network address
	Nth(i uint64) (netip.Addr, bool)
	// Halves splits the block into its lower and upper halves
	Halves() (Subnet, Subnet)
	Contains(o Subnet) bool
	Overlaps(o Subnet) bool
	String() string

	sealed()
}

// NewSubnet builds a Subnet from a prefix, masking host bits
func NewSubnet(p netip.Prefix) (Subnet, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("invalid prefix %q", p)
	}
	addr := p.Addr()
	if addr.Is4In6() {
		bits := p.Bits() - 96
		if bits < 0 {
			return nil, fmt.Errorf("invalid IPv4-mapped prefix %s", p)
		}
		p = netip.PrefixFrom(addr.Unmap(), bits)
	}
	p = p.Masked()
	if p.Addr().Is4() {
		return v4Subnet{p: p}, nil
	}
	return v6Subnet{p: p}, nil
}

// MustSubnet is like ParseSubnet but panics on malformed input
func MustSubnet(s string) Subnet {
	sub, err := ParseSubnet(s)
	if err != nil {
		panic(err)
	}
	return sub
}

// ParseSubnet parses CIDR notation. Host bits are cleared.
func ParseSubnet(s string) (Subnet, error) {
	p, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("parse subnet: %w", err)
	}
	return NewSubnet(p)
}

// SubnetOf returns the subnet an interface address belongs to
func SubnetOf(addr netip.Prefix) Subnet {
	s, err := NewSubnet(addr)
	if err != nil {
		return nil
	}
	return s
}

// SubnetLess orders subnets by prefix length, most specific first, then by
// network address.
func SubnetLess(a, b Subnet) bool {
	if a.Bits() != b.Bits() {
		return a.Bits() > b.Bits()
	}
	return a.Network().Less(b.Network())
}

// ============================================================================
// IPv4
// ============================================================================

type v4Subnet struct {
	p netip.Prefix
}

func (s v4Subnet) sealed() {}

func (s v4Subnet) Family() Family       { return IPv4 }
func (s v4Subnet) Prefix() netip.Prefix { return s.p }
func (s v4Subnet) Bits() int            { return s.p.Bits() }
func (s v4Subnet) Network() netip.Addr  { return s.p.Addr() }
func (s v4Subnet) String() string       { return s.p.String() }

func (s v4Subnet) start() uint32 {
	b := s.p.Addr().As4()
	return binary.BigEndian.Uint32(b[:])
}

func (s v4Subnet) size() uint64 {
	return uint64(1) << uint(32-s.p.Bits())
}

func (s v4Subnet) Size() *big.Int {
	return new(big.Int).SetUint64(s.size())
}

func (s v4Subnet) Broadcast() netip.Addr {
	return u32ToAddr(s.start() + uint32(s.size()-1))
}

func (s v4Subnet) Nth(i uint64) (netip.Addr, bool) {
	if i >= s.size() {
		return netip.Addr{}, false
	}
	return u32ToAddr(s.start() + uint32(i)), true
}

func (s v4Subnet) Halves() (Subnet, Subnet) {
	bits := s.p.Bits() + 1
	lo := v4Subnet{p: netip.PrefixFrom(s.p.Addr(), bits)}
	hi := v4Subnet{p: netip.PrefixFrom(u32ToAddr(s.start()+uint32(s.size()/2)), bits)}
	return lo, hi
}

func (s v4Subnet) Contains(o Subnet) bool {
	return o.Family() == IPv4 && s.Bits() <= o.Bits() && s.p.Contains(o.Network())
}

func (s v4Subnet) Overlaps(o Subnet) bool {
	return o.Family() == IPv4 && s.p.Overlaps(o.Prefix())
}

func u32ToAddr(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}

// ============================================================================
// IPv6
// ============================================================================

type v6Subnet struct {
	p netip.Prefix
}

func (s v6Subnet) sealed() {}

func (s v6Subnet) Family() Family       { return IPv6 }
func (s v6Subnet) Prefix() netip.Prefix { return s.p }
func (s v6Subnet) Bits() int            { return s.p.Bits() }
func (s v6Subnet) Network() netip.Addr  { return s.p.Addr() }
func (s v6Subnet) String() string       { return s.p.String() }

func (s v6Subnet) Size() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(128-s.p.Bits()))
}

func (s v6Subnet) Broadcast() netip.Addr {
	last := new(big.Int).Add(addrToBig(s.p.Addr()), s.Size())
	last.Sub(last, big.NewInt(1))
	return bigToAddr6(last)
}

func (s v6Subnet) Nth(i uint64) (netip.Addr, bool) {
	off := new(big.Int).SetUint64(i)
	if off.Cmp(s.Size()) >= 0 {
		return netip.Addr{}, false
	}
	return bigToAddr6(off.Add(off, addrToBig(s.p.Addr()))), true
}

func (s v6Subnet) Halves() (Subnet, Subnet) {
	bits := s.p.Bits() + 1
	half := new(big.Int).Rsh(s.Size(), 1)
	lo := v6Subnet{p: netip.PrefixFrom(s.p.Addr(), bits)}
	hi := v6Subnet{p: netip.PrefixFrom(bigToAddr6(half.Add(half, addrToBig(s.p.Addr()))), bits)}
	return lo, hi
}

func (s v6Subnet) Contains(o Subnet) bool {
	return o.Family() == IPv6 && s.Bits() <= o.Bits() && s.p.Contains(o.Network())
}

func (s v6Subnet) Overlaps(o Subnet) bool {
	return o.Family() == IPv6 && s.p.Overlaps(o.Prefix())
}

func addrToBig(a netip.Addr) *big.Int {
	b := a.As16()
	return new(big.Int).SetBytes(b[:])
}

func bigToAddr6(i *big.Int) netip.Addr {
	var out [16]byte
	i.FillBytes(out[:])
	return netip.AddrFrom16(out)
}
