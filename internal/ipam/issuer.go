package ipam

import (
	"math"
	"math/big"
	"net/netip"

	"ipnetlab/internal/domain"
)

// Issuer hands out addresses to the members of broadcast domains. It knows
// every address already present in the domains it was created for, so
// domains sharing a pinned subnet never receive the same address.
type Issuer struct {
	used map[domain.Family]map[netip.Addr]bool
}

// NewIssuer creates an issuer for the given domains
func NewIssuer(domains []*domain.BroadcastDomain) *Issuer {
	is := &Issuer{used: make(map[domain.Family]map[netip.Addr]bool)}
	for _, f := range domain.Families {
		used := make(map[netip.Addr]bool)
		for _, d := range domains {
			for addr := range d.UsedAddresses(f) {
				used[addr] = true
			}
		}
		is.used[f] = used
	}
	return is
}

// Issue hands out sequential addresses of the family to every member of the
// domain that has none yet, starting at the domain's cursor. Members with an
// address of their own are left untouched, and addresses already known to
// the issuer are skipped. It returns the number of addresses issued.
func (is *Issuer) Issue(d *domain.BroadcastDomain, f domain.Family) (int, error) {
	var needy []*domain.Interface
	for _, itf := range d.Interfaces {
		if itf.Node.Uses(f) && !itf.HasAddress(f) {
			needy = append(needy, itf)
		}
	}
	if len(needy) == 0 {
		return 0, nil
	}

	s := d.Subnet(f)
	if s == nil {
		return 0, ErrNoSubnet{family: f, domain: d.ID}
	}
	last := lastUsable(s)
	used := is.used[f]

	issued := 0
	for _, itf := range needy {
		for n := 0; n < itf.Width(f); n++ {
			addr, err := next(d, f, s, last, used)
			if err != nil {
				return issued, err
			}
			if err := itf.AddAddress(netip.PrefixFrom(addr, s.Bits())); err != nil {
				return issued, err
			}
			used[addr] = true
			issued++
		}
	}
	return issued, nil
}

// Issue hands out addresses to the members of a single domain, only
// avoiding the addresses present in that domain
func Issue(d *domain.BroadcastDomain, f domain.Family) (int, error) {
	return NewIssuer([]*domain.BroadcastDomain{d}).Issue(d, f)
}

func next(d *domain.BroadcastDomain, f domain.Family, s domain.Subnet, last uint64, used map[netip.Addr]bool) (netip.Addr, error) {
	for {
		cur := d.Cursor(f)
		if cur > last {
			return netip.Addr{}, ErrAddressExhausted{family: f, domain: d.ID, subnet: s.String()}
		}
		d.Advance(f, 1)
		addr, ok := s.Nth(cur)
		if !ok {
			return netip.Addr{}, ErrAddressExhausted{family: f, domain: d.ID, subnet: s.String()}
		}
		if !used[addr] {
			return addr, nil
		}
	}
}

// lastUsable is the offset of the last address an interface may receive:
// the broadcast address is kept free in IPv4 subnets.
func lastUsable(s domain.Subnet) uint64 {
	size := s.Size()
	if !size.IsUint64() {
		return math.MaxUint64
	}
	n := size.Uint64()
	reserved := uint64(1)
	if s.Family() == domain.IPv4 {
		reserved = 2
	}
	if n <= reserved {
		return 0
	}
	return n - reserved
}

// Capacity returns how many addresses of a subnet can be given to interfaces
func Capacity(s domain.Subnet) *big.Int {
	reserved := int64(1)
	if s.Family() == domain.IPv4 {
		reserved = 2
	}
	c := new(big.Int).Sub(s.Size(), big.NewInt(reserved))
	if c.Sign() < 0 {
		return new(big.Int)
	}
	return c
}
