package domain

import (
	"net/netip"
	"sort"
	"time"
)

// Allocation records that a domain received a subnet of a family
type Allocation struct {
	DomainID int
	Family   Family
	Subnet   Subnet
	// Fixed is set when the subnet was pinned by the user rather than drawn
	// from the pool
	Fixed bool
}

// Snapshot is the serialisable outcome of one allocation run
type Snapshot struct {
	ID         int64             `json:"id" yaml:"id"`
	Topology   string            `json:"topology" yaml:"topology"`
	CreatedAt  time.Time         `json:"created_at" yaml:"created_at"`
	Pools      []PoolRecord      `json:"pools" yaml:"pools"`
	Domains    []DomainRecord    `json:"domains" yaml:"domains"`
	Interfaces []InterfaceRecord `json:"interfaces" yaml:"interfaces"`
	Registry   []RegistryEntry   `json:"registry" yaml:"registry"`
	RouterIDs  map[string]string `json:"router_ids,omitempty" yaml:"router_ids,omitempty"`
}

// PoolRecord describes the address pool of one family after allocation
type PoolRecord struct {
	Family       string   `json:"family" yaml:"family"`
	Base         string   `json:"base" yaml:"base"`
	MaxPrefixLen int      `json:"max_prefix_len" yaml:"max_prefix_len"`
	Free         []string `json:"free" yaml:"free"`
}

// DomainRecord describes one broadcast domain
type DomainRecord struct {
	ID       int      `json:"id" yaml:"id"`
	Members  []string `json:"members" yaml:"members"`
	SubnetV4 string   `json:"subnet_v4,omitempty" yaml:"subnet_v4,omitempty"`
	SubnetV6 string   `json:"subnet_v6,omitempty" yaml:"subnet_v6,omitempty"`
	FixedV4  bool     `json:"fixed_v4,omitempty" yaml:"fixed_v4,omitempty"`
	FixedV6  bool     `json:"fixed_v6,omitempty" yaml:"fixed_v6,omitempty"`
}

// InterfaceRecord lists the final addresses of an interface
type InterfaceRecord struct {
	Node      string   `json:"node" yaml:"node"`
	Kind      NodeKind `json:"kind" yaml:"kind"`
	Interface string   `json:"interface" yaml:"interface"`
	Peer      string   `json:"peer,omitempty" yaml:"peer,omitempty"`
	DomainID  int      `json:"domain_id" yaml:"domain_id"`
	IPv4      []string `json:"ipv4,omitempty" yaml:"ipv4,omitempty"`
	IPv6      []string `json:"ipv6,omitempty" yaml:"ipv6,omitempty"`
}

// RegistryEntry maps an address string to the node owning it
type RegistryEntry struct {
	Address string `json:"address" yaml:"address"`
	Node    string `json:"node" yaml:"node"`
}

// Lookup returns the node owning an address, given bare or in CIDR notation
func (s *Snapshot) Lookup(addr string) (string, bool) {
	key := NormalizeAddress(addr)
	for _, e := range s.Registry {
		if e.Address == key {
			return e.Node, true
		}
	}
	return "", false
}

// NodeNames returns the names of every node with at least one interface
// record, sorted
func (s *Snapshot) NodeNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range s.Interfaces {
		if !seen[r.Node] {
			seen[r.Node] = true
			names = append(names, r.Node)
		}
	}
	sort.Strings(names)
	return names
}

// InterfacesOf returns the interface records of a node
func (s *Snapshot) InterfacesOf(node string) []InterfaceRecord {
	var out []InterfaceRecord
	for _, r := range s.Interfaces {
		if r.Node == node {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeAddress returns the canonical string form of a bare or CIDR
// address, or the trimmed input if it parses as neither
func NormalizeAddress(s string) string {
	if p, err := netip.ParsePrefix(s); err == nil {
		if p.Bits() < unmapOffset(p.Addr()) {
			return p.String()
		}
		return netip.PrefixFrom(p.Addr().Unmap(), p.Bits()-unmapOffset(p.Addr())).String()
	}
	if a, err := netip.ParseAddr(s); err == nil {
		return a.Unmap().String()
	}
	return s
}

func unmapOffset(a netip.Addr) int {
	if a.Is4In6() {
		return 96
	}
	return 0
}

// SnapshotSummary is the listing form of a stored snapshot
type SnapshotSummary struct {
	ID         int64     `json:"id" yaml:"id"`
	Topology   string    `json:"topology" yaml:"topology"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Domains    int       `json:"domains" yaml:"domains"`
	Interfaces int       `json:"interfaces" yaml:"interfaces"`
}

// Summary returns the listing form of the snapshot
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:         s.ID,
		Topology:   s.Topology,
		CreatedAt:  s.CreatedAt,
		Domains:    len(s.Domains),
		Interfaces: len(s.Interfaces),
	}
}
