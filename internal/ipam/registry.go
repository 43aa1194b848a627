package ipam

import (
	"net/netip"
	"sort"

	"ipnetlab/internal/domain"
)

// Registry maps addresses to the node owning them. Every address is stored
// under two keys: the bare address and the address with its prefix length.
// Entries are never removed.
type Registry struct {
	owners map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{owners: make(map[string]string)}
}

// Register records that node owns addr. The first owner of a key wins; it
// reports false when the bare address was already registered to another node.
func (r *Registry) Register(node string, addr netip.Prefix) bool {
	bare := addr.Addr().Unmap().String()
	if owner, ok := r.owners[bare]; ok && owner != node {
		return false
	}
	r.owners[bare] = node
	r.owners[domain.NormalizeAddress(addr.String())] = node
	return true
}

// RegisterTopology records every allocatable address of every interface and
// returns the addresses already owned by another node
func (r *Registry) RegisterTopology(topo *domain.Topology) []string {
	var conflicts []string
	for _, n := range topo.Nodes() {
		for _, itf := range n.Interfaces {
			for _, f := range domain.Families {
				for _, p := range itf.ConfiguredAddresses(f) {
					if !r.Register(n.Name, p) {
						conflicts = append(conflicts, p.String())
					}
				}
			}
		}
	}
	return conflicts
}

// Lookup returns the node owning an address given in bare or CIDR form
func (r *Registry) Lookup(addr string) (string, bool) {
	node, ok := r.owners[domain.NormalizeAddress(addr)]
	return node, ok
}

// Len returns the number of keys
func (r *Registry) Len() int {
	return len(r.owners)
}

// Entries returns every key sorted by address string
func (r *Registry) Entries() []domain.RegistryEntry {
	out := make([]domain.RegistryEntry, 0, len(r.owners))
	for addr, node := range r.owners {
		out = append(out, domain.RegistryEntry{Address: addr, Node: node})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out
}
