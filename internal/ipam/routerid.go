package ipam

import (
	"fmt"
	"net/netip"

	"ipnetlab/internal/domain"
)

// RouterIDAllocator chooses router ids. A router keeps its explicit id, else
// takes the highest IPv4 address of its non-loopback interfaces, else gets
// the next free value of a counter starting at 0.0.0.1. Counter values never
// collide with explicit ids or with IPv4 addresses of the topology.
type RouterIDAllocator struct {
	last  uint32
	taken map[netip.Addr]bool
}

// NewRouterIDAllocator creates an allocator for the topology's current
// addresses and explicit router ids
func NewRouterIDAllocator(topo *domain.Topology) *RouterIDAllocator {
	a := &RouterIDAllocator{taken: make(map[netip.Addr]bool)}
	for _, n := range topo.Nodes() {
		if id, err := netip.ParseAddr(n.RouterID); err == nil {
			a.taken[id.Unmap()] = true
		}
		for _, p := range n.Addresses(domain.IPv4) {
			a.taken[p.Addr().Unmap()] = true
		}
	}
	return a
}

// Assign returns the router id of n
func (a *RouterIDAllocator) Assign(n *domain.Node) (string, error) {
	if n.RouterID != "" {
		id, err := netip.ParseAddr(n.RouterID)
		if err != nil || !id.Unmap().Is4() {
			return "", fmt.Errorf("router %s: invalid router id %q", n.Name, n.RouterID)
		}
		return id.Unmap().String(), nil
	}

	var best netip.Addr
	for _, itf := range n.RealInterfaces() {
		for _, p := range itf.ConfiguredAddresses(domain.IPv4) {
			if addr := p.Addr().Unmap(); !best.IsValid() || best.Less(addr) {
				best = addr
			}
		}
	}
	if best.IsValid() {
		return best.String(), nil
	}

	for a.last < ^uint32(0) {
		a.last++
		id := u32Addr(a.last)
		if !a.taken[id] {
			a.taken[id] = true
			return id.String(), nil
		}
	}
	return "", fmt.Errorf("router %s: router id space exhausted", n.Name)
}

// AssignAll returns the router id of every router, keyed by name. Two
// routers ending up with the same id is an error.
func (a *RouterIDAllocator) AssignAll(topo *domain.Topology) (map[string]string, error) {
	ids := make(map[string]string)
	owners := make(map[string]string)
	for _, r := range topo.Routers() {
		id, err := a.Assign(r)
		if err != nil {
			return nil, err
		}
		if other, ok := owners[id]; ok {
			return nil, fmt.Errorf("router %s: router id %s already used by %s", r.Name, id, other)
		}
		owners[id] = r.Name
		ids[r.Name] = id
	}
	return ids, nil
}

func u32Addr(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
