package ipam

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"ipnetlab/internal/domain"
)

// BuildDomains partitions the interfaces of the topology's L3 nodes into
// broadcast domains. Switches and hubs are transparent; every router
// loopback is a domain of its own. Unconnected interfaces belong to no
// domain.
//
// Domains are numbered from 0 in discovery order, which follows node and
// interface declaration order, so the result only depends on the topology.
func BuildDomains(topo *domain.Topology) []*domain.BroadcastDomain {
	visited := mapset.NewThreadUnsafeSet[*domain.Interface]()

	var domains []*domain.BroadcastDomain
	for _, n := range topo.Nodes() {
		if !n.IsL3Boundary() {
			continue
		}
		for _, itf := range n.Interfaces {
			if visited.Contains(itf) {
				continue
			}
			if itf.Loopback {
				visited.Add(itf)
				domains = append(domains, domain.NewBroadcastDomain(len(domains), []*domain.Interface{itf}))
				continue
			}
			members := explore(itf, visited)
			if len(members) == 0 {
				continue
			}
			domains = append(domains, domain.NewBroadcastDomain(len(domains), members))
		}
	}
	return domains
}

// explore collects the L3 interfaces reachable from start without crossing
// an L3 node.
func explore(start *domain.Interface, visited mapset.Set[*domain.Interface]) []*domain.Interface {
	var members []*domain.Interface
	stack := []*domain.Interface{start}
	for len(stack) > 0 {
		itf := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !visited.Add(itf) {
			continue
		}

		if itf.Node.IsL3Boundary() {
			if itf.IsConnected() {
				members = append(members, itf)
				stack = append(stack, itf.Peer)
			}
			continue
		}

		for _, other := range itf.Node.Interfaces {
			if other != itf {
				stack = append(stack, other)
			}
		}
		if itf.IsConnected() {
			stack = append(stack, itf.Peer)
		}
	}

	sort.Slice(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.Node.Index() != b.Node.Index() {
			return a.Node.Index() < b.Node.Index()
		}
		return a.Index() < b.Index()
	})
	return members
}
