// Package ipam discovers the broadcast domains of a topology and allocates
// subnets and addresses to them.
//
// The pipeline runs once per topology, synchronously:
//
//	Topology -> BuildDomains -> AllocateSubnets (per family) -> Issue -> Registry
//
// AllocateSubnets is a greedy largest-first packer. Domains are served in
// descending order of required addresses; each takes the most specific free
// block that can hold it and halves it down to the required prefix length,
// returning the upper halves to the pool. Subnets pinned by addresses set on
// interfaces are carved out of the pool before any domain is served and are
// never handed out.
//
// Engine ties the steps together, assigns router ids and produces a
// domain.Snapshot. A failed run leaves the topology's addresses untouched.
package ipam
