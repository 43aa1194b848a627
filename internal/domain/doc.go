// Package domain defines the core types of the ipnetlab network emulation model.
//
// This package contains the topology graph consumed by the address allocation
// engine and the values it produces.
//
// # Topology
//
// Topology is an ordered set of Nodes connected by Links. A Node is either an
// L3 boundary (host, router) that terminates a broadcast domain and owns
// addressable interfaces, or a pass-through device (switch, hub) that relays
// frames between its interfaces. Every router owns a loopback interface.
//
// Interface belongs to exactly one Node, carries an ordered list of addresses
// per address family, a per-family width (how many addresses it needs) and a
// back-reference to the Interface on the other end of its link.
//
// # Address Space
//
// Subnet is a closed sum type over the two address families. It exposes the
// prefix length, network and broadcast addresses, and the halving operation the
// allocator uses to split pool blocks.
//
// BroadcastDomain groups the L3 interfaces sharing one L2 segment together with
// the subnets pinned by the user and the subnet the allocator assigned.
//
// # Snapshots
//
// Snapshot is the serialisable outcome of one allocation run: domains, per
// interface addresses, the address to node index and the router ids. It is what
// codecs export and what the repository stores.
//
// # Design Principles
//
// - No database or external dependencies
// - Deterministic ordering everywhere a result is observable
// - Pure domain logic without infrastructure concerns
package domain
