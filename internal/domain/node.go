package domain

import (
	"fmt"
	"net/netip"
)

// NodeKind represents the role of a node in the emulated network
type NodeKind string

const (
	NodeKindHost   NodeKind = "host"
	NodeKindRouter NodeKind = "router"
	NodeKindSwitch NodeKind = "switch"
	NodeKindHub    NodeKind = "hub"
)

// ParseNodeKind converts a string to a NodeKind
func ParseNodeKind(s string) (NodeKind, error) {
	switch NodeKind(s) {
	case NodeKindHost, NodeKindRouter, NodeKindSwitch, NodeKindHub:
		return NodeKind(s), nil
	}
	return "", fmt.Errorf("unknown node kind %q", s)
}

// IsL3Boundary reports whether nodes of this kind terminate broadcast domains
func (k NodeKind) IsL3Boundary() bool {
	return k == NodeKindHost || k == NodeKindRouter
}

// LoopbackName is the name of the loopback interface every router owns
const LoopbackName = "lo"

// Node represents a device of the topology
type Node struct {
	Name  string
	Kind  NodeKind
	UseV4 bool
	UseV6 bool

	// RouterID is an explicit router id, set by the user
	RouterID string

	Interfaces []*Interface

	// position in the topology, used for deterministic ordering
	index int
}

// NewNode creates a node with both address families enabled. Routers get their
// loopback interface.
func NewNode(name string, kind NodeKind) *Node {
	n := &Node{
		Name:  name,
		Kind:  kind,
		UseV4: true,
		UseV6: true,
	}
	if kind == NodeKindRouter {
		lo := n.AddInterface(LoopbackName)
		lo.Loopback = true
	}
	return n
}

// IsL3Boundary reports whether the node terminates broadcast domains
func (n *Node) IsL3Boundary() bool {
	return n.Kind.IsL3Boundary()
}

// IsRouter reports whether the node is a router
func (n *Node) IsRouter() bool {
	return n.Kind == NodeKindRouter
}

// Uses reports whether the node has the address family enabled
func (n *Node) Uses(f Family) bool {
	if f == IPv6 {
		return n.UseV6
	}
	return n.UseV4
}

// Index returns the position of the node in its topology
func (n *Node) Index() int {
	return n.index
}

// AddInterface appends a new interface to the node
func (n *Node) AddInterface(name string) *Interface {
	itf := &Interface{
		Name:  name,
		Node:  n,
		index: len(n.Interfaces),
	}
	n.Interfaces = append(n.Interfaces, itf)
	return itf
}

// Interface returns the interface with the given name, or nil
func (n *Node) Interface(name string) *Interface {
	for _, itf := range n.Interfaces {
		if itf.Name == name {
			return itf
		}
	}
	return nil
}

// Loopback returns the loopback interface, or nil for non-routers
func (n *Node) Loopback() *Interface {
	for _, itf := range n.Interfaces {
		if itf.Loopback {
			return itf
		}
	}
	return nil
}

// RealInterfaces returns all interfaces except the loopback
func (n *Node) RealInterfaces() []*Interface {
	out := make([]*Interface, 0, len(n.Interfaces))
	for _, itf := range n.Interfaces {
		if !itf.Loopback {
			out = append(out, itf)
		}
	}
	return out
}

// NextInterfaceName returns the default name of the next interface, skipping
// names already taken
func (n *Node) NextInterfaceName() string {
	for i := len(n.RealInterfaces()); ; i++ {
		name := fmt.Sprintf("%s-eth%d", n.Name, i)
		if n.Interface(name) == nil {
			return name
		}
	}
}

// Addresses returns every address of the family configured on the node's
// interfaces, in interface order
func (n *Node) Addresses(f Family) []netip.Prefix {
	var out []netip.Prefix
	for _, itf := range n.Interfaces {
		out = append(out, itf.Addresses(f)...)
	}
	return out
}
