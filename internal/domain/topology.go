package domain

import "fmt"

// Topology is the graph the allocation engine works on. Nodes and links keep
// insertion order so that every derived result is reproducible.
type Topology struct {
	Name  string
	UseV4 bool
	UseV6 bool

	nodes  []*Node
	byName map[string]*Node
	links  []*Link
}

// NewTopology creates an empty topology with both families enabled
func NewTopology(name string) *Topology {
	return &Topology{
		Name:   name,
		UseV4:  true,
		UseV6:  true,
		byName: make(map[string]*Node),
	}
}

// AddNode creates a node and appends it to the topology
func (t *Topology) AddNode(name string, kind NodeKind) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("node name is required")
	}
	if _, ok := t.byName[name]; ok {
		return nil, fmt.Errorf("node %s already exists", name)
	}
	if _, err := ParseNodeKind(string(kind)); err != nil {
		return nil, fmt.Errorf("node %s: %w", name, err)
	}

	n := NewNode(name, kind)
	n.index = len(t.nodes)
	t.nodes = append(t.nodes, n)
	t.byName[name] = n
	return n, nil
}

// AddHost adds a host node
func (t *Topology) AddHost(name string) (*Node, error) {
	return t.AddNode(name, NodeKindHost)
}

// AddRouter adds a router node
func (t *Topology) AddRouter(name string) (*Node, error) {
	return t.AddNode(name, NodeKindRouter)
}

// AddSwitch adds a switch node
func (t *Topology) AddSwitch(name string) (*Node, error) {
	return t.AddNode(name, NodeKindSwitch)
}

// AddHub adds a hub node
func (t *Topology) AddHub(name string) (*Node, error) {
	return t.AddNode(name, NodeKindHub)
}

// Node returns the node with the given name, or nil
func (t *Topology) Node(name string) *Node {
	return t.byName[name]
}

// Nodes returns all nodes in insertion order
func (t *Topology) Nodes() []*Node {
	return append([]*Node(nil), t.nodes...)
}

// Routers returns the router nodes in insertion order
func (t *Topology) Routers() []*Node {
	var out []*Node
	for _, n := range t.nodes {
		if n.IsRouter() {
			out = append(out, n)
		}
	}
	return out
}

// Links returns all links in insertion order
func (t *Topology) Links() []*Link {
	return append([]*Link(nil), t.links...)
}

// Connect links two nodes through two new interfaces with default names
func (t *Topology) Connect(a, b string) (*Link, error) {
	na, nb := t.byName[a], t.byName[b]
	if na == nil {
		return nil, fmt.Errorf("node %s not found", a)
	}
	if nb == nil {
		return nil, fmt.Errorf("node %s not found", b)
	}
	ia := na.AddInterface(na.NextInterfaceName())
	ib := nb.AddInterface(nb.NextInterfaceName())
	return t.ConnectInterfaces(ia, ib)
}

// ConnectInterfaces links two existing interfaces
func (t *Topology) ConnectInterfaces(a, b *Interface) (*Link, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("both link ends are required")
	}
	if a == b {
		return nil, fmt.Errorf("interface %s cannot be linked to itself", a.ID())
	}
	if a.Loopback || b.Loopback {
		return nil, fmt.Errorf("loopback interfaces cannot be linked")
	}
	if a.Peer != nil {
		return nil, fmt.Errorf("interface %s is already linked to %s", a.ID(), a.Peer.ID())
	}
	if b.Peer != nil {
		return nil, fmt.Errorf("interface %s is already linked to %s", b.ID(), b.Peer.ID())
	}
	if t.byName[a.Node.Name] != a.Node || t.byName[b.Node.Name] != b.Node {
		return nil, fmt.Errorf("link %s-%s ends outside the topology", a.ID(), b.ID())
	}

	a.Peer = b
	b.Peer = a
	l := NewLink(a, b)
	t.links = append(t.links, l)
	return l, nil
}

// Interfaces returns every interface of every node in topology order
func (t *Topology) Interfaces() []*Interface {
	var out []*Interface
	for _, n := range t.nodes {
		out = append(out, n.Interfaces...)
	}
	return out
}
