package loader

import (
	"fmt"
	"os"
	"strings"

	"ipnetlab/internal/domain"

	"gopkg.in/yaml.v3"
)

// TopologyYAML represents the YAML file structure
type TopologyYAML struct {
	Name  string     `yaml:"name"`
	UseV4 *bool      `yaml:"use_v4,omitempty"`
	UseV6 *bool      `yaml:"use_v6,omitempty"`
	Nodes []NodeYAML `yaml:"nodes"`
	Links []LinkYAML `yaml:"links,omitempty"`
}

// NodeYAML represents a node in YAML format
type NodeYAML struct {
	Name       string          `yaml:"name"`
	Kind       string          `yaml:"kind"`
	UseV4      *bool           `yaml:"use_v4,omitempty"`
	UseV6      *bool           `yaml:"use_v6,omitempty"`
	RouterID   string          `yaml:"router_id,omitempty"`
	Loopback   []string        `yaml:"loopback,omitempty"` // addresses of the router loopback
	Interfaces []InterfaceYAML `yaml:"interfaces,omitempty"`
}

// InterfaceYAML represents an interface declared up front, usually to pin
// addresses on it
type InterfaceYAML struct {
	Name      string   `yaml:"name"`
	Addresses []string `yaml:"addresses,omitempty"`
	WidthV4   int      `yaml:"width_v4,omitempty"`
	WidthV6   int      `yaml:"width_v6,omitempty"`
}

// LinkYAML connects two endpoints, each "node" or "node:interface". A bare
// node name creates a new interface with the default name.
type LinkYAML struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// LoadYAML loads a topology from a YAML file
func LoadYAML(path string) (*domain.Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseYAML(data)
}

// ParseYAML parses a topology from YAML bytes
func ParseYAML(data []byte) (*domain.Topology, error) {
	var yamlData TopologyYAML
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return convertYAMLToTopology(&yamlData)
}

func convertYAMLToTopology(y *TopologyYAML) (*domain.Topology, error) {
	name := y.Name
	if name == "" {
		name = "topology"
	}
	topo := domain.NewTopology(name)
	topo.UseV4 = boolOr(y.UseV4, true)
	topo.UseV6 = boolOr(y.UseV6, true)

	for _, n := range y.Nodes {
		kind, err := domain.ParseNodeKind(strings.ToLower(n.Kind))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.Name, err)
		}
		node, err := topo.AddNode(n.Name, kind)
		if err != nil {
			return nil, err
		}
		node.UseV4 = boolOr(n.UseV4, topo.UseV4)
		node.UseV6 = boolOr(n.UseV6, topo.UseV6)
		node.RouterID = n.RouterID

		if len(n.Loopback) > 0 {
			lo := node.Loopback()
			if lo == nil {
				return nil, fmt.Errorf("node %s: only routers have a loopback", n.Name)
			}
			for _, addr := range n.Loopback {
				if err := lo.ParseAddress(addr); err != nil {
					return nil, err
				}
			}
		}

		for _, i := range n.Interfaces {
			if i.Name == "" || node.Interface(i.Name) != nil {
				return nil, fmt.Errorf("node %s: missing or duplicate interface name %q", n.Name, i.Name)
			}
			itf := node.AddInterface(i.Name)
			itf.SetWidth(domain.IPv4, i.WidthV4)
			itf.SetWidth(domain.IPv6, i.WidthV6)
			for _, addr := range i.Addresses {
				if err := itf.ParseAddress(addr); err != nil {
					return nil, err
				}
			}
		}
	}

	for idx, l := range y.Links {
		a, err := endpoint(topo, l.A)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", idx, err)
		}
		b, err := endpoint(topo, l.B)
		if err != nil {
			return nil, fmt.Errorf("link %d: %w", idx, err)
		}
		if _, err := topo.ConnectInterfaces(a, b); err != nil {
			return nil, fmt.Errorf("link %d: %w", idx, err)
		}
	}

	return topo, nil
}

// endpoint resolves "node" or "node:interface" to an interface, creating it
// when it was not declared
func endpoint(topo *domain.Topology, ref string) (*domain.Interface, error) {
	nodeName, itfName, named := strings.Cut(strings.TrimSpace(ref), ":")
	node := topo.Node(nodeName)
	if node == nil {
		return nil, fmt.Errorf("unknown node %q", nodeName)
	}
	if named && itfName == "" {
		return nil, fmt.Errorf("empty interface name in %q", ref)
	}
	if !named {
		return node.AddInterface(node.NextInterfaceName()), nil
	}
	if itf := node.Interface(itfName); itf != nil {
		return itf, nil
	}
	return node.AddInterface(itfName), nil
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
