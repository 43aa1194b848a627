package loader

import (
	"testing"

	"ipnetlab/internal/domain"
)

func TestLoadYAML(t *testing.T) {
	topo, err := LoadYAML("testdata/lab.yaml")
	if err != nil {
		t.Fatalf("LoadYAML() error: %v", err)
	}

	t.Run("nodes keep file order", func(t *testing.T) {
		want := []string{"r1", "r2", "s1", "h1", "h2"}
		nodes := topo.Nodes()
		if len(nodes) != len(want) {
			t.Fatalf("got %d nodes, want %d", len(nodes), len(want))
		}
		for i, n := range nodes {
			if n.Name != want[i] {
				t.Errorf("node %d = %s, want %s", i, n.Name, want[i])
			}
		}
	})

	t.Run("node attributes", func(t *testing.T) {
		if got := topo.Node("r1").RouterID; got != "1.1.1.1" {
			t.Errorf("r1 router id = %q, want 1.1.1.1", got)
		}
		if topo.Node("s1").Kind != domain.NodeKindSwitch {
			t.Errorf("s1 kind = %s, want switch", topo.Node("s1").Kind)
		}
		if topo.Node("h2").UseV6 {
			t.Error("h2 should not use IPv6")
		}
		if !topo.Node("h1").UseV6 {
			t.Error("h1 should inherit IPv6 from the topology")
		}
	})

	t.Run("links use declared interfaces", func(t *testing.T) {
		r2 := topo.Node("r2").Interface("r2-eth0")
		if r2 == nil || r2.Peer == nil || r2.Peer.ID() != "r1:r1-eth0" {
			t.Fatalf("r2-eth0 should be linked to r1:r1-eth0, got %v", r2)
		}
		if got := len(r2.Addresses(domain.IPv4)); got != 1 {
			t.Errorf("r2-eth0 has %d IPv4 addresses, want 1", got)
		}
		h2 := topo.Node("h2").Interface("h2-eth0")
		if h2.Width(domain.IPv4) != 3 {
			t.Errorf("h2-eth0 width = %d, want 3", h2.Width(domain.IPv4))
		}
		if h2.Peer == nil || h2.Peer.Node.Name != "s1" {
			t.Error("h2-eth0 should be linked to s1")
		}
	})

	if got := len(topo.Links()); got != 4 {
		t.Errorf("got %d links, want 4", got)
	}
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", "nodes: [\n"},
		{"unknown kind", "nodes:\n  - {name: x, kind: bridge}\n"},
		{"duplicate node", "nodes:\n  - {name: x, kind: host}\n  - {name: x, kind: host}\n"},
		{"unknown link node", "nodes:\n  - {name: x, kind: host}\nlinks:\n  - {a: x, b: y}\n"},
		{"loopback on host", "nodes:\n  - {name: x, kind: host, loopback: [10.0.0.1/32]}\n"},
		{"bad address", "nodes:\n  - name: x\n    kind: host\n    interfaces:\n      - {name: e0, addresses: [10.0.0.999/24]}\n"},
		{"duplicate interface", "nodes:\n  - name: x\n    kind: host\n    interfaces:\n      - {name: e0}\n      - {name: e0}\n"},
		{"linked loopback", "nodes:\n  - {name: r, kind: router}\n  - {name: h, kind: host}\nlinks:\n  - {a: 'r:lo', b: h}\n"},
		{"empty interface name", "nodes:\n  - {name: r, kind: router}\n  - {name: h, kind: host}\nlinks:\n  - {a: 'r:', b: h}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseYAML([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseYAMLDefaults(t *testing.T) {
	topo, err := ParseYAML([]byte("use_v6: false\nnodes:\n  - {name: r1, kind: router, loopback: [10.255.0.1/32]}\n"))
	if err != nil {
		t.Fatalf("ParseYAML() error: %v", err)
	}
	if topo.Name != "topology" {
		t.Errorf("Name = %s, want topology", topo.Name)
	}
	if topo.UseV6 || topo.Node("r1").UseV6 {
		t.Error("IPv6 should be disabled everywhere")
	}
	if got := topo.Node("r1").Loopback().Addresses(domain.IPv4); len(got) != 1 {
		t.Errorf("loopback addresses = %v, want one", got)
	}
}
