package domain

import (
	"net/netip"
	"testing"
)

func TestTopologyAddNode(t *testing.T) {
	topo := NewTopology("test")

	t.Run("keeps insertion order", func(t *testing.T) {
		for _, name := range []string{"r1", "s1", "h1"} {
			kind := NodeKindRouter
			if name == "s1" {
				kind = NodeKindSwitch
			} else if name == "h1" {
				kind = NodeKindHost
			}
			if _, err := topo.AddNode(name, kind); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		nodes := topo.Nodes()
		for i, want := range []string{"r1", "s1", "h1"} {
			if nodes[i].Name != want {
				t.Errorf("node %d = %s, want %s", i, nodes[i].Name, want)
			}
			if nodes[i].Index() != i {
				t.Errorf("node %s index = %d, want %d", want, nodes[i].Index(), i)
			}
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		if _, err := topo.AddHost("h1"); err == nil {
			t.Error("expected error for duplicate node")
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		if _, err := topo.AddNode("x", NodeKind("bridge")); err == nil {
			t.Error("expected error for unknown kind")
		}
	})

	t.Run("lists routers", func(t *testing.T) {
		routers := topo.Routers()
		if len(routers) != 1 || routers[0].Name != "r1" {
			t.Errorf("unexpected routers %v", routers)
		}
	})
}

func TestTopologyConnect(t *testing.T) {
	topo := NewTopology("test")
	topo.AddRouter("r1")
	topo.AddHost("h1")

	link, err := topo.Connect("r1", "h1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("sets peers both ways", func(t *testing.T) {
		if link.A.Peer != link.B || link.B.Peer != link.A {
			t.Error("expected peers to reference each other")
		}
		if link.A.ID() != "r1:r1-eth0" {
			t.Errorf("expected r1:r1-eth0, got %s", link.A.ID())
		}
	})

	t.Run("generates deterministic ID", func(t *testing.T) {
		if link.ID == "" {
			t.Fatal("expected ID to be generated")
		}
		if link.ID != link.GenerateID() {
			t.Error("expected GenerateID to be deterministic")
		}
		if len(link.ID) != 16 {
			t.Errorf("expected 16 hex chars, got %d", len(link.ID))
		}
	})

	t.Run("reports the other end", func(t *testing.T) {
		if link.OtherEnd(link.A) != link.B {
			t.Error("expected B as other end of A")
		}
		if !link.Involves("h1") || link.Involves("r2") {
			t.Error("unexpected Involves result")
		}
	})

	t.Run("refuses relinking an interface", func(t *testing.T) {
		if _, err := topo.ConnectInterfaces(link.A, link.B); err == nil {
			t.Error("expected error for already linked interface")
		}
	})

	t.Run("refuses loopbacks", func(t *testing.T) {
		h := topo.Node("h1")
		free := h.AddInterface(h.NextInterfaceName())
		if _, err := topo.ConnectInterfaces(topo.Node("r1").Loopback(), free); err == nil {
			t.Error("expected error for loopback link")
		}
	})

	t.Run("unknown nodes", func(t *testing.T) {
		if _, err := topo.Connect("r1", "nope"); err == nil {
			t.Error("expected error for unknown node")
		}
	})
}

func TestBroadcastDomainSizing(t *testing.T) {
	node := NewNode("h1", NodeKindHost)
	var members []*Interface
	for i := 0; i < 3; i++ {
		members = append(members, node.AddInterface(node.NextInterfaceName()))
	}
	d := NewBroadcastDomain(0, members)

	t.Run("counts widths", func(t *testing.T) {
		if got := d.RequiredAddresses(IPv4); got != 3 {
			t.Errorf("expected 3 addresses, got %d", got)
		}
		if got := d.PrefixLen(IPv4); got != 29 {
			t.Errorf("expected /29, got /%d", got)
		}
		if got := d.PrefixLen(IPv6); got != 126 {
			t.Errorf("expected /126, got /%d", got)
		}
	})

	t.Run("cursor starts after the network address", func(t *testing.T) {
		if d.Cursor(IPv4) != 1 || d.Cursor(IPv6) != 1 {
			t.Error("expected cursor to start at 1")
		}
	})

	t.Run("disabled families need nothing", func(t *testing.T) {
		node.UseV6 = false
		defer func() { node.UseV6 = true }()

		if d.Uses(IPv6) {
			t.Error("expected domain not to use ipv6")
		}
		if got := d.RequiredAddresses(IPv6); got != 0 {
			t.Errorf("expected 0 addresses, got %d", got)
		}
	})
}

func TestBroadcastDomainPrefixLen(t *testing.T) {
	tests := []struct {
		hosts int
		v4    int
		v6    int
	}{
		{1, 30, 127},
		{2, 30, 126},
		{3, 29, 126},
		{50, 26, 122},
		{100, 25, 121},
		{254, 24, 120},
		{2000, 21, 117},
	}

	for _, tt := range tests {
		node := NewNode("h", NodeKindHost)
		itf := node.AddInterface("h-eth0")
		itf.SetWidth(IPv4, tt.hosts)
		itf.SetWidth(IPv6, tt.hosts)
		d := NewBroadcastDomain(0, []*Interface{itf})

		if got := d.PrefixLen(IPv4); got != tt.v4 {
			t.Errorf("%d hosts: v4 prefix = /%d, want /%d", tt.hosts, got, tt.v4)
		}
		if got := d.PrefixLen(IPv6); got != tt.v6 {
			t.Errorf("%d hosts: v6 prefix = /%d, want /%d", tt.hosts, got, tt.v6)
		}
	}
}

func TestBroadcastDomainFixedSubnets(t *testing.T) {
	node := NewNode("h1", NodeKindHost)
	pinned := node.AddInterface("h1-eth0")
	pinned.ParseAddress("10.0.0.5/24")
	pinned.ParseAddress("10.0.0.6/24")
	pinned.ParseAddress("fe80::1/64")
	free := node.AddInterface("h1-eth1")

	d := NewBroadcastDomain(7, []*Interface{pinned, free})

	fixed := d.FixedSubnets(IPv4)
	if len(fixed) != 1 || fixed[0].String() != "10.0.0.0/24" {
		t.Errorf("unexpected fixed subnets %v", fixed)
	}
	if d.HasFixed(IPv6) {
		t.Error("expected link-local addresses to be ignored")
	}
	if got := d.RequiredAddresses(IPv4); got != 1 {
		t.Errorf("expected only the unaddressed interface to count, got %d", got)
	}

	used := d.UsedAddresses(IPv4)
	if !used[netip.MustParseAddr("10.0.0.5")] || !used[netip.MustParseAddr("10.0.0.6")] {
		t.Errorf("unexpected used addresses %v", used)
	}
}
