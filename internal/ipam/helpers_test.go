package ipam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ipnetlab/internal/domain"
)

// v4Options allocates IPv4 only from base, capped at maxPrefixLen
func v4Options(base string, maxPrefixLen int) Options {
	return Options{
		V4:          FamilyOptions{Enabled: true, Base: base, MaxPrefixLen: maxPrefixLen},
		AllocateIPs: true,
	}
}

func mustNode(t *testing.T, topo *domain.Topology, name string, kind domain.NodeKind) *domain.Node {
	t.Helper()
	n, err := topo.AddNode(name, kind)
	require.NoError(t, err)
	return n
}

func mustConnect(t *testing.T, topo *domain.Topology, a, b string) *domain.Link {
	t.Helper()
	l, err := topo.Connect(a, b)
	require.NoError(t, err)
	return l
}

// pair creates two hosts linked to each other needing widthA and widthB
// addresses of every family
func pair(t *testing.T, topo *domain.Topology, a, b string, widthA, widthB int) *domain.Link {
	t.Helper()
	mustNode(t, topo, a, domain.NodeKindHost)
	mustNode(t, topo, b, domain.NodeKindHost)
	l := mustConnect(t, topo, a, b)
	for _, f := range domain.Families {
		l.A.SetWidth(f, widthA)
		l.B.SetWidth(f, widthB)
	}
	return l
}

func run(t *testing.T, opts Options, topo *domain.Topology) (*Result, error) {
	t.Helper()
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e.Run(context.Background(), topo)
}

func addrs(itf *domain.Interface, f domain.Family) []string {
	var out []string
	for _, p := range itf.Addresses(f) {
		out = append(out, p.String())
	}
	return out
}
