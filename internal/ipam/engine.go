package ipam

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/log"
)

// FamilyOptions configures allocation for one address family
type FamilyOptions struct {
	Enabled bool
	// Base is the block every subnet of the family is drawn from
	Base string
	// MaxPrefixLen is the shortest prefix length a domain may receive
	MaxPrefixLen int
}

// Options configures an Engine
type Options struct {
	V4 FamilyOptions
	V6 FamilyOptions
	// AllocateIPs turns subnet and address allocation on. Without it domains
	// are still built and explicit addresses still registered.
	AllocateIPs bool
}

// DefaultOptions returns the default pools: 192.168.0.0/16 capped at /24
// and fc00::/7 capped at /48
func DefaultOptions() Options {
	return Options{
		V4:          FamilyOptions{Enabled: true, Base: "192.168.0.0/16", MaxPrefixLen: 24},
		V6:          FamilyOptions{Enabled: true, Base: "fc00::/7", MaxPrefixLen: 48},
		AllocateIPs: true,
	}
}

// Family returns the options of f
func (o Options) Family(f domain.Family) FamilyOptions {
	if f == domain.IPv6 {
		return o.V6
	}
	return o.V4
}

// Validate checks that every enabled family has a base block of the right
// family and a usable maximum prefix length
func (o Options) Validate() error {
	for _, f := range domain.Families {
		fo := o.Family(f)
		if !fo.Enabled {
			continue
		}
		base, err := domain.ParseSubnet(fo.Base)
		if err != nil {
			return fmt.Errorf("%s base: %w", f, err)
		}
		if base.Family() != f {
			return fmt.Errorf("%s base %s is not an %s block", f, fo.Base, f)
		}
		if fo.MaxPrefixLen < base.Bits() || fo.MaxPrefixLen > f.Bits() {
			return fmt.Errorf("%s max prefix length /%d outside /%d../%d", f, fo.MaxPrefixLen, base.Bits(), f.Bits())
		}
	}
	return nil
}

// Engine runs the allocation pipeline over topologies
type Engine struct {
	opts Options
}

// NewEngine creates an engine after validating its options
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Engine{opts: opts}, nil
}

// Options returns the engine's options
func (e *Engine) Options() Options {
	return e.opts
}

// Result is the outcome of a successful run
type Result struct {
	Topology    *domain.Topology
	Domains     []*domain.BroadcastDomain
	Allocations []domain.Allocation
	Pools       map[domain.Family]*Pool
	Registry    *Registry
	RouterIDs   map[string]string
	// Issued counts the addresses handed out per family
	Issued   map[domain.Family]int
	Duration time.Duration
	options  Options
}

// Run builds the topology's broadcast domains, allocates subnets and
// addresses, and indexes the result. Addresses are written to the topology's
// interfaces; on error the topology is left as it was.
func (e *Engine) Run(ctx context.Context, topo *domain.Topology) (*Result, error) {
	start := time.Now()
	ctx = log.WithModule(ctx, "ipam")
	logger := log.G(ctx).WithField("topology", topo.Name)

	res := &Result{
		Topology: topo,
		Pools:    make(map[domain.Family]*Pool),
		Issued:   make(map[domain.Family]int),
		options:  e.opts,
	}

	res.Domains = BuildDomains(topo)
	logger.Infof("found %d broadcast domains", len(res.Domains))

	restore := saveAddresses(topo)
	if e.opts.AllocateIPs {
		if err := e.allocate(ctx, topo, res); err != nil {
			restore()
			return nil, err
		}
	}

	res.Registry = NewRegistry()
	for _, addr := range res.Registry.RegisterTopology(topo) {
		logger.WithField("address", addr).Warn("address set on more than one node")
	}

	ids, err := NewRouterIDAllocator(topo).AssignAll(topo)
	if err != nil {
		restore()
		return nil, fmt.Errorf("assign router ids: %w", err)
	}
	res.RouterIDs = ids
	res.Duration = time.Since(start)

	logger.WithFields(logrus.Fields{
		"domains":  len(res.Domains),
		"ipv4":     res.Issued[domain.IPv4],
		"ipv6":     res.Issued[domain.IPv6],
		"duration": res.Duration,
	}).Info("allocation complete")
	return res, nil
}

func (e *Engine) allocate(ctx context.Context, topo *domain.Topology, res *Result) error {
	var families []domain.Family
	for _, f := range domain.Families {
		if e.enabled(topo, f) {
			families = append(families, f)
		}
	}

	for _, f := range families {
		fo := e.opts.Family(f)
		pool, err := ParsePool(fo.Base)
		if err != nil {
			return err
		}
		allocs, err := AllocateSubnets(ctx, pool, res.Domains, fo.MaxPrefixLen)
		if err != nil {
			return fmt.Errorf("allocate %s subnets: %w", f, err)
		}
		res.Pools[f] = pool
		res.Allocations = append(res.Allocations, allocs...)
	}

	issuer := NewIssuer(res.Domains)
	for _, f := range families {
		for _, d := range res.Domains {
			n, err := issuer.Issue(d, f)
			if err != nil {
				return fmt.Errorf("issue %s addresses: %w", f, err)
			}
			res.Issued[f] += n
		}
	}
	return nil
}

func (e *Engine) enabled(topo *domain.Topology, f domain.Family) bool {
	if !e.opts.Family(f).Enabled {
		return false
	}
	if f == domain.IPv6 {
		return topo.UseV6
	}
	return topo.UseV4
}

// saveAddresses returns a function putting back the current addresses of
// every interface
func saveAddresses(topo *domain.Topology) func() {
	type saved struct {
		itf    *domain.Interface
		v4, v6 []netip.Prefix
	}
	var state []saved
	for _, itf := range topo.Interfaces() {
		state = append(state, saved{itf: itf, v4: itf.Addresses(domain.IPv4), v6: itf.Addresses(domain.IPv6)})
	}
	return func() {
		for _, s := range state {
			s.itf.SetAddresses(domain.IPv4, s.v4)
			s.itf.SetAddresses(domain.IPv6, s.v6)
		}
	}
}

// DomainOf returns the domain an interface belongs to, or nil
func (r *Result) DomainOf(itf *domain.Interface) *domain.BroadcastDomain {
	for _, d := range r.Domains {
		for _, m := range d.Interfaces {
			if m == itf {
				return d
			}
		}
	}
	return nil
}

// Snapshot returns the serialisable form of the result
func (r *Result) Snapshot() *domain.Snapshot {
	snap := &domain.Snapshot{
		Topology:  r.Topology.Name,
		CreatedAt: time.Now().UTC(),
		Registry:  r.Registry.Entries(),
		RouterIDs: r.RouterIDs,
	}

	for _, f := range domain.Families {
		pool, ok := r.Pools[f]
		if !ok {
			continue
		}
		rec := domain.PoolRecord{
			Family:       f.String(),
			Base:         pool.Base().String(),
			MaxPrefixLen: r.options.Family(f).MaxPrefixLen,
		}
		for _, b := range pool.Free() {
			rec.Free = append(rec.Free, b.String())
		}
		snap.Pools = append(snap.Pools, rec)
	}

	fixed := make(map[domain.Family]map[int]bool)
	for _, a := range r.Allocations {
		if a.Fixed {
			if fixed[a.Family] == nil {
				fixed[a.Family] = make(map[int]bool)
			}
			fixed[a.Family][a.DomainID] = true
		}
	}

	domainOf := make(map[*domain.Interface]int)
	for _, d := range r.Domains {
		rec := domain.DomainRecord{
			ID:      d.ID,
			FixedV4: fixed[domain.IPv4][d.ID],
			FixedV6: fixed[domain.IPv6][d.ID],
		}
		for _, itf := range d.Interfaces {
			rec.Members = append(rec.Members, itf.ID())
			domainOf[itf] = d.ID
		}
		if s := d.Subnet(domain.IPv4); s != nil {
			rec.SubnetV4 = s.String()
		}
		if s := d.Subnet(domain.IPv6); s != nil {
			rec.SubnetV6 = s.String()
		}
		snap.Domains = append(snap.Domains, rec)
	}

	for _, n := range r.Topology.Nodes() {
		if !n.IsL3Boundary() {
			continue
		}
		for _, itf := range n.Interfaces {
			rec := domain.InterfaceRecord{
				Node:      n.Name,
				Kind:      n.Kind,
				Interface: itf.Name,
				DomainID:  -1,
			}
			if id, ok := domainOf[itf]; ok {
				rec.DomainID = id
			}
			if itf.Peer != nil {
				rec.Peer = itf.Peer.ID()
			}
			for _, p := range itf.Addresses(domain.IPv4) {
				rec.IPv4 = append(rec.IPv4, p.String())
			}
			for _, p := range itf.Addresses(domain.IPv6) {
				rec.IPv6 = append(rec.IPv6, p.String())
			}
			snap.Interfaces = append(snap.Interfaces, rec)
		}
	}
	return snap
}
