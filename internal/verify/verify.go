// Package verify checks that the addresses of a snapshot answer on the
// network once the emulated lab is running.
package verify

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/log"
)

// Target is one address to probe
type Target struct {
	Node      string        `json:"node" yaml:"node"`
	Interface string        `json:"interface" yaml:"interface"`
	Address   string        `json:"address" yaml:"address"`
	Family    domain.Family `json:"-" yaml:"-"`
}

// Result is the outcome of probing one target
type Result struct {
	Target
	Up bool `json:"up" yaml:"up"`
}

// Report is the outcome of a sweep
type Report struct {
	Snapshot int64         `json:"snapshot" yaml:"snapshot"`
	Results  []Result      `json:"results" yaml:"results"`
	Up       int           `json:"up" yaml:"up"`
	Down     int           `json:"down" yaml:"down"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Prober reports which of a batch of same-family addresses answer
type Prober interface {
	Probe(ctx context.Context, f domain.Family, addrs []string) (map[string]bool, error)
}

// Verifier sweeps the addresses of snapshots
type Verifier struct {
	prober       Prober
	concurrency  int
	batchSize    int
	timeout      time.Duration
	withLoopback bool
}

// New creates a verifier probing through p
func New(p Prober, opts ...Option) *Verifier {
	v := &Verifier{
		prober:      p,
		concurrency: 8,
		batchSize:   32,
		timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Targets lists the addresses of a snapshot's interfaces, ordered by node,
// interface and address. Loopbacks are left out unless included is set.
func Targets(snap *domain.Snapshot, includeLoopback bool) []Target {
	var out []Target
	for _, rec := range snap.Interfaces {
		if rec.Interface == domain.LoopbackName && !includeLoopback {
			continue
		}
		for _, f := range domain.Families {
			addrs := rec.IPv4
			if f == domain.IPv6 {
				addrs = rec.IPv6
			}
			for _, a := range addrs {
				p, err := netip.ParsePrefix(a)
				if err != nil || !probeable(p.Addr()) {
					continue
				}
				out = append(out, Target{Node: rec.Node, Interface: rec.Interface, Address: p.Addr().String(), Family: f})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Node != out[j].Node {
			return out[i].Node < out[j].Node
		}
		return out[i].Interface < out[j].Interface
	})
	return out
}

// probeable filters out addresses that never leave their host
func probeable(a netip.Addr) bool {
	return !a.IsLoopback() && !a.IsLinkLocalUnicast() && !a.IsUnspecified()
}

// Verify probes every target of the snapshot, at most concurrency batches at
// a time. It fails on the first probe error.
func (v *Verifier) Verify(ctx context.Context, snap *domain.Snapshot) (*Report, error) {
	start := time.Now()
	ctx = log.WithModule(ctx, "verify")
	logger := log.G(ctx).WithField("snapshot", snap.ID)

	targets := Targets(snap, v.withLoopback)
	report := &Report{Snapshot: snap.ID}
	if len(targets) == 0 {
		logger.Info("no addresses to verify")
		return report, nil
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	var (
		mu sync.Mutex
		up = make(map[string]bool)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for _, batch := range v.batches(targets) {
		batch := batch
		g.Go(func() error {
			res, err := v.prober.Probe(gctx, batch.family, batch.addrs)
			if err != nil {
				return fmt.Errorf("probe %d %s addresses: %w", len(batch.addrs), batch.family, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for a, ok := range res {
				if ok {
					up[a] = true
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, t := range targets {
		r := Result{Target: t, Up: up[t.Address]}
		if r.Up {
			report.Up++
		} else {
			report.Down++
		}
		report.Results = append(report.Results, r)
	}
	report.Duration = time.Since(start)

	logger.WithFields(logrus.Fields{
		"up":       report.Up,
		"down":     report.Down,
		"duration": report.Duration,
	}).Info("verification complete")
	return report, nil
}

type batch struct {
	family domain.Family
	addrs  []string
}

// batches groups distinct addresses by family, batchSize at a time
func (v *Verifier) batches(targets []Target) []batch {
	var out []batch
	for _, f := range domain.Families {
		seen := make(map[string]bool)
		var addrs []string
		for _, t := range targets {
			if t.Family != f || seen[t.Address] {
				continue
			}
			seen[t.Address] = true
			addrs = append(addrs, t.Address)
		}
		for len(addrs) > 0 {
			n := min(v.batchSize, len(addrs))
			out = append(out, batch{family: f, addrs: addrs[:n]})
			addrs = addrs[n:]
		}
	}
	return out
}
