package ipam

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/log"
)

// AllocateSubnets gives every domain needing addresses of the pool's family a
// subnet of that family.
//
// Domains carrying pinned addresses keep their first pinned subnet and take
// nothing from the pool; every pinned subnet is removed from the free space
// first. Domains sharing a pinned subnet all receive it and the issuer keeps
// their addresses apart. The remaining domains are served largest first, each
// with the smallest subnet holding it: small domains are not widened up to
// maxPrefixLen, which only bounds how wide a subnet may get. A domain needing a
// wider subnet than maxPrefixLen fails with ErrSubnetTooSmall, one that no
// free block can hold fails with ErrPoolExhausted. The pool is consumed even
// when an error is returned.
func AllocateSubnets(ctx context.Context, pool *Pool, domains []*domain.BroadcastDomain, maxPrefixLen int) ([]domain.Allocation, error) {
	f := pool.Family()
	ctx = log.WithModule(ctx, "allocator")
	logger := log.G(ctx).WithField("family", f.String())

	var (
		fixed   []domain.Subnet
		allocs  []domain.Allocation
		pending []*domain.BroadcastDomain
	)
	for _, d := range domains {
		if !d.HasFixed(f) {
			if d.Uses(f) && d.RequiredAddresses(f) > 0 {
				pending = append(pending, d)
			}
			continue
		}
		pinned := d.FixedSubnets(f)
		fixed = append(fixed, pinned...)
		d.Assign(f, pinned[0])
		allocs = append(allocs, domain.Allocation{DomainID: d.ID, Family: f, Subnet: pinned[0], Fixed: true})
	}
	pool.Exclude(fixed)

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].RequiredAddresses(f) > pending[j].RequiredAddresses(f)
	})

	for _, d := range pending {
		bits := d.PrefixLen(f)
		if bits < maxPrefixLen {
			return allocs, ErrSubnetTooSmall{
				family:       f,
				domain:       d.ID,
				required:     d.RequiredAddresses(f),
				prefixLen:    bits,
				maxPrefixLen: maxPrefixLen,
			}
		}

		s, ok := pool.take(ctx, bits, fixed)
		if !ok {
			return allocs, ErrPoolExhausted{family: f, domain: d.ID, prefixLen: bits}
		}
		d.Assign(f, s)
		allocs = append(allocs, domain.Allocation{DomainID: d.ID, Family: f, Subnet: s})

		logger.WithFields(logrus.Fields{
			"domain":   d.ID,
			"required": d.RequiredAddresses(f),
			"subnet":   s.String(),
		}).Debug("allocated subnet")
	}

	logger.WithField("free_blocks", pool.Len()).Infof("allocated %d subnets", len(allocs))
	return allocs, nil
}
