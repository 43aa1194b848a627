package ipam

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"ipnetlab/internal/domain"
	"ipnetlab/internal/log"
)

// Pool is the free address space of one family. Blocks never overlap each
// other and are kept most specific first, lowest address first.
type Pool struct {
	base   domain.Subnet
	blocks []domain.Subnet
}

// NewPool creates a pool holding the whole base block
func NewPool(base domain.Subnet) *Pool {
	return &Pool{
		base:   base,
		blocks: []domain.Subnet{base},
	}
}

// ParsePool creates a pool from a base block in CIDR notation
func ParsePool(cidr string) (*Pool, error) {
	base, err := domain.ParseSubnet(cidr)
	if err != nil {
		return nil, fmt.Errorf("pool base: %w", err)
	}
	return NewPool(base), nil
}

// Family returns the address family of the pool
func (p *Pool) Family() domain.Family {
	return p.base.Family()
}

// Base returns the block the pool was seeded with
func (p *Pool) Base() domain.Subnet {
	return p.base
}

// Len returns the number of free blocks
func (p *Pool) Len() int {
	return len(p.blocks)
}

// Free returns the free blocks in scan order
func (p *Pool) Free() []domain.Subnet {
	p.sort()
	return append([]domain.Subnet(nil), p.blocks...)
}

// FreeSize returns the number of free addresses
func (p *Pool) FreeSize() *big.Int {
	total := new(big.Int)
	for _, b := range p.blocks {
		total.Add(total, b.Size())
	}
	return total
}

// Exclude removes the given subnets from the free space. Blocks partially
// covered by a subnet are split so that only the uncovered parts remain.
func (p *Pool) Exclude(subnets []domain.Subnet) {
	var out []domain.Subnet
	for _, b := range p.blocks {
		out = append(out, carve(b, subnets)...)
	}
	p.blocks = out
	p.sort()
}

// take removes a block of exactly the given prefix length from the pool. The
// smallest free block able to hold it is halved until it has the right size;
// the upper halves go back to the pool.
func (p *Pool) take(ctx context.Context, bits int, fixed []domain.Subnet) (domain.Subnet, bool) {
	for {
		p.sort()
		idx := -1
		for i, b := range p.blocks {
			if b.Bits() <= bits {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}

		cur := p.blocks[idx]
		p.blocks = append(p.blocks[:idx], p.blocks[idx+1:]...)
		for cur.Bits() < bits {
			lo, hi := cur.Halves()
			if !coveredBy(hi, fixed) {
				p.blocks = append(p.blocks, hi)
			}
			cur = lo
		}

		if f := firstOverlap(cur, fixed); f != nil {
			log.G(ctx).WithError(ErrOverlapConflict{candidate: cur.String(), fixed: f.String()}).
				Debug("returning free parts of candidate block")
			p.blocks = append(p.blocks, carve(cur, fixed)...)
			continue
		}
		return cur, true
	}
}

func (p *Pool) sort() {
	sort.SliceStable(p.blocks, func(i, j int) bool {
		return domain.SubnetLess(p.blocks[i], p.blocks[j])
	})
}

// carve returns the parts of b not covered by any of the subnets, as the
// largest aligned blocks possible, lowest address first.
func carve(b domain.Subnet, subnets []domain.Subnet) []domain.Subnet {
	var out []domain.Subnet
	stack := []domain.Subnet{b}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case coveredBy(cur, subnets):
		case firstOverlap(cur, subnets) == nil:
			out = append(out, cur)
		default:
			lo, hi := cur.Halves()
			stack = append(stack, hi, lo)
		}
	}
	return out
}

func coveredBy(s domain.Subnet, subnets []domain.Subnet) bool {
	for _, o := range subnets {
		if o.Contains(s) {
			return true
		}
	}
	return false
}

func firstOverlap(s domain.Subnet, subnets []domain.Subnet) domain.Subnet {
	for _, o := range subnets {
		if o.Overlaps(s) {
			return o
		}
	}
	return nil
}
