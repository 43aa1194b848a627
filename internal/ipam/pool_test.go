package ipam

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipnetlab/internal/domain"
)

func strs(subnets []domain.Subnet) []string {
	out := make([]string, 0, len(subnets))
	for _, s := range subnets {
		out = append(out, s.String())
	}
	return out
}

func TestPoolTake(t *testing.T) {
	ctx := context.Background()
	pool, err := ParsePool("10.0.0.0/24")
	require.NoError(t, err)

	s, ok := pool.take(ctx, 26, nil)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.0/26", s.String())
	assert.Equal(t, []string{"10.0.0.64/26", "10.0.0.128/25"}, strs(pool.Free()))

	t.Run("smallest fitting block is used first", func(t *testing.T) {
		s, ok := pool.take(ctx, 27, nil)
		require.True(t, ok)
		assert.Equal(t, "10.0.0.64/27", s.String())
		assert.Equal(t, []string{"10.0.0.96/27", "10.0.0.128/25"}, strs(pool.Free()))
	})

	t.Run("no block wide enough", func(t *testing.T) {
		_, ok := pool.take(ctx, 24, nil)
		assert.False(t, ok)
	})
}

func TestPoolTakeAroundPinnedSubnet(t *testing.T) {
	pool, err := ParsePool("10.0.0.0/24")
	require.NoError(t, err)
	fixed := []domain.Subnet{domain.MustSubnet("10.0.0.0/26")}

	s, ok := pool.take(context.Background(), 26, fixed)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.64/26", s.String())
	assert.Equal(t, []string{"10.0.0.128/25"}, strs(pool.Free()))
}

func TestPoolExclude(t *testing.T) {
	pool, err := ParsePool("10.0.0.0/24")
	require.NoError(t, err)

	pool.Exclude([]domain.Subnet{
		domain.MustSubnet("10.0.0.64/26"),
		domain.MustSubnet("10.0.0.200/32"),
		domain.MustSubnet("192.168.0.0/16"),
	})

	free := pool.Free()
	var total int64
	for _, b := range free {
		total += b.Size().Int64()
		assert.False(t, b.Overlaps(domain.MustSubnet("10.0.0.64/26")))
		assert.False(t, b.Overlaps(domain.MustSubnet("10.0.0.200/32")))
	}
	assert.Equal(t, int64(256-64-1), total)
	assert.Contains(t, strs(free), "10.0.0.0/26")
	assert.Contains(t, strs(free), "10.0.0.128/26")
}

func TestPoolExcludeWholeBase(t *testing.T) {
	pool, err := ParsePool("10.0.0.0/24")
	require.NoError(t, err)

	pool.Exclude([]domain.Subnet{domain.MustSubnet("10.0.0.0/8")})
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, int64(0), pool.FreeSize().Int64())
}

func TestCarve(t *testing.T) {
	got := carve(domain.MustSubnet("10.0.0.0/24"), []domain.Subnet{domain.MustSubnet("10.0.0.128/26")})
	assert.Equal(t, []string{"10.0.0.0/25", "10.0.0.192/26"}, strs(got))
}

func TestParsePoolInvalid(t *testing.T) {
	_, err := ParsePool("10.0.0.0/33")
	assert.Error(t, err)
}
