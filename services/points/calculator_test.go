package points

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputePointsTable(t *testing.T) {
	cases := []struct {
		streak int
		want   int64
	}{
		{0, 10},
		{1, 10},
		{2, 10},
		{3, 12},
		{6, 12},
		{7, 15},
		{29, 15},
		{30, 20},
		{365, 20},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, ComputePoints(tc.streak, 10, 1.0), "streak %d", tc.streak)
	}
}

func TestComputePointsBonusMultiplier(t *testing.T) {
	require.Equal(t, int64(30), ComputePoints(7, 10, 2.0))
	// 10 × 1.2 × 1.1 = 13.2
	require.Equal(t, int64(13), ComputePoints(3, 10, 1.1))
	require.Equal(t, int64(0), ComputePoints(30, 0, 1.0))
	require.Equal(t, int64(0), ComputePoints(30, 10, -1))
}

func TestMultiplierIsMonotonic(t *testing.T) {
	prev := Multiplier(0)
	for days := 1; days <= 100; days++ {
		m := Multiplier(days)
		require.GreaterOrEqual(t, m, prev)
		prev = m
	}
	require.Equal(t, 2.0, Multiplier(30))
}
