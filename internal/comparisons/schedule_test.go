package comparisons

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleByName(t *testing.T) {
	for _, name := range []string{ScheduleConstant, ScheduleHyperbolic, ScheduleInverseQuadratic} {
		s, err := ScheduleByName(name)
		require.NoError(t, err, name)
		assert.Greater(t, s(0), 0.0)
	}

	_, err := ScheduleByName("linear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown query schedule "linear"`)
}

func TestAllocateConstantSchedule(t *testing.T) {
	s, err := ScheduleByName(ScheduleConstant)
	require.NoError(t, err)

	got, err := AllocateQueries(s, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2, 2, 2}, got)
}

func TestAllocateSumsExactly(t *testing.T) {
	for _, name := range []string{ScheduleConstant, ScheduleHyperbolic, ScheduleInverseQuadratic} {
		s, err := ScheduleByName(name)
		require.NoError(t, err)
		for _, tc := range []struct{ total, iters int }{
			{100, 7}, {1, 5}, {13, 4}, {0, 3}, {99, 10},
		} {
			got, err := AllocateQueries(s, tc.total, tc.iters)
			require.NoError(t, err)
			require.Len(t, got, tc.iters)
			sum := 0
			for _, q := range got {
				assert.GreaterOrEqual(t, q, 0)
				sum += q
			}
			assert.Equal(t, tc.total, sum, "%s total=%d iters=%d", name, tc.total, tc.iters)
		}
	}
}

func TestAllocateFrontLoadsDecayingSchedules(t *testing.T) {
	for _, name := range []string{ScheduleHyperbolic, ScheduleInverseQuadratic} {
		s, err := ScheduleByName(name)
		require.NoError(t, err)

		got, err := AllocateQueries(s, 100, 5)
		require.NoError(t, err)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1], got[i], "%s allocation %v", name, got)
		}
		assert.Greater(t, got[0], got[len(got)-1], name)
	}
}

func TestAllocateRejectsBadArgs(t *testing.T) {
	s, err := ScheduleByName(ScheduleConstant)
	require.NoError(t, err)

	_, err = AllocateQueries(s, 10, 0)
	assert.Error(t, err)
	_, err = AllocateQueries(s, -1, 3)
	assert.Error(t, err)
}

func TestAllocateRejectsBadWeights(t *testing.T) {
	zero := func(t float64) float64 { return 0 }
	_, err := AllocateQueries(zero, 10, 3)
	assert.Error(t, err)

	negative := func(t float64) float64 { return -1 }
	_, err = AllocateQueries(negative, 10, 3)
	assert.Error(t, err)
}

func TestAllocateCustomSchedule(t *testing.T) {
	// Weight 3:1 split over two iterations.
	s := func(t float64) float64 {
		if t < 0.5 {
			return 3
		}
		return 1
	}
	got, err := AllocateQueries(s, 8, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 2}, got)
}
