package gatherer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaptiveml/prefloop/internal/trajectory"
)

func makeFragment(t *testing.T, rews ...float64) trajectory.Fragment {
	t.Helper()
	n := len(rews)
	obs := make([][]float64, n+1)
	acts := make([]int, n)
	for i := 0; i <= n; i++ {
		obs[i] = []float64{float64(i)}
	}
	traj, err := trajectory.New(obs, acts, rews, nil, false)
	require.NoError(t, err)
	frag, err := traj.Slice(0, n)
	require.NoError(t, err)
	return frag
}

func pairOf(t *testing.T, first, second []float64) trajectory.Pair {
	t.Helper()
	return trajectory.Pair{
		First:  makeFragment(t, first...),
		Second: makeFragment(t, second...),
	}
}

func TestSyntheticConfigValidation(t *testing.T) {
	for _, cfg := range []SyntheticConfig{
		{Temperature: -1, DiscountFactor: 1, Threshold: 50},
		{Temperature: 1, DiscountFactor: 0, Threshold: 50},
		{Temperature: 1, DiscountFactor: 1, Threshold: 0},
	} {
		_, err := NewSynthetic(cfg)
		assert.Error(t, err, "config %+v", cfg)
	}
}

func TestZeroTemperatureIsDeterministic(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.Temperature = 0
	s, err := NewSynthetic(cfg)
	require.NoError(t, err)

	pairs := []trajectory.Pair{
		pairOf(t, []float64{0, 0}, []float64{1, 1}),
		pairOf(t, []float64{2, 2}, []float64{0, 0}),
		pairOf(t, []float64{1, 1}, []float64{1, 1}),
	}
	prefs, err := s.Gather(pairs)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0.5}, prefs)
}

func TestSoftPreferencesMatchSigmoid(t *testing.T) {
	s, err := NewSynthetic(SyntheticConfig{
		Temperature:    2,
		DiscountFactor: 1,
		Threshold:      50,
		SampleLabels:   false,
	})
	require.NoError(t, err)

	pairs := []trajectory.Pair{pairOf(t, []float64{0, 0}, []float64{1, 2})}
	prefs, err := s.Gather(pairs)
	require.NoError(t, err)

	expected := 1 / (1 + math.Exp(-3.0/2))
	assert.InDelta(t, expected, float64(prefs[0]), 1e-6)
}

func TestSampledLabelsAreBinary(t *testing.T) {
	cfg := DefaultSyntheticConfig()
	cfg.Seed = 11
	s, err := NewSynthetic(cfg)
	require.NoError(t, err)

	pairs := make([]trajectory.Pair, 50)
	for i := range pairs {
		pairs[i] = pairOf(t, []float64{0}, []float64{float64(i%3) - 1})
	}
	prefs, err := s.Gather(pairs)
	require.NoError(t, err)
	for _, p := range prefs {
		assert.True(t, p == 0 || p == 1)
	}
}

func TestSampledLabelsSeedReproducibility(t *testing.T) {
	pairs := make([]trajectory.Pair, 20)
	for i := range pairs {
		pairs[i] = pairOf(t, []float64{0.1}, []float64{-0.1})
	}

	gather := func(seed uint64) []float32 {
		cfg := DefaultSyntheticConfig()
		cfg.Seed = seed
		s, err := NewSynthetic(cfg)
		require.NoError(t, err)
		prefs, err := s.Gather(pairs)
		require.NoError(t, err)
		return prefs
	}

	assert.Equal(t, gather(4), gather(4))
}

func TestDiscountFactorChangesOutcome(t *testing.T) {
	// First frontloads reward, Second backloads more total reward. Heavy
	// discounting flips the winner.
	pair := pairOf(t, []float64{1, 0, 0}, []float64{0, 0, 1.5})

	gather := func(discount float64) float32 {
		s, err := NewSynthetic(SyntheticConfig{
			Temperature:    0,
			DiscountFactor: discount,
			Threshold:      50,
		})
		require.NoError(t, err)
		prefs, err := s.Gather([]trajectory.Pair{pair})
		require.NoError(t, err)
		return prefs[0]
	}

	assert.Equal(t, float32(1), gather(1))
	assert.Equal(t, float32(0), gather(0.5))
}

func TestGatherRejectsNonFiniteRewards(t *testing.T) {
	s, err := NewSynthetic(DefaultSyntheticConfig())
	require.NoError(t, err)

	bad := pairOf(t, []float64{math.NaN()}, []float64{1})
	_, err = s.Gather([]trajectory.Pair{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-finite")
}

func TestGatherRejectsMismatchedPair(t *testing.T) {
	s, err := NewSynthetic(DefaultSyntheticConfig())
	require.NoError(t, err)

	bad := trajectory.Pair{
		First:  makeFragment(t, 1),
		Second: makeFragment(t, 1, 2),
	}
	_, err = s.Gather([]trajectory.Pair{bad})
	assert.Error(t, err)
}
