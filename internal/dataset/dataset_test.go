package dataset

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

func makePair(t *testing.T, base float64, n int, terminal bool) trajectory.Pair {
	t.Helper()
	build := func(offset float64, term bool) trajectory.Fragment {
		obs := make([][]float64, n+1)
		acts := make([]int, n)
		rews := make([]float64, n)
		for i := 0; i <= n; i++ {
			obs[i] = []float64{base + offset, float64(i) * 0.25}
		}
		for i := 0; i < n; i++ {
			acts[i] = i % 2
			rews[i] = base + offset + float64(i)*0.125
		}
		traj, err := trajectory.New(obs, acts, rews, nil, term)
		require.NoError(t, err)
		frag, err := traj.Slice(0, n)
		require.NoError(t, err)
		return frag
	}
	return trajectory.Pair{First: build(0, false), Second: build(1, terminal)}
}

func TestNewRejectsNegativeMaxSize(t *testing.T) {
	_, err := New(-1)
	assert.Error(t, err)
}

func TestPushAssignsIDsAndPreservesOrder(t *testing.T) {
	d, err := New(0)
	require.NoError(t, err)

	pairs := []trajectory.Pair{makePair(t, 0, 3, false), makePair(t, 1, 3, true)}
	require.NoError(t, d.Push(pairs, []float32{0.25, 1}))

	require.Equal(t, 2, d.Len())
	assert.NotEmpty(t, d.At(0).ID)
	assert.NotEqual(t, d.At(0).ID, d.At(1).ID)
	assert.Equal(t, float32(0.25), d.At(0).Preference)
	assert.Equal(t, float32(1), d.At(1).Preference)
}

func TestPushLengthMismatch(t *testing.T) {
	d, err := New(0)
	require.NoError(t, err)

	pairs := []trajectory.Pair{makePair(t, 0, 3, false), makePair(t, 1, 3, false)}
	err = d.Push(pairs, []float32{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected preferences length 1 for 2 fragment pairs")
	assert.Zero(t, d.Len())
}

func TestPushRejectsOutOfRangePreference(t *testing.T) {
	d, err := New(0)
	require.NoError(t, err)

	pairs := []trajectory.Pair{makePair(t, 0, 3, false)}
	for _, bad := range []float32{-0.1, 1.1, float32(math.NaN())} {
		err = d.Push(pairs, []float32{bad})
		require.Error(t, err, "preference %v", bad)
		var verr *fault.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
	assert.Zero(t, d.Len())
}

func TestPushRejectsInvalidPairWholesale(t *testing.T) {
	d, err := New(0)
	require.NoError(t, err)

	good := makePair(t, 0, 3, false)
	bad := trajectory.Pair{First: good.First}
	err = d.Push([]trajectory.Pair{good, bad}, []float32{1, 0})
	require.Error(t, err)
	// All-or-nothing: the valid pair must not have been appended.
	assert.Zero(t, d.Len())
}

func TestFIFOEviction(t *testing.T) {
	d, err := New(5)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 8; i++ {
		require.NoError(t, d.Push(
			[]trajectory.Pair{makePair(t, float64(i), 3, false)},
			[]float32{float32(i) / 8},
		))
		ids = append(ids, d.At(d.Len()-1).ID)
	}

	require.Equal(t, 5, d.Len())
	// The three oldest samples are gone, the five newest remain in order.
	for i := 0; i < 5; i++ {
		assert.Equal(t, ids[i+3], d.At(i).ID)
	}
}

func TestFIFOEvictionBatchPush(t *testing.T) {
	d, err := New(3)
	require.NoError(t, err)

	pairs := []trajectory.Pair{
		makePair(t, 0, 2, false),
		makePair(t, 1, 2, false),
		makePair(t, 2, 2, false),
		makePair(t, 3, 2, false),
		makePair(t, 4, 2, false),
	}
	require.NoError(t, d.Push(pairs, []float32{0, 0.25, 0.5, 0.75, 1}))

	require.Equal(t, 3, d.Len())
	assert.Equal(t, float32(0.5), d.At(0).Preference)
	assert.Equal(t, float32(1), d.At(2).Preference)
}

func TestSamplesReturnsCopy(t *testing.T) {
	d, err := New(0)
	require.NoError(t, err)
	require.NoError(t, d.Push([]trajectory.Pair{makePair(t, 0, 2, false)}, []float32{1}))

	s := d.Samples()
	s[0].Preference = 0
	assert.Equal(t, float32(1), d.At(0).Preference)
}

func TestSnapshotRoundTrip(t *testing.T) {
	d, err := New(7)
	require.NoError(t, err)

	pairs := []trajectory.Pair{
		makePair(t, 0, 4, false),
		makePair(t, 1, 4, true),
		makePair(t, 2, 4, false),
	}
	// Preferences chosen to exercise exact binary float values and not.
	require.NoError(t, d.Push(pairs, []float32{0.1, 0.5, 0.9999}))

	path := filepath.Join(t.TempDir(), "preferences.db")
	require.NoError(t, d.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, d.Len(), loaded.Len())
	assert.Equal(t, 7, loaded.MaxSize())
	for i := 0; i < d.Len(); i++ {
		want, got := d.At(i), loaded.At(i)
		assert.Equal(t, want.ID, got.ID)
		// Bit-exact preference round-trip.
		assert.Equal(t, math.Float32bits(want.Preference), math.Float32bits(got.Preference))
		assert.Equal(t, want.Pair.First.Obs, got.Pair.First.Obs)
		assert.Equal(t, want.Pair.First.Acts, got.Pair.First.Acts)
		assert.Equal(t, want.Pair.First.Rews, got.Pair.First.Rews)
		assert.Equal(t, want.Pair.First.Terminal, got.Pair.First.Terminal)
		assert.Equal(t, want.Pair.Second.Obs, got.Pair.Second.Obs)
		assert.Equal(t, want.Pair.Second.Terminal, got.Pair.Second.Terminal)
	}
}

func TestSnapshotOverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.db")

	d, err := New(0)
	require.NoError(t, err)
	require.NoError(t, d.Push([]trajectory.Pair{makePair(t, 0, 2, false)}, []float32{1}))
	require.NoError(t, d.Save(path))

	d2, err := New(0)
	require.NoError(t, err)
	require.NoError(t, d2.Push([]trajectory.Pair{makePair(t, 5, 3, false)}, []float32{0}))
	require.NoError(t, d2.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	assert.Equal(t, float32(0), loaded.At(0).Preference)
	assert.Equal(t, 3, loaded.At(0).Pair.First.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.db"))
	assert.Error(t, err)
}
