package dataset

import (
	"math"

	"github.com/google/uuid"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region sample

// Sample is one stored comparison: a fragment pair and the gathered
// preference that the second fragment is preferred.
type Sample struct {
	ID         string
	Pair       trajectory.Pair
	Preference float32
}

// #endregion sample

// #region dataset

// Dataset is a bounded, order-preserving preference store. Pushing past the
// capacity evicts the oldest samples first; a push either applies in full or
// not at all.
type Dataset struct {
	samples []Sample
	maxSize int // 0 means unbounded
}

// New creates an empty dataset. maxSize of 0 means unbounded.
func New(maxSize int) (*Dataset, error) {
	if maxSize < 0 {
		return nil, fault.Validationf("dataset max size must be non-negative, got %d", maxSize)
	}
	return &Dataset{maxSize: maxSize}, nil
}

// Len returns the number of stored samples.
func (d *Dataset) Len() int { return len(d.samples) }

// MaxSize returns the capacity bound, 0 meaning unbounded.
func (d *Dataset) MaxSize() int { return d.maxSize }

// Samples returns the stored samples in insertion order. The slice is a
// copy; the fragments are shared.
func (d *Dataset) Samples() []Sample {
	return append([]Sample(nil), d.samples...)
}

// At returns the i-th sample in insertion order.
func (d *Dataset) At(i int) Sample { return d.samples[i] }

// #endregion dataset

// #region push

// Push appends a batch of comparisons, validating everything before any
// mutation. Preferences must be finite and lie in [0, 1], one per pair.
func (d *Dataset) Push(pairs []trajectory.Pair, prefs []float32) error {
	if len(prefs) != len(pairs) {
		return fault.Validationf(
			"unexpected preferences length %d for %d fragment pairs", len(prefs), len(pairs),
		)
	}
	for i, p := range prefs {
		f := float64(p)
		if math.IsNaN(f) || f < 0 || f > 1 {
			return fault.Validationf("preference %v at index %d outside [0, 1]", p, i)
		}
	}
	for i, pair := range pairs {
		if err := pair.Validate(); err != nil {
			return fault.Validationf("fragment pair %d invalid: %v", i, err)
		}
	}

	for i := range pairs {
		d.samples = append(d.samples, Sample{
			ID:         uuid.New().String(),
			Pair:       pairs[i],
			Preference: prefs[i],
		})
	}
	if d.maxSize > 0 && len(d.samples) > d.maxSize {
		evict := len(d.samples) - d.maxSize
		d.samples = append([]Sample(nil), d.samples[evict:]...)
	}
	return nil
}

// #endregion push
