package fragmenter

import (
	"math/rand/v2"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region random-fragmenter

// Random samples fragment pairs uniformly over all valid start offsets in the
// corpus: trajectories are drawn with replacement weighted by their number of
// valid offsets, then a uniform offset is picked per draw.
type Random struct {
	rng *rand.Rand
	// WarningThreshold logs a diversity warning when fewer distinct
	// trajectories are usable. Zero disables the warning.
	warningThreshold int
	logger           *zap.Logger
}

// NewRandom seeds an independent sampling stream. warningThreshold of 0
// disables the low-diversity warning.
func NewRandom(seed uint64, warningThreshold int, logger *zap.Logger) *Random {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Random{
		rng:              rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d)),
		warningThreshold: warningThreshold,
		logger:           logger,
	}
}

// #endregion random-fragmenter

// #region fragment

// Fragment draws 2*numPairs fragments of fragmentLength and pairs them up in
// draw order.
func (r *Random) Fragment(trajs []trajectory.Trajectory, fragmentLength, numPairs int) ([]trajectory.Pair, error) {
	if fragmentLength < 1 {
		return nil, fault.Validationf("fragment length must be positive, got %d", fragmentLength)
	}
	if numPairs < 1 {
		return nil, fault.Validationf("number of pairs must be positive, got %d", numPairs)
	}

	var usable []trajectory.Trajectory
	for _, t := range trajs {
		if t.Len() >= fragmentLength {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return nil, fault.Validationf(
			"no trajectories are long enough for the desired fragment length of %d", fragmentLength,
		)
	}
	if r.warningThreshold > 0 && len(usable) < r.warningThreshold {
		r.logger.Warn("few usable trajectories; fragment diversity will degrade",
			zap.Int("usable", len(usable)),
			zap.Int("threshold", r.warningThreshold),
		)
	}

	// Weight each trajectory by its number of valid start offsets so every
	// offset in the corpus is equally likely.
	weights := make([]float64, len(usable))
	for i, t := range usable {
		weights[i] = float64(t.Len() - fragmentLength + 1)
	}
	cum := make([]float64, len(weights))
	floats.CumSum(cum, weights)
	total := cum[len(cum)-1]

	frags := make([]trajectory.Fragment, 2*numPairs)
	for i := range frags {
		ti := sort.SearchFloat64s(cum, r.rng.Float64()*total)
		if ti == len(cum) {
			ti--
		}
		t := usable[ti]
		start := r.rng.IntN(t.Len() - fragmentLength + 1)
		frag, err := t.Slice(start, fragmentLength)
		if err != nil {
			return nil, err
		}
		frags[i] = frag
	}

	pairs := make([]trajectory.Pair, numPairs)
	for i := range pairs {
		pairs[i] = trajectory.Pair{First: frags[2*i], Second: frags[2*i+1]}
	}
	return pairs, nil
}

// #endregion fragment
