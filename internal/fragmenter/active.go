package fragmenter

import (
	"math"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/preference"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region uncertainty-axis

// UncertaintyAxis selects which quantity's ensemble disagreement ranks
// candidate pairs.
type UncertaintyAxis string

const (
	// AxisLogit ranks by variance of the raw return differences.
	AxisLogit UncertaintyAxis = "logit"
	// AxisProbability ranks by variance of the preference probabilities.
	AxisProbability UncertaintyAxis = "probability"
	// AxisLabel ranks by variance of the implied binary labels.
	AxisLabel UncertaintyAxis = "label"
)

// #endregion uncertainty-axis

// #region active-fragmenter

// Active re-ranks candidate pairs from a base fragmenter by ensemble
// disagreement, keeping the pairs the reward model is least certain about.
type Active struct {
	base         Fragmenter
	model        *preference.Model
	sampleFactor float64
	axis         UncertaintyAxis
	logger       *zap.Logger
}

// NewActive validates that the preference model is ensemble-backed and that
// the uncertainty axis is recognized.
func NewActive(model *preference.Model, base Fragmenter, sampleFactor float64, axis UncertaintyAxis, logger *zap.Logger) (*Active, error) {
	if !model.IsEnsemble() {
		return nil, fault.Validationf(
			"preference model not wrapped over an ensemble of reward models; found %s", model.Kind(),
		)
	}
	switch axis {
	case AxisLogit, AxisProbability, AxisLabel:
	default:
		return nil, fault.Validationf(
			"%q not supported; uncertainty axis should be one of logit, probability or label", axis,
		)
	}
	if sampleFactor < 1 {
		return nil, fault.Validationf("fragment sample factor must be at least 1, got %v", sampleFactor)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Active{
		base:         base,
		model:        model,
		sampleFactor: sampleFactor,
		axis:         axis,
		logger:       logger,
	}, nil
}

// #endregion active-fragmenter

// #region fragment

// Fragment oversamples sampleFactor*numPairs candidates from the base
// fragmenter and keeps the numPairs with highest member disagreement, ties
// broken by original order.
func (a *Active) Fragment(trajs []trajectory.Trajectory, fragmentLength, numPairs int) ([]trajectory.Pair, error) {
	oversampled := int(math.Ceil(a.sampleFactor * float64(numPairs)))
	candidates, err := a.base.Fragment(trajs, fragmentLength, oversampled)
	if err != nil {
		return nil, err
	}
	if len(candidates) <= numPairs {
		return candidates, nil
	}

	probs, diffs, err := a.model.ForwardAll(candidates)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = a.disagreement(probs[i], diffs[i])
	}

	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return scores[order[x]] > scores[order[y]]
	})

	picked := make([]trajectory.Pair, numPairs)
	var meanScore float64
	for i := 0; i < numPairs; i++ {
		picked[i] = candidates[order[i]]
		meanScore += scores[order[i]]
	}
	a.logger.Debug("active selection",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", numPairs),
		zap.Float64("mean_disagreement", meanScore/float64(numPairs)),
	)
	return picked, nil
}

// disagreement computes the member-wise variance of the configured axis for
// one candidate pair.
func (a *Active) disagreement(probs, diffs []float64) float64 {
	switch a.axis {
	case AxisLogit:
		return stat.Variance(diffs, nil)
	case AxisProbability:
		return stat.Variance(probs, nil)
	default: // AxisLabel, enforced at construction
		labels := make([]float64, len(probs))
		for i, p := range probs {
			if p > 0.5 {
				labels[i] = 1
			}
		}
		return stat.Variance(labels, nil)
	}
}

// #endregion fragment
