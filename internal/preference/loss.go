package preference

import (
	"math"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region loss

// probEps keeps predicted probabilities away from 0 and 1 inside the log.
const probEps = 1e-7

// Stats summarizes one loss evaluation over a batch.
type Stats struct {
	// Loss is the mean binary cross-entropy against the (possibly soft)
	// target preferences.
	Loss float64
	// Accuracy is the fraction of pairs where the predicted majority side
	// matches the target's majority side; exact ties count as correct.
	Accuracy float64
}

// CrossEntropyLoss scores a preference model's predictions against gathered
// preferences with soft-label binary cross-entropy, and can push analytic
// gradients into trainable reward models.
type CrossEntropyLoss struct {
	model *Model
}

// NewCrossEntropyLoss binds the loss to a preference model.
func NewCrossEntropyLoss(model *Model) *CrossEntropyLoss {
	return &CrossEntropyLoss{model: model}
}

// Model returns the bound preference model.
func (l *CrossEntropyLoss) Model() *Model { return l.model }

// #endregion loss

// #region forward

// Forward computes loss and accuracy for a batch under one reward function.
// member selects the ensemble member; pass member < 0 for plain models.
func (l *CrossEntropyLoss) Forward(pairs []trajectory.Pair, prefs []float32, member int) (Stats, error) {
	if len(pairs) != len(prefs) {
		return Stats{}, fault.Validationf(
			"got %d preferences for %d fragment pairs; lengths must match", len(prefs), len(pairs),
		)
	}
	if len(pairs) == 0 {
		return Stats{}, fault.Validationf("cannot evaluate loss on an empty batch")
	}

	probs, _, err := l.model.Forward(pairs, member)
	if err != nil {
		return Stats{}, err
	}
	return batchStats(probs, prefs), nil
}

func batchStats(probs []float64, prefs []float32) Stats {
	var loss float64
	correct := 0
	for i, p := range probs {
		y := float64(prefs[i])
		pc := math.Min(1-probEps, math.Max(probEps, p))
		loss += -(y*math.Log(pc) + (1-y)*math.Log(1-pc))
		if (p > 0.5) == (y > 0.5) || y == 0.5 {
			correct++
		}
	}
	n := float64(len(probs))
	return Stats{Loss: loss / n, Accuracy: float64(correct) / n}
}

// #endregion forward

// #region backward

// Backward accumulates parameter gradients of the mean batch loss into the
// selected reward function, which must be trainable. Gradients are added to
// whatever the model has already accumulated; callers zero and step.
func (l *CrossEntropyLoss) Backward(pairs []trajectory.Pair, prefs []float32, member int) (Stats, error) {
	if len(pairs) != len(prefs) {
		return Stats{}, fault.Validationf(
			"got %d preferences for %d fragment pairs; lengths must match", len(prefs), len(pairs),
		)
	}
	if len(pairs) == 0 {
		return Stats{}, fault.Validationf("cannot train on an empty batch")
	}

	fn, err := l.model.memberModel(member)
	if err != nil {
		return Stats{}, err
	}
	trainable, ok := fn.(reward.Trainable)
	if !ok {
		return Stats{}, fault.Wiringf("reward model %T is not trainable", fn)
	}

	probs, diffs, err := l.model.Forward(pairs, member)
	if err != nil {
		return Stats{}, err
	}

	cfg := l.model.Config()
	n := float64(len(pairs))
	for i, pair := range pairs {
		p := probs[i]
		y := float64(prefs[i])
		pc := math.Min(1-probEps, math.Max(probEps, p))

		// dL/dp for binary cross-entropy, averaged over the batch.
		dLdp := (pc - y) / (pc * (1 - pc)) / n

		// dp/ddiff through the noise blend and sigmoid; zero where the clamp
		// is active.
		var dpdd float64
		if math.Abs(diffs[i]) < cfg.Threshold {
			s := sigmoid(diffs[i])
			dpdd = (1 - cfg.NoiseProb) * s * (1 - s)
		}

		g := dLdp * dpdd
		if g == 0 {
			continue
		}
		accumulateFragment(trainable, pair.Second, cfg.DiscountFactor, g)
		accumulateFragment(trainable, pair.First, cfg.DiscountFactor, -g)
	}

	return batchStats(probs, prefs), nil
}

// accumulateFragment pushes scale * gamma^t into the model's gradient for
// each step of the fragment.
func accumulateFragment(m reward.Trainable, f trajectory.Fragment, discount, scale float64) {
	obs, acts, nextObs, dones := fragmentBatch(f)
	upstream := make([]float64, len(acts))
	weight := scale
	for t := range upstream {
		upstream[t] = weight
		weight *= discount
	}
	m.Accumulate(obs, acts, nextObs, dones, upstream)
}

// #endregion backward
