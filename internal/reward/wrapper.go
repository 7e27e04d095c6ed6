package reward

import (
	"math"

	"github.com/adaptiveml/prefloop/internal/env"
	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region std-bonus

// StdBonusWrapper exposes an ensemble as mean reward plus a multiple of the
// member standard deviation. It is the only wrapper an ensemble may be
// exposed through.
type StdBonusWrapper struct {
	base  *Ensemble
	alpha float64
}

// NewStdBonus wraps an ensemble with an uncertainty bonus of alpha standard
// deviations.
func NewStdBonus(base *Ensemble, alpha float64) (*StdBonusWrapper, error) {
	if base == nil {
		return nil, fault.Validationf("std-bonus wrapper needs an ensemble")
	}
	if math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return nil, fault.Validationf("std-bonus alpha must be finite, got %v", alpha)
	}
	return &StdBonusWrapper{base: base, alpha: alpha}, nil
}

func (w *StdBonusWrapper) ObservationSpace() env.Space { return w.base.ObservationSpace() }
func (w *StdBonusWrapper) ActionSpace() env.Space      { return w.base.ActionSpace() }

// Base returns the wrapped ensemble.
func (w *StdBonusWrapper) Base() Model { return w.base }

// Rewards returns mean + alpha*std per transition.
func (w *StdBonusWrapper) Rewards(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) []float64 {
	mean, std := w.base.RewardStats(obs, acts, nextObs, dones)
	for i := range mean {
		mean[i] += w.alpha * std[i]
	}
	return mean
}

// #endregion std-bonus

// #region normalize

// NormalizeWrapper standardizes a model's rewards with running mean and
// variance statistics. Not valid around an ensemble; preference learning
// classifies it as an invalid ensemble wrap.
type NormalizeWrapper struct {
	base  Model
	count float64
	mean  float64
	m2    float64
}

// NewNormalize wraps a reward model with running standardization.
func NewNormalize(base Model) *NormalizeWrapper {
	return &NormalizeWrapper{base: base}
}

func (w *NormalizeWrapper) ObservationSpace() env.Space { return w.base.ObservationSpace() }
func (w *NormalizeWrapper) ActionSpace() env.Space      { return w.base.ActionSpace() }

// Base returns the wrapped model.
func (w *NormalizeWrapper) Base() Model { return w.base }

// Rewards standardizes the base model's output, updating running statistics
// with Welford's algorithm.
func (w *NormalizeWrapper) Rewards(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) []float64 {
	out := w.base.Rewards(obs, acts, nextObs, dones)
	for _, r := range out {
		w.count++
		delta := r - w.mean
		w.mean += delta / w.count
		w.m2 += delta * (r - w.mean)
	}
	std := 1.0
	if w.count > 1 {
		if v := w.m2 / (w.count - 1); v > 1e-8 {
			std = math.Sqrt(v)
		}
	}
	for i, r := range out {
		out[i] = (r - w.mean) / std
	}
	return out
}

// #endregion normalize
