package reward

import (
	"gonum.org/v1/gonum/stat"

	"github.com/adaptiveml/prefloop/internal/env"
	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region ensemble

// Ensemble is a reward model made of independently trained members. Its
// aggregate prediction is the member mean; member disagreement is exposed as
// a predictive standard deviation.
type Ensemble struct {
	members []Trainable
}

// NewEnsemble validates member spaces and builds the ensemble.
func NewEnsemble(members ...Trainable) (*Ensemble, error) {
	if len(members) < 2 {
		return nil, fault.Validationf("reward ensemble needs at least 2 members, got %d", len(members))
	}
	first := members[0]
	for i, m := range members[1:] {
		if !m.ObservationSpace().Matches(first.ObservationSpace()) ||
			!m.ActionSpace().Matches(first.ActionSpace()) {
			return nil, fault.Validationf(
				"ensemble member %d spaces (%s, %s) do not match member 0 (%s, %s)",
				i+1, m.ObservationSpace(), m.ActionSpace(),
				first.ObservationSpace(), first.ActionSpace(),
			)
		}
	}
	return &Ensemble{members: members}, nil
}

func (e *Ensemble) ObservationSpace() env.Space { return e.members[0].ObservationSpace() }
func (e *Ensemble) ActionSpace() env.Space      { return e.members[0].ActionSpace() }

// NumMembers returns the ensemble size.
func (e *Ensemble) NumMembers() int { return len(e.members) }

// Member returns the i-th member model.
func (e *Ensemble) Member(i int) Trainable { return e.members[i] }

// #endregion ensemble

// #region predictions

// Rewards returns the member-mean reward per transition.
func (e *Ensemble) Rewards(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) []float64 {
	mean, _ := e.RewardStats(obs, acts, nextObs, dones)
	return mean
}

// MemberRewards returns per-member rewards, indexed [member][transition].
func (e *Ensemble) MemberRewards(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) [][]float64 {
	out := make([][]float64, len(e.members))
	for i, m := range e.members {
		out[i] = m.Rewards(obs, acts, nextObs, dones)
	}
	return out
}

// RewardStats returns the per-transition mean and standard deviation across
// members.
func (e *Ensemble) RewardStats(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) (mean, std []float64) {
	per := e.MemberRewards(obs, acts, nextObs, dones)
	n := len(acts)
	mean = make([]float64, n)
	std = make([]float64, n)
	sample := make([]float64, len(e.members))
	for t := 0; t < n; t++ {
		for m := range per {
			sample[m] = per[m][t]
		}
		mean[t], std[t] = stat.MeanStdDev(sample, nil)
	}
	return mean, std
}

// #endregion predictions
