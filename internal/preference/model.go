package preference

import (
	"math"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region model-config

// ModelConfig holds the Bradley-Terry hyperparameters.
type ModelConfig struct {
	// NoiseProb is the probability mass reserved for random disagreement,
	// blended as p = noise*0.5 + (1-noise)*sigmoid(diff).
	NoiseProb float64
	// DiscountFactor down-weights later steps within a fragment; 1 means no
	// discounting.
	DiscountFactor float64
	// Threshold clamps return differences before the sigmoid for numerical
	// stability.
	Threshold float64
}

// DefaultModelConfig returns the hyperparameters used when none are given.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{NoiseProb: 0, DiscountFactor: 1, Threshold: 50}
}

func (c ModelConfig) validate() error {
	if c.NoiseProb < 0 || c.NoiseProb > 1 {
		return fault.Validationf("noise probability must lie in [0, 1], got %v", c.NoiseProb)
	}
	if c.DiscountFactor <= 0 || c.DiscountFactor > 1 {
		return fault.Validationf("discount factor must lie in (0, 1], got %v", c.DiscountFactor)
	}
	if c.Threshold <= 0 {
		return fault.Validationf("threshold must be positive, got %v", c.Threshold)
	}
	return nil
}

// #endregion model-config

// #region model

// Model maps fragment pairs to Bradley-Terry preference probabilities under
// a shared reward model. The reward model's relation to an ensemble is
// classified once at construction; call sites query IsEnsemble instead of
// inspecting types.
type Model struct {
	model    reward.Model
	kind     reward.Kind
	ensemble *reward.Ensemble
	cfg      ModelConfig
}

// NewModel classifies the reward model and validates hyperparameters. An
// ensemble behind anything but the std-bonus wrapper is rejected.
func NewModel(m reward.Model, cfg ModelConfig) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	kind, ensemble := reward.Classify(m)
	if kind == reward.KindInvalidWrap {
		return nil, fault.Validationf(
			"a reward ensemble can only be wrapped by a std-bonus wrapper but found %T", m,
		)
	}
	return &Model{model: m, kind: kind, ensemble: ensemble, cfg: cfg}, nil
}

// IsEnsemble reports whether the wrapped reward model is ensemble-backed.
func (m *Model) IsEnsemble() bool { return m.ensemble != nil }

// NumMembers returns the ensemble size, or 1 for plain models.
func (m *Model) NumMembers() int {
	if m.ensemble == nil {
		return 1
	}
	return m.ensemble.NumMembers()
}

// Kind returns the reward model classification.
func (m *Model) Kind() reward.Kind { return m.kind }

// RewardModel returns the wrapped reward model (shared, not copied).
func (m *Model) RewardModel() reward.Model { return m.model }

// Ensemble returns the underlying ensemble, or nil for plain models.
func (m *Model) Ensemble() *reward.Ensemble { return m.ensemble }

// Config returns the hyperparameters.
func (m *Model) Config() ModelConfig { return m.cfg }

// #endregion model

// #region forward

// Forward evaluates pairs under a single reward function and returns the
// preference probabilities alongside the raw (unclamped) return differences.
// member selects the ensemble member; pass member < 0 for plain models.
func (m *Model) Forward(pairs []trajectory.Pair, member int) (probs, diffs []float64, err error) {
	fn, err := m.memberModel(member)
	if err != nil {
		return nil, nil, err
	}

	probs = make([]float64, len(pairs))
	diffs = make([]float64, len(pairs))
	for i, p := range pairs {
		if err := p.Validate(); err != nil {
			return nil, nil, err
		}
		d := m.fragmentReturn(fn, p.Second) - m.fragmentReturn(fn, p.First)
		diffs[i] = d
		probs[i] = m.probability(d)
	}
	return probs, diffs, nil
}

// ForwardAll evaluates every ensemble member, returning probabilities and raw
// differences indexed [pair][member].
func (m *Model) ForwardAll(pairs []trajectory.Pair) (probs, diffs [][]float64, err error) {
	if !m.IsEnsemble() {
		return nil, nil, fault.Validationf("per-member forward requires an ensemble-backed preference model")
	}

	probs = make([][]float64, len(pairs))
	diffs = make([][]float64, len(pairs))
	for i := range pairs {
		probs[i] = make([]float64, m.NumMembers())
		diffs[i] = make([]float64, m.NumMembers())
	}
	for j := 0; j < m.NumMembers(); j++ {
		p, d, err := m.Forward(pairs, j)
		if err != nil {
			return nil, nil, err
		}
		for i := range pairs {
			probs[i][j] = p[i]
			diffs[i][j] = d[i]
		}
	}
	return probs, diffs, nil
}

func (m *Model) memberModel(member int) (reward.Model, error) {
	if m.IsEnsemble() {
		if member < 0 {
			return nil, fault.Validationf("ensemble member index required for ensemble models")
		}
		if member >= m.ensemble.NumMembers() {
			return nil, fault.Validationf(
				"ensemble member index %d out of range for %d members", member, m.ensemble.NumMembers(),
			)
		}
		return m.ensemble.Member(member), nil
	}
	if member >= 0 {
		return nil, fault.Validationf("ensemble member index %d given for a plain reward model", member)
	}
	return m.model, nil
}

// fragmentReturn sums discounted model rewards over a fragment.
func (m *Model) fragmentReturn(fn reward.Model, f trajectory.Fragment) float64 {
	obs, acts, nextObs, dones := fragmentBatch(f)
	rews := fn.Rewards(obs, acts, nextObs, dones)

	total := 0.0
	weight := 1.0
	for _, r := range rews {
		total += weight * r
		weight *= m.cfg.DiscountFactor
	}
	return total
}

// probability applies clamp-then-sigmoid and the noise floor.
func (m *Model) probability(diff float64) float64 {
	clamped := math.Max(-m.cfg.Threshold, math.Min(m.cfg.Threshold, diff))
	s := sigmoid(clamped)
	return m.cfg.NoiseProb*0.5 + (1-m.cfg.NoiseProb)*s
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// fragmentBatch lays a fragment out as a transition batch. The done flag is
// set only on the last transition of a terminal fragment.
func fragmentBatch(f trajectory.Fragment) (obs [][]float64, acts []int, nextObs [][]float64, dones []bool) {
	n := f.Len()
	obs = f.Obs[:n]
	nextObs = f.Obs[1:]
	acts = f.Acts
	dones = make([]bool, n)
	if n > 0 {
		dones[n-1] = f.Terminal
	}
	return obs, acts, nextObs, dones
}

// #endregion forward
