package reward

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"

	"github.com/adaptiveml/prefloop/internal/env"
	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region linear-model

// LinearModel scores transitions as a linear function of a fixed feature
// map: current observation, one-hot action, next observation, done flag and a
// bias term.
type LinearModel struct {
	obsSpace env.Space
	actSpace env.Space
	weights  []float64
	grad     []float64
}

// NewLinear builds a linear reward model with small seeded random weights.
func NewLinear(obsSpace, actSpace env.Space, seed uint64) (*LinearModel, error) {
	if obsSpace.Dim < 1 {
		return nil, fault.Validationf("linear reward model needs a vector observation space, got %s", obsSpace)
	}
	if actSpace.N < 1 {
		return nil, fault.Validationf("linear reward model needs a discrete action space, got %s", actSpace)
	}

	dim := 2*obsSpace.Dim + actSpace.N + 2
	rng := rand.New(rand.NewPCG(seed, seed^0x6c62272e07bb0142))
	weights := make([]float64, dim)
	for i := range weights {
		weights[i] = 0.1 * (rng.Float64()*2 - 1)
	}

	return &LinearModel{
		obsSpace: obsSpace,
		actSpace: actSpace,
		weights:  weights,
		grad:     make([]float64, dim),
	}, nil
}

func (m *LinearModel) ObservationSpace() env.Space { return m.obsSpace }
func (m *LinearModel) ActionSpace() env.Space      { return m.actSpace }

// Weights returns the parameter vector (shared, not copied).
func (m *LinearModel) Weights() []float64 { return m.weights }

// #endregion linear-model

// #region forward

// Rewards scores a batch of transitions.
func (m *LinearModel) Rewards(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) []float64 {
	out := make([]float64, len(acts))
	feat := make([]float64, len(m.weights))
	for i := range acts {
		m.features(feat, obs[i], acts[i], nextObs[i], dones[i])
		out[i] = floats.Dot(m.weights, feat)
	}
	return out
}

func (m *LinearModel) features(dst []float64, obs []float64, act int, nextObs []float64, done bool) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, obs)
	dst[m.obsSpace.Dim+act] = 1
	copy(dst[m.obsSpace.Dim+m.actSpace.N:], nextObs)
	if done {
		dst[len(dst)-2] = 1
	}
	dst[len(dst)-1] = 1
}

// #endregion forward

// #region backward

// ZeroGrad clears the accumulated gradient.
func (m *LinearModel) ZeroGrad() {
	for i := range m.grad {
		m.grad[i] = 0
	}
}

// Accumulate adds upstream-weighted feature vectors to the gradient. For a
// linear model the reward gradient of a transition is its feature vector.
func (m *LinearModel) Accumulate(obs [][]float64, acts []int, nextObs [][]float64, dones []bool, upstream []float64) {
	feat := make([]float64, len(m.weights))
	for i := range acts {
		if upstream[i] == 0 {
			continue
		}
		m.features(feat, obs[i], acts[i], nextObs[i], dones[i])
		floats.AddScaled(m.grad, upstream[i], feat)
	}
}

// Step descends along the accumulated gradient.
func (m *LinearModel) Step(lr float64) {
	floats.AddScaled(m.weights, -lr, m.grad)
}

// #endregion backward
