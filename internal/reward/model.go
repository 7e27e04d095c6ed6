package reward

import "github.com/adaptiveml/prefloop/internal/env"

// #region model

// Model is the scalar reward capability consumed by the learning loop: it
// scores batches of (obs, act, next_obs, done) transitions.
type Model interface {
	ObservationSpace() env.Space
	ActionSpace() env.Space
	Rewards(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) []float64
}

// Trainable is a Model whose parameters can be fit by gradient descent.
// Callers accumulate upstream-weighted gradients transition by transition and
// then apply one step.
type Trainable interface {
	Model
	// ZeroGrad clears accumulated gradients.
	ZeroGrad()
	// Accumulate adds upstream[i] times the reward gradient of transition i
	// to the accumulated parameter gradients.
	Accumulate(obs [][]float64, acts []int, nextObs [][]float64, dones []bool, upstream []float64)
	// Step descends along the accumulated gradients scaled by lr.
	Step(lr float64)
}

// Wrapper is implemented by reward models that decorate another model.
type Wrapper interface {
	Model
	Base() Model
}

// #endregion model
