package agent

import (
	"math/rand/v2"

	"github.com/adaptiveml/prefloop/internal/env"
	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region agent

// Agent is the reinforcement-learning trainer capability. The preference loop
// only needs an agent that improves itself through its environment and can
// act on observations; the optimization algorithm behind Learn is opaque.
type Agent interface {
	// SetEnv points the agent at (a wrapped view of) its environment.
	SetEnv(e env.VecEnv)
	// Learn runs the agent's own rollout-and-update loop for about n
	// environment steps.
	Learn(steps int) error
	// Act picks one action per sub-environment for a batch of observations.
	Act(obs [][]float64) []int
}

// #endregion agent

// #region random

// Random is a uniform-random reference agent. It never improves, but it
// drives rollouts through the wrapped environment, which is all the
// preference loop structurally requires of an agent.
type Random struct {
	env env.VecEnv
	rng *rand.Rand
}

// NewRandom builds a random agent with its own seeded RNG stream.
func NewRandom(seed uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))}
}

// SetEnv points the agent at its environment.
func (a *Random) SetEnv(e env.VecEnv) { a.env = e }

// Learn steps the environment with random actions for about n steps.
func (a *Random) Learn(steps int) error {
	if a.env == nil {
		return fault.Consistencyf("agent has no environment; call SetEnv first")
	}
	obs := a.env.Reset()
	for taken := 0; taken < steps; taken += a.env.NumEnvs() {
		obs, _, _, _ = a.env.Step(a.Act(obs))
	}
	return nil
}

// Act returns one uniform-random action per observation.
func (a *Random) Act(obs [][]float64) []int {
	acts := make([]int, len(obs))
	for i := range acts {
		acts[i] = a.rng.IntN(a.env.ActionSpace().N)
	}
	return acts
}

// #endregion random
