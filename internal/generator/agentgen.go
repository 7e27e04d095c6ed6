package generator

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/adaptiveml/prefloop/internal/agent"
	"github.com/adaptiveml/prefloop/internal/env"
	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region agent-config

// AgentConfig parameterizes the agent-driven generator.
type AgentConfig struct {
	// ExplorationFrac is the fraction of rollout steps driven by a
	// uniform-random policy instead of the agent's, to keep state coverage.
	ExplorationFrac float64
	Seed            uint64
}

// DefaultAgentConfig returns a configuration with no exploration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{ExplorationFrac: 0, Seed: 0}
}

// #endregion agent-config

// #region agent-generator

// AgentGenerator collects trajectories from a live agent-environment loop.
// The environment is wrapped twice: a buffer wrapper next to the raw
// environment records true transitions, and a relabel wrapper outside it
// feeds the agent rewards from the learned reward model.
type AgentGenerator struct {
	agent  agent.Agent
	model  reward.Model
	buffer *env.BufferWrapper
	venv   env.VecEnv // outermost wrapper: what rollouts step through
	cfg    AgentConfig
	rng    *rand.Rand
	logger *zap.Logger
}

// NewAgentGenerator validates spaces, wraps the environment and rewires the
// agent onto the wrapped view.
func NewAgentGenerator(a agent.Agent, model reward.Model, venv env.VecEnv, cfg AgentConfig, logger *zap.Logger) (*AgentGenerator, error) {
	if !model.ObservationSpace().Matches(venv.ObservationSpace()) ||
		!model.ActionSpace().Matches(venv.ActionSpace()) {
		return nil, fault.Validationf(
			"spaces do not match: reward model (%s, %s) vs environment (%s, %s)",
			model.ObservationSpace(), model.ActionSpace(),
			venv.ObservationSpace(), venv.ActionSpace(),
		)
	}
	if cfg.ExplorationFrac < 0 || cfg.ExplorationFrac > 1 {
		return nil, fault.Validationf("exploration fraction must lie in [0, 1], got %v", cfg.ExplorationFrac)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	buffer := env.NewBuffer(venv)
	relabeled := env.NewRelabel(buffer, model.Rewards)
	a.SetEnv(relabeled)

	return &AgentGenerator{
		agent:  a,
		model:  model,
		buffer: buffer,
		venv:   relabeled,
		cfg:    cfg,
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xc4ceb9fe1a85ec53)),
		logger: logger,
	}, nil
}

// #endregion agent-generator

// #region train

// Train runs the agent's learning update for steps environment steps.
// Refuses to run while undrained transitions sit in the rollout buffer, so
// experience is neither lost nor double-counted.
func (g *AgentGenerator) Train(steps int) error {
	if n := g.buffer.Pending(); n > 0 {
		return fault.Consistencyf(
			"there are %d transitions left in the buffer; call Sample first to clear them", n,
		)
	}

	explore := int(float64(steps) * g.cfg.ExplorationFrac)
	if learn := steps - explore; learn > 0 {
		if err := g.agent.Learn(learn); err != nil {
			return fmt.Errorf("agent learn: %w", err)
		}
	}
	if explore > 0 {
		g.rollout(explore, 1.0)
	}
	return nil
}

// #endregion train

// #region sample

// Sample drains the rollout buffer and returns the most recent trajectories
// covering steps transitions. When the buffer falls short it tops up with
// fresh policy rollouts (exploration fraction applied) before returning.
func (g *AgentGenerator) Sample(steps int) ([]trajectory.Trajectory, error) {
	trajs := g.buffer.Drain()
	for trajectory.TotalSteps(trajs) < steps {
		missing := steps - trajectory.TotalSteps(trajs)
		g.logger.Debug("rollout buffer short of requested steps, topping up",
			zap.Int("missing", missing))
		g.rollout(missing, g.cfg.ExplorationFrac)
		trajs = append(trajs, g.buffer.Drain()...)
	}

	// Keep the most recent trajectories whose cumulative length covers the
	// request, preserving collection order.
	covered := 0
	cut := len(trajs)
	for cut > 0 && covered < steps {
		cut--
		covered += trajs[cut].Len()
	}
	return trajs[cut:], nil
}

// rollout steps the wrapped environment for about n transitions, choosing
// random actions for randomFrac of the steps and the agent's otherwise.
func (g *AgentGenerator) rollout(n int, randomFrac float64) {
	obs := g.venv.Reset()
	for taken := 0; taken < n; taken += g.venv.NumEnvs() {
		var acts []int
		if g.rng.Float64() < randomFrac {
			acts = make([]int, len(obs))
			for i := range acts {
				acts[i] = g.rng.IntN(g.venv.ActionSpace().N)
			}
		} else {
			acts = g.agent.Act(obs)
		}
		obs, _, _, _ = g.venv.Step(acts)
	}
}

// #endregion sample
