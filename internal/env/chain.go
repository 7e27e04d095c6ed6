package env

import (
	"math/rand/v2"

	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region chain-config

// ChainConfig parameterizes the synthetic chain environment.
type ChainConfig struct {
	Length  int    // number of positions; terminal at the right end
	Horizon int    // steps before truncation
	NumEnvs int    // vectorized copies
	Seed    uint64 // start-position randomization
}

// DefaultChainConfig returns the configuration used by the CLI and tests.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{Length: 5, Horizon: 20, NumEnvs: 2, Seed: 0}
}

// #endregion chain-config

// #region chain-env

// ChainEnv is a deterministic 1-D chain: the agent starts near the left end
// and moves left (action 0) or right (action 1). Reaching the right end pays
// +1 and terminates; every other step pays a small negative cost. Episodes
// hitting the horizon truncate without a terminal flag.
type ChainEnv struct {
	cfg     ChainConfig
	rng     *rand.Rand
	pos     []int
	elapsed []int
	started bool
}

// NewChain validates the configuration and builds the environment.
func NewChain(cfg ChainConfig) (*ChainEnv, error) {
	if cfg.Length < 2 {
		return nil, fault.Validationf("chain length must be at least 2, got %d", cfg.Length)
	}
	if cfg.Horizon < 1 {
		return nil, fault.Validationf("chain horizon must be positive, got %d", cfg.Horizon)
	}
	if cfg.NumEnvs < 1 {
		return nil, fault.Validationf("chain needs at least one sub-environment, got %d", cfg.NumEnvs)
	}
	return &ChainEnv{
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		pos:     make([]int, cfg.NumEnvs),
		elapsed: make([]int, cfg.NumEnvs),
	}, nil
}

func (c *ChainEnv) NumEnvs() int            { return c.cfg.NumEnvs }
func (c *ChainEnv) ObservationSpace() Space { return Space{Dim: c.cfg.Length} }
func (c *ChainEnv) ActionSpace() Space      { return Space{N: 2} }

// Reset restarts every sub-environment.
func (c *ChainEnv) Reset() [][]float64 {
	obs := make([][]float64, c.cfg.NumEnvs)
	for i := range c.pos {
		c.resetEnv(i)
		obs[i] = c.observe(i)
	}
	c.started = true
	return obs
}

// Step advances all sub-environments; finished ones auto-reset and surface
// the terminal observation through Info.
func (c *ChainEnv) Step(acts []int) ([][]float64, []float64, []bool, []Info) {
	if !c.started {
		c.Reset()
	}

	n := c.cfg.NumEnvs
	obs := make([][]float64, n)
	rews := make([]float64, n)
	dones := make([]bool, n)
	infos := make([]Info, n)

	for i, a := range acts {
		if a == 1 {
			c.pos[i]++
		} else if c.pos[i] > 0 {
			c.pos[i]--
		}
		c.elapsed[i]++

		switch {
		case c.pos[i] >= c.cfg.Length-1:
			rews[i] = 1
			dones[i] = true
			infos[i] = Info{TerminalObs: c.observe(i)}
		case c.elapsed[i] >= c.cfg.Horizon:
			rews[i] = -0.01
			dones[i] = true
			infos[i] = Info{TerminalObs: c.observe(i), Truncated: true}
		default:
			rews[i] = -0.01
		}

		if dones[i] {
			c.resetEnv(i)
		}
		obs[i] = c.observe(i)
	}

	return obs, rews, dones, infos
}

func (c *ChainEnv) resetEnv(i int) {
	// Start in the left half so episodes have room to run.
	c.pos[i] = c.rng.IntN(c.cfg.Length / 2)
	c.elapsed[i] = 0
}

func (c *ChainEnv) observe(i int) []float64 {
	obs := make([]float64, c.cfg.Length)
	obs[c.pos[i]] = 1
	return obs
}

// #endregion chain-env
