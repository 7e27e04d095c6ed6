package gatherer

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region synthetic-config

// SyntheticConfig parameterizes the ground-truth preference oracle.
type SyntheticConfig struct {
	// Temperature scales the return difference before the sigmoid. Zero
	// yields hard deterministic preferences with ties at 0.5.
	Temperature float64
	// DiscountFactor discounts rewards within a fragment, matching the
	// preference model's discounting contract.
	DiscountFactor float64
	// Threshold clamps scaled return differences before the sigmoid.
	Threshold float64
	// SampleLabels draws Bernoulli 0/1 labels from the computed
	// probabilities instead of returning the probabilities themselves.
	// Ignored when Temperature is zero.
	SampleLabels bool
	Seed         uint64
}

// DefaultSyntheticConfig returns the oracle used when none is given.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Temperature:    1,
		DiscountFactor: 1,
		Threshold:      50,
		SampleLabels:   true,
	}
}

// #endregion synthetic-config

// #region synthetic

// Synthetic computes preferences from the fragments' own ground-truth reward
// fields via a temperature-scaled Bradley-Terry model.
type Synthetic struct {
	cfg SyntheticConfig
	rng *rand.Rand
}

// NewSynthetic validates the configuration and seeds the label stream.
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	if cfg.Temperature < 0 {
		return nil, fault.Validationf("temperature must be non-negative, got %v", cfg.Temperature)
	}
	if cfg.DiscountFactor <= 0 || cfg.DiscountFactor > 1 {
		return nil, fault.Validationf("discount factor must lie in (0, 1], got %v", cfg.DiscountFactor)
	}
	if cfg.Threshold <= 0 {
		return nil, fault.Validationf("threshold must be positive, got %v", cfg.Threshold)
	}
	return &Synthetic{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x94d049bb133111eb)),
	}, nil
}

// Gather scores every pair by discounted ground-truth return difference.
func (s *Synthetic) Gather(pairs []trajectory.Pair) ([]float32, error) {
	prefs := make([]float32, len(pairs))
	for i, p := range pairs {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if !p.First.Finite() || !p.Second.Finite() {
			return nil, fault.Validationf("fragment pair %d carries non-finite rewards", i)
		}

		diff := p.Second.DiscountedReturn(s.cfg.DiscountFactor) -
			p.First.DiscountedReturn(s.cfg.DiscountFactor)

		if s.cfg.Temperature == 0 {
			prefs[i] = hardPreference(diff)
			continue
		}

		scaled := diff / s.cfg.Temperature
		scaled = math.Max(-s.cfg.Threshold, math.Min(s.cfg.Threshold, scaled))
		prob := 1 / (1 + math.Exp(-scaled))
		if s.cfg.SampleLabels {
			bern := distuv.Bernoulli{P: prob, Src: s.rng}
			prefs[i] = float32(bern.Rand())
		} else {
			prefs[i] = float32(prob)
		}
	}
	return prefs, nil
}

// hardPreference puts all mass on the higher-return fragment, with ties
// resolved to indifference.
func hardPreference(diff float64) float32 {
	switch {
	case diff > 0:
		return 1
	case diff < 0:
		return 0
	default:
		return 0.5
	}
}

// #endregion synthetic
