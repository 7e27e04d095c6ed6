package trainer

import (
	"github.com/adaptiveml/prefloop/internal/dataset"
	"github.com/adaptiveml/prefloop/internal/preference"
)

// #region trainer

// RewardTrainer fits reward model parameters against the accumulated
// preference dataset.
type RewardTrainer interface {
	Train(ds *dataset.Dataset) (preference.Stats, error)
}

// Config holds the optimization knobs shared by the trainers.
type Config struct {
	// Epochs is the number of full passes per Train call.
	Epochs int
	// LearningRate scales gradient steps.
	LearningRate float64
	Seed         uint64
}

// DefaultConfig returns one full-batch pass per call.
func DefaultConfig() Config {
	return Config{Epochs: 1, LearningRate: 0.05, Seed: 0}
}

// #endregion trainer
