package trainer

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/adaptiveml/prefloop/internal/dataset"
	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/preference"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region basic-trainer

// Basic fits a single reward model by full-batch gradient descent on the
// preference cross-entropy. Ensemble-backed preference models must use the
// ensemble trainer instead.
type Basic struct {
	model  reward.Trainable
	loss   *preference.CrossEntropyLoss
	cfg    Config
	logger *zap.Logger
}

// NewBasic wires the trainer, rejecting ensemble-backed preference models.
func NewBasic(loss *preference.CrossEntropyLoss, cfg Config, logger *zap.Logger) (*Basic, error) {
	if loss.Model().IsEnsemble() {
		return nil, fault.Wiringf(
			"basic reward trainer cannot fit ensemble-backed preference models; got %T, use the ensemble trainer",
			loss.Model().RewardModel(),
		)
	}
	m := loss.Model().RewardModel()
	trainable, ok := m.(reward.Trainable)
	if !ok {
		return nil, fault.Wiringf("reward model %T is not trainable", m)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Basic{model: trainable, loss: loss, cfg: cfg, logger: logger}, nil
}

// Train runs the configured number of full-batch passes over the dataset and
// returns the final loss and accuracy.
func (t *Basic) Train(ds *dataset.Dataset) (preference.Stats, error) {
	pairs, prefs, err := unpack(ds)
	if err != nil {
		return preference.Stats{}, err
	}

	var stats preference.Stats
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		t.model.ZeroGrad()
		stats, err = t.loss.Backward(pairs, prefs, -1)
		if err != nil {
			return preference.Stats{}, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		t.model.Step(t.cfg.LearningRate)
	}

	t.logger.Debug("reward training pass",
		zap.Int("samples", len(pairs)),
		zap.Float64("loss", stats.Loss),
		zap.Float64("accuracy", stats.Accuracy),
	)
	return stats, nil
}

// #endregion basic-trainer

// #region helpers

func validateConfig(cfg Config) error {
	if cfg.Epochs < 1 {
		return fault.Validationf("trainer epochs must be positive, got %d", cfg.Epochs)
	}
	if cfg.LearningRate <= 0 {
		return fault.Validationf("learning rate must be positive, got %v", cfg.LearningRate)
	}
	return nil
}

func unpack(ds *dataset.Dataset) ([]trajectory.Pair, []float32, error) {
	if ds.Len() == 0 {
		return nil, nil, fault.Validationf("cannot train on an empty preference dataset")
	}
	pairs := make([]trajectory.Pair, ds.Len())
	prefs := make([]float32, ds.Len())
	for i, s := range ds.Samples() {
		pairs[i] = s.Pair
		prefs[i] = s.Preference
	}
	return pairs, prefs, nil
}

// #endregion helpers
