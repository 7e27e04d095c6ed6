package trainer

import (
	"fmt"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/adaptiveml/prefloop/internal/dataset"
	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/preference"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region ensemble-trainer

// Ensemble fits each member of a reward ensemble on an independent bootstrap
// resample of the batch, so members decorrelate and their disagreement stays
// a useful uncertainty signal.
type Ensemble struct {
	ensemble *reward.Ensemble
	loss     *preference.CrossEntropyLoss
	cfg      Config
	rng      *rand.Rand
	logger   *zap.Logger
}

// NewEnsemble wires the trainer. The reward model must literally be an
// ensemble, not merely ensemble-backed through a wrapper.
func NewEnsemble(model reward.Model, loss *preference.CrossEntropyLoss, cfg Config, logger *zap.Logger) (*Ensemble, error) {
	ens, ok := model.(*reward.Ensemble)
	if !ok {
		return nil, fault.Wiringf("reward ensemble expected by the ensemble trainer, not %T", model)
	}
	if !loss.Model().IsEnsemble() {
		return nil, fault.Wiringf(
			"ensemble trainer needs an ensemble-backed preference model; got %T",
			loss.Model().RewardModel(),
		)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{
		ensemble: ens,
		loss:     loss,
		cfg:      cfg,
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0xbf58476d1ce4e5b9)),
		logger:   logger,
	}, nil
}

// Train fits every member on its own with-replacement resample and returns
// member-mean loss and accuracy on the full batch.
func (t *Ensemble) Train(ds *dataset.Dataset) (preference.Stats, error) {
	pairs, prefs, err := unpack(ds)
	if err != nil {
		return preference.Stats{}, err
	}

	for m := 0; m < t.ensemble.NumMembers(); m++ {
		bootPairs, bootPrefs := t.resample(pairs, prefs)
		member := t.ensemble.Member(m)
		for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
			member.ZeroGrad()
			if _, err := t.loss.Backward(bootPairs, bootPrefs, m); err != nil {
				return preference.Stats{}, fmt.Errorf("member %d epoch %d: %w", m, epoch, err)
			}
			member.Step(t.cfg.LearningRate)
		}
	}

	// Report member-mean statistics on the unresampled batch.
	var stats preference.Stats
	for m := 0; m < t.ensemble.NumMembers(); m++ {
		s, err := t.loss.Forward(pairs, prefs, m)
		if err != nil {
			return preference.Stats{}, fmt.Errorf("member %d stats: %w", m, err)
		}
		stats.Loss += s.Loss
		stats.Accuracy += s.Accuracy
	}
	n := float64(t.ensemble.NumMembers())
	stats.Loss /= n
	stats.Accuracy /= n

	t.logger.Debug("ensemble training pass",
		zap.Int("samples", len(pairs)),
		zap.Int("members", t.ensemble.NumMembers()),
		zap.Float64("loss", stats.Loss),
		zap.Float64("accuracy", stats.Accuracy),
	)
	return stats, nil
}

// resample draws len(pairs) samples with replacement.
func (t *Ensemble) resample(pairs []trajectory.Pair, prefs []float32) ([]trajectory.Pair, []float32) {
	n := len(pairs)
	outPairs := make([]trajectory.Pair, n)
	outPrefs := make([]float32, n)
	for i := 0; i < n; i++ {
		j := t.rng.IntN(n)
		outPairs[i] = pairs[j]
		outPrefs[i] = prefs[j]
	}
	return outPairs, outPrefs
}

// #endregion ensemble-trainer
