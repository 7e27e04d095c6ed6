package comparisons

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/adaptiveml/prefloop/internal/dataset"
	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/fragmenter"
	"github.com/adaptiveml/prefloop/internal/gatherer"
	"github.com/adaptiveml/prefloop/internal/generator"
	"github.com/adaptiveml/prefloop/internal/metrics"
	"github.com/adaptiveml/prefloop/internal/preference"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trainer"
)

// #region config

// Config parameterizes the iterated preference-comparison loop.
type Config struct {
	// NumIterations is the number of collect/gather/fit rounds.
	NumIterations int
	// FragmentLength is the transition count per compared fragment.
	FragmentLength int
	// TransitionOversampling scales how many extra transitions are sampled
	// beyond the minimum needed for this iteration's fragment pairs.
	TransitionOversampling float64
	// QuerySchedule names how the comparison budget spreads over
	// iterations. Ignored when CustomSchedule is set.
	QuerySchedule string
	// CustomSchedule overrides QuerySchedule with an arbitrary weighting.
	CustomSchedule Schedule
	Seed           uint64
}

// DefaultConfig mirrors the defaults used across the test-suite and CLI.
func DefaultConfig() Config {
	return Config{
		NumIterations:          5,
		FragmentLength:         50,
		TransitionOversampling: 1.5,
		QuerySchedule:          ScheduleConstant,
	}
}

// Deps carries optional collaborators; nil fields get defaults derived from
// the reward model and config.
type Deps struct {
	Fragmenter      fragmenter.Fragmenter
	Gatherer        gatherer.Gatherer
	PreferenceModel *preference.Model
	RewardTrainer   trainer.RewardTrainer
	Dataset         *dataset.Dataset
	Sink            metrics.Sink
	Logger          *zap.Logger
}

// Result reports the final iteration's reward-model fit.
type Result struct {
	RewardLoss     float64
	RewardAccuracy float64
}

// #endregion config

// #region orchestrator

// PreferenceComparisons drives the iterated reward-learning loop: train the
// agent, sample trajectory fragments, gather preferences, grow the dataset,
// fit the reward model. One phase fully completes before the next begins.
type PreferenceComparisons struct {
	gen        generator.TrajectoryGenerator
	model      reward.Model
	prefModel  *preference.Model
	fragmenter fragmenter.Fragmenter
	gatherer   gatherer.Gatherer
	trainer    trainer.RewardTrainer
	ds         *dataset.Dataset
	schedule   Schedule
	cfg        Config
	sink       metrics.Sink
	logger     *zap.Logger
}

// New wires the loop. The reward model's ensemble relationship is validated
// once here; the matching reward trainer is chosen automatically unless one
// is supplied.
func New(gen generator.TrajectoryGenerator, model reward.Model, cfg Config, deps Deps) (*PreferenceComparisons, error) {
	if cfg.NumIterations < 1 {
		return nil, fault.Validationf("number of iterations must be positive, got %d", cfg.NumIterations)
	}
	if cfg.FragmentLength < 1 {
		return nil, fault.Validationf("fragment length must be positive, got %d", cfg.FragmentLength)
	}
	if cfg.TransitionOversampling < 1 {
		return nil, fault.Validationf("transition oversampling must be at least 1, got %v", cfg.TransitionOversampling)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prefModel := deps.PreferenceModel
	if prefModel == nil {
		var err error
		prefModel, err = preference.NewModel(model, preference.DefaultModelConfig())
		if err != nil {
			return nil, err
		}
	} else if prefModel.RewardModel() != model {
		return nil, fault.Wiringf(
			"preference model wraps a different reward model (%T) than the loop trains (%T)",
			prefModel.RewardModel(), model,
		)
	}

	schedule := cfg.CustomSchedule
	if schedule == nil {
		name := cfg.QuerySchedule
		if name == "" {
			name = ScheduleConstant
		}
		var err error
		schedule, err = ScheduleByName(name)
		if err != nil {
			return nil, err
		}
	}

	frag := deps.Fragmenter
	if frag == nil {
		frag = fragmenter.NewRandom(cfg.Seed, 10, logger)
	}

	gath := deps.Gatherer
	if gath == nil {
		syntheticCfg := gatherer.DefaultSyntheticConfig()
		syntheticCfg.Seed = cfg.Seed
		var err error
		gath, err = gatherer.NewSynthetic(syntheticCfg)
		if err != nil {
			return nil, err
		}
	}

	ds := deps.Dataset
	if ds == nil {
		var err error
		ds, err = dataset.New(0)
		if err != nil {
			return nil, err
		}
	}

	rt := deps.RewardTrainer
	if rt == nil {
		var err error
		rt, err = defaultTrainer(prefModel, cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	sink := deps.Sink
	if sink == nil {
		sink = metrics.NewZapSink(logger)
	}

	return &PreferenceComparisons{
		gen:        gen,
		model:      model,
		prefModel:  prefModel,
		fragmenter: frag,
		gatherer:   gath,
		trainer:    rt,
		ds:         ds,
		schedule:   schedule,
		cfg:        cfg,
		sink:       sink,
		logger:     logger,
	}, nil
}

// defaultTrainer picks the ensemble trainer for ensemble-backed preference
// models and the basic trainer otherwise.
func defaultTrainer(pm *preference.Model, cfg Config, logger *zap.Logger) (trainer.RewardTrainer, error) {
	loss := preference.NewCrossEntropyLoss(pm)
	tcfg := trainer.DefaultConfig()
	tcfg.Seed = cfg.Seed
	if pm.IsEnsemble() {
		return trainer.NewEnsemble(pm.Ensemble(), loss, tcfg, logger)
	}
	return trainer.NewBasic(loss, tcfg, logger)
}

// RewardTrainer returns the wired reward trainer.
func (p *PreferenceComparisons) RewardTrainer() trainer.RewardTrainer { return p.trainer }

// Dataset returns the preference store backing the loop.
func (p *PreferenceComparisons) Dataset() *dataset.Dataset { return p.ds }

// #endregion orchestrator

// #region train

// Train runs the full loop: totalTimesteps of agent training spread evenly
// across iterations, and totalComparisons of preference queries spread per
// the query schedule. Returns the final iteration's fit statistics.
func (p *PreferenceComparisons) Train(totalTimesteps, totalComparisons int) (Result, error) {
	if totalTimesteps < p.cfg.NumIterations {
		return Result{}, fault.Validationf(
			"total timesteps %d below one step per iteration (%d iterations)",
			totalTimesteps, p.cfg.NumIterations,
		)
	}

	queries, err := AllocateQueries(p.schedule, totalComparisons, p.cfg.NumIterations)
	if err != nil {
		return Result{}, err
	}
	stepsPerIter := totalTimesteps / p.cfg.NumIterations

	var result Result
	for i := 0; i < p.cfg.NumIterations; i++ {
		p.logger.Info("preference comparison iteration",
			zap.Int("iteration", i),
			zap.Int("queries", queries[i]),
			zap.Int("agent_steps", stepsPerIter),
		)

		if err := p.gen.Train(stepsPerIter); err != nil {
			return Result{}, fmt.Errorf("iteration %d: agent training: %w", i, err)
		}

		if err := p.collect(queries[i]); err != nil {
			return Result{}, fmt.Errorf("iteration %d: %w", i, err)
		}

		if p.ds.Len() == 0 {
			continue
		}
		stats, err := p.trainer.Train(p.ds)
		if err != nil {
			return Result{}, fmt.Errorf("iteration %d: reward training: %w", i, err)
		}
		result = Result{RewardLoss: stats.Loss, RewardAccuracy: stats.Accuracy}

		p.sink.Record("reward_loss", stats.Loss)
		p.sink.Record("reward_accuracy", stats.Accuracy)
		p.sink.Record("queries", float64(queries[i]))
		p.sink.Record("dataset_size", float64(p.ds.Len()))
		p.sink.Record("agent_steps", float64(stepsPerIter))
		p.sink.Dump(i)
	}

	return result, nil
}

// collect runs one iteration's sample, fragment, gather, push phase. The
// sample call always runs, even for zero-query iterations, so the rollout
// buffer filled by this iteration's agent training is drained before the
// next training round.
func (p *PreferenceComparisons) collect(numPairs int) error {
	steps := int(math.Ceil(
		p.cfg.TransitionOversampling * float64(2*numPairs*p.cfg.FragmentLength),
	))
	trajs, err := p.gen.Sample(steps)
	if err != nil {
		return fmt.Errorf("sampling trajectories: %w", err)
	}
	if numPairs == 0 {
		return nil
	}

	pairs, err := p.fragmenter.Fragment(trajs, p.cfg.FragmentLength, numPairs)
	if err != nil {
		return fmt.Errorf("fragmenting: %w", err)
	}

	prefs, err := p.gatherer.Gather(pairs)
	if err != nil {
		return fmt.Errorf("gathering preferences: %w", err)
	}

	if err := p.ds.Push(pairs, prefs); err != nil {
		return fmt.Errorf("updating dataset: %w", err)
	}
	return nil
}

// #endregion train
