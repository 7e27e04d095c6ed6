package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adaptiveml/prefloop/internal/agent"
	"github.com/adaptiveml/prefloop/internal/comparisons"
	"github.com/adaptiveml/prefloop/internal/config"
	"github.com/adaptiveml/prefloop/internal/dataset"
	"github.com/adaptiveml/prefloop/internal/env"
	"github.com/adaptiveml/prefloop/internal/fragmenter"
	"github.com/adaptiveml/prefloop/internal/gatherer"
	"github.com/adaptiveml/prefloop/internal/generator"
	"github.com/adaptiveml/prefloop/internal/preference"
	"github.com/adaptiveml/prefloop/internal/reward"
	"github.com/adaptiveml/prefloop/internal/trainer"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	snapshot := flag.String("snapshot", "", "override the dataset snapshot path")
	seed := flag.Uint64("seed", 0, "override the config seed (0 keeps the config value)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *snapshot != "" {
		cfg.Dataset.SnapshotPath = *snapshot
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	if parsed == zapcore.DebugLevel {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(parsed)
	return zcfg.Build()
}

// #endregion main

// #region wiring

func run(cfg config.Config, logger *zap.Logger) error {
	venv, err := env.NewChain(env.ChainConfig{
		Length:  cfg.Env.Length,
		Horizon: cfg.Env.Horizon,
		NumEnvs: cfg.Env.NumEnvs,
		Seed:    cfg.Seed,
	})
	if err != nil {
		return fmt.Errorf("building environment: %w", err)
	}

	model, err := buildRewardModel(cfg, venv)
	if err != nil {
		return fmt.Errorf("building reward model: %w", err)
	}

	prefModel, err := preference.NewModel(model, preference.DefaultModelConfig())
	if err != nil {
		return err
	}

	gen, err := generator.NewAgentGenerator(
		agent.NewRandom(cfg.Seed),
		model,
		venv,
		generator.AgentConfig{ExplorationFrac: cfg.Loop.ExplorationFrac, Seed: cfg.Seed},
		logger,
	)
	if err != nil {
		return fmt.Errorf("building trajectory generator: %w", err)
	}

	frag, err := buildFragmenter(cfg, prefModel, logger)
	if err != nil {
		return err
	}

	gath, err := gatherer.NewSynthetic(gatherer.SyntheticConfig{
		Temperature:    cfg.Gatherer.Temperature,
		DiscountFactor: cfg.Gatherer.DiscountFactor,
		Threshold:      gatherer.DefaultSyntheticConfig().Threshold,
		SampleLabels:   cfg.Gatherer.SampleLabels,
		Seed:           cfg.Seed,
	})
	if err != nil {
		return err
	}

	ds, err := dataset.New(cfg.Dataset.MaxSize)
	if err != nil {
		return err
	}

	rt, err := buildTrainer(cfg, prefModel, logger)
	if err != nil {
		return err
	}

	loop, err := comparisons.New(gen, model, comparisons.Config{
		NumIterations:          cfg.Loop.NumIterations,
		FragmentLength:         cfg.Loop.FragmentLength,
		TransitionOversampling: cfg.Loop.TransitionOversampling,
		QuerySchedule:          cfg.Loop.QuerySchedule,
		Seed:                   cfg.Seed,
	}, comparisons.Deps{
		Fragmenter:      frag,
		Gatherer:        gath,
		PreferenceModel: prefModel,
		RewardTrainer:   rt,
		Dataset:         ds,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	result, err := loop.Train(cfg.Loop.TotalTimesteps, cfg.Loop.TotalComparisons)
	if err != nil {
		return err
	}
	logger.Info("preference learning finished",
		zap.Float64("reward_loss", result.RewardLoss),
		zap.Float64("reward_accuracy", result.RewardAccuracy),
		zap.Int("dataset_size", ds.Len()),
	)

	if cfg.Dataset.SnapshotPath != "" {
		if err := ds.Save(cfg.Dataset.SnapshotPath); err != nil {
			return fmt.Errorf("saving dataset snapshot: %w", err)
		}
		logger.Info("dataset snapshot written", zap.String("path", cfg.Dataset.SnapshotPath))
	}
	return nil
}

func buildRewardModel(cfg config.Config, venv env.VecEnv) (reward.Model, error) {
	obsSpace := venv.ObservationSpace()
	actSpace := venv.ActionSpace()

	if cfg.Reward.EnsembleSize <= 1 {
		return reward.NewLinear(obsSpace, actSpace, cfg.Seed)
	}

	members := make([]reward.Trainable, cfg.Reward.EnsembleSize)
	for i := range members {
		m, err := reward.NewLinear(obsSpace, actSpace, cfg.Seed+uint64(i))
		if err != nil {
			return nil, err
		}
		members[i] = m
	}
	ens, err := reward.NewEnsemble(members...)
	if err != nil {
		return nil, err
	}
	return reward.NewStdBonus(ens, cfg.Reward.StdBonus)
}

func buildFragmenter(cfg config.Config, prefModel *preference.Model, logger *zap.Logger) (fragmenter.Fragmenter, error) {
	base := fragmenter.NewRandom(cfg.Seed, 10, logger)
	if !cfg.Fragmenter.Active {
		return base, nil
	}
	return fragmenter.NewActive(
		prefModel,
		base,
		cfg.Fragmenter.SampleFactor,
		fragmenter.UncertaintyAxis(cfg.Fragmenter.UncertaintyAxis),
		logger,
	)
}

func buildTrainer(cfg config.Config, prefModel *preference.Model, logger *zap.Logger) (trainer.RewardTrainer, error) {
	loss := preference.NewCrossEntropyLoss(prefModel)
	tcfg := trainer.Config{
		Epochs:       cfg.Trainer.Epochs,
		LearningRate: cfg.Trainer.LearningRate,
		Seed:         cfg.Seed,
	}
	if prefModel.IsEnsemble() {
		return trainer.NewEnsemble(prefModel.Ensemble(), loss, tcfg, logger)
	}
	return trainer.NewBasic(loss, tcfg, logger)
}

// #endregion wiring
