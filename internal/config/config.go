package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region types

// EnvConfig describes the chain environment the loop trains against.
type EnvConfig struct {
	Length  int `yaml:"length"`
	Horizon int `yaml:"horizon"`
	NumEnvs int `yaml:"num_envs"`
}

// RewardConfig selects the reward model shape. EnsembleSize 0 or 1 means a
// single plain model; larger values build an ensemble with a std bonus.
type RewardConfig struct {
	EnsembleSize int     `yaml:"ensemble_size"`
	StdBonus     float64 `yaml:"std_bonus"`
}

// LoopConfig drives the outer preference-comparison loop.
type LoopConfig struct {
	TotalTimesteps         int     `yaml:"total_timesteps"`
	TotalComparisons       int     `yaml:"total_comparisons"`
	NumIterations          int     `yaml:"num_iterations"`
	FragmentLength         int     `yaml:"fragment_length"`
	TransitionOversampling float64 `yaml:"transition_oversampling"`
	QuerySchedule          string  `yaml:"query_schedule"`
	ExplorationFrac        float64 `yaml:"exploration_frac"`
}

// TrainerConfig covers reward-model fitting.
type TrainerConfig struct {
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
}

// GathererConfig covers synthetic preference generation.
type GathererConfig struct {
	Temperature    float64 `yaml:"temperature"`
	DiscountFactor float64 `yaml:"discount_factor"`
	SampleLabels   bool    `yaml:"sample_labels"`
}

// FragmenterConfig selects between random and active fragmentation. Active
// mode requires an ensemble reward model.
type FragmenterConfig struct {
	Active          bool    `yaml:"active"`
	SampleFactor    float64 `yaml:"sample_factor"`
	UncertaintyAxis string  `yaml:"uncertainty_axis"`
}

// DatasetConfig bounds the preference store and points at its snapshot.
type DatasetConfig struct {
	MaxSize      int    `yaml:"max_size"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// Config is the full loop-runner configuration.
type Config struct {
	Seed       uint64           `yaml:"seed"`
	LogLevel   string           `yaml:"log_level"`
	Env        EnvConfig        `yaml:"env"`
	Reward     RewardConfig     `yaml:"reward"`
	Loop       LoopConfig       `yaml:"loop"`
	Trainer    TrainerConfig    `yaml:"trainer"`
	Gatherer   GathererConfig   `yaml:"gatherer"`
	Fragmenter FragmenterConfig `yaml:"fragmenter"`
	Dataset    DatasetConfig    `yaml:"dataset"`
}

// #endregion types

// #region load

// Default returns a configuration that runs a small but complete loop on the
// chain environment.
func Default() Config {
	return Config{
		Seed:     1,
		LogLevel: "info",
		Env: EnvConfig{
			Length:  5,
			Horizon: 20,
			NumEnvs: 2,
		},
		Reward: RewardConfig{
			EnsembleSize: 1,
			StdBonus:     0.1,
		},
		Loop: LoopConfig{
			TotalTimesteps:         2000,
			TotalComparisons:       60,
			NumIterations:          5,
			FragmentLength:         4,
			TransitionOversampling: 1.5,
			QuerySchedule:          "constant",
			ExplorationFrac:        0.1,
		},
		Trainer: TrainerConfig{
			Epochs:       3,
			LearningRate: 0.05,
		},
		Gatherer: GathererConfig{
			Temperature:    1,
			DiscountFactor: 1,
			SampleLabels:   true,
		},
		Fragmenter: FragmenterConfig{
			Active:          false,
			SampleFactor:    4,
			UncertaintyAxis: "logit",
		},
		Dataset: DatasetConfig{
			MaxSize:      0,
			SnapshotPath: "",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.Env.Length < 2 {
		return fault.Validationf("env length must be at least 2, got %d", c.Env.Length)
	}
	if c.Env.Horizon < 1 {
		return fault.Validationf("env horizon must be positive, got %d", c.Env.Horizon)
	}
	if c.Env.NumEnvs < 1 {
		return fault.Validationf("num_envs must be positive, got %d", c.Env.NumEnvs)
	}
	if c.Reward.EnsembleSize < 0 {
		return fault.Validationf("ensemble size cannot be negative, got %d", c.Reward.EnsembleSize)
	}
	if c.Loop.TotalTimesteps < 1 {
		return fault.Validationf("total timesteps must be positive, got %d", c.Loop.TotalTimesteps)
	}
	if c.Loop.TotalComparisons < 1 {
		return fault.Validationf("total comparisons must be positive, got %d", c.Loop.TotalComparisons)
	}
	if c.Loop.NumIterations < 1 {
		return fault.Validationf("number of iterations must be positive, got %d", c.Loop.NumIterations)
	}
	if c.Loop.FragmentLength < 1 {
		return fault.Validationf("fragment length must be positive, got %d", c.Loop.FragmentLength)
	}
	if c.Loop.ExplorationFrac < 0 || c.Loop.ExplorationFrac > 1 {
		return fault.Validationf("exploration fraction must be in [0, 1], got %v", c.Loop.ExplorationFrac)
	}
	if c.Trainer.Epochs < 1 {
		return fault.Validationf("epochs must be positive, got %d", c.Trainer.Epochs)
	}
	if c.Trainer.LearningRate <= 0 {
		return fault.Validationf("learning rate must be positive, got %v", c.Trainer.LearningRate)
	}
	if c.Gatherer.Temperature < 0 {
		return fault.Validationf("temperature cannot be negative, got %v", c.Gatherer.Temperature)
	}
	if c.Dataset.MaxSize < 0 {
		return fault.Validationf("dataset max size cannot be negative, got %d", c.Dataset.MaxSize)
	}
	if c.Fragmenter.Active && c.Fragmenter.SampleFactor < 1 {
		return fault.Validationf("sample factor must be at least 1, got %v", c.Fragmenter.SampleFactor)
	}
	return nil
}

// #endregion load
