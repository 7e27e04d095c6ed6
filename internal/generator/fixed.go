package generator

import (
	"fmt"
	"math/rand/v2"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region fixed-dataset

// TrajectoryDataset serves trajectories from a fixed offline corpus. Train is
// a no-op; Sample shuffles trajectory order with an owned RNG stream, so two
// instances built with the same seed draw identical sequences while repeated
// calls on one instance diverge.
type TrajectoryDataset struct {
	trajs []trajectory.Trajectory
	total int
	rng   *rand.Rand
}

// NewTrajectoryDataset validates the corpus and seeds the sampling stream.
func NewTrajectoryDataset(trajs []trajectory.Trajectory, seed uint64) (*TrajectoryDataset, error) {
	if len(trajs) == 0 {
		return nil, fault.Validationf("trajectory dataset needs at least one trajectory")
	}
	total := 0
	for i, t := range trajs {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("trajectory %d: %w", i, err)
		}
		total += t.Len()
	}
	return &TrajectoryDataset{
		trajs: append([]trajectory.Trajectory(nil), trajs...),
		total: total,
		rng:   rand.New(rand.NewPCG(seed, seed^0xff51afd7ed558ccd)),
	}, nil
}

// TotalSteps returns the number of transitions across the whole corpus.
func (d *TrajectoryDataset) TotalSteps() int { return d.total }

// Train is a no-op: the corpus is immutable.
func (d *TrajectoryDataset) Train(steps int) error { return nil }

// Sample shuffles the corpus and returns trajectories until their cumulative
// length covers steps transitions.
func (d *TrajectoryDataset) Sample(steps int) ([]trajectory.Trajectory, error) {
	if steps > d.total {
		return nil, &fault.CapacityError{What: "transitions", Requested: steps, Available: d.total}
	}
	if steps <= 0 {
		return nil, nil
	}

	perm := d.rng.Perm(len(d.trajs))
	var out []trajectory.Trajectory
	covered := 0
	for _, i := range perm {
		out = append(out, d.trajs[i])
		covered += d.trajs[i].Len()
		if covered >= steps {
			break
		}
	}
	return out, nil
}

// #endregion fixed-dataset
