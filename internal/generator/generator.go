package generator

import "github.com/adaptiveml/prefloop/internal/trajectory"

// #region generator

// TrajectoryGenerator produces trajectories on demand and optionally improves
// its policy between calls.
type TrajectoryGenerator interface {
	// Sample returns trajectories whose cumulative length covers at least
	// steps transitions.
	Sample(steps int) ([]trajectory.Trajectory, error)
	// Train advances the underlying policy for steps environment steps.
	// Generators without a policy treat it as a no-op.
	Train(steps int) error
}

// #endregion generator
