package fragmenter

import "github.com/adaptiveml/prefloop/internal/trajectory"

// #region fragmenter

// Fragmenter carves trajectories into fixed-length fragment pairs for
// comparison.
type Fragmenter interface {
	Fragment(trajs []trajectory.Trajectory, fragmentLength, numPairs int) ([]trajectory.Pair, error)
}

// #endregion fragmenter
