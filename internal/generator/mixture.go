package generator

import (
	"fmt"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region mixture

// Mixture combines several trajectory generators. Sample requests are always
// split evenly across members (remainder to the earliest); Train either gives
// every member the full request or, with ShareTrainingSteps, splits the steps
// the same even way.
type Mixture struct {
	members            []TrajectoryGenerator
	ShareTrainingSteps bool
}

// NewMixture validates the member list.
func NewMixture(members []TrajectoryGenerator, shareTrainingSteps bool) (*Mixture, error) {
	if len(members) == 0 {
		return nil, fault.Validationf("mixture needs at least one member generator")
	}
	return &Mixture{
		members:            append([]TrajectoryGenerator(nil), members...),
		ShareTrainingSteps: shareTrainingSteps,
	}, nil
}

// NumMembers returns the number of member generators.
func (m *Mixture) NumMembers() int { return len(m.members) }

// #endregion mixture

// #region train-sample

// Train forwards the step budget to every member.
func (m *Mixture) Train(steps int) error {
	if m.ShareTrainingSteps {
		for i, share := range splitEven(steps, len(m.members)) {
			if err := m.members[i].Train(share); err != nil {
				return fmt.Errorf("mixture member %d: %w", i, err)
			}
		}
		return nil
	}
	for i, g := range m.members {
		if err := g.Train(steps); err != nil {
			return fmt.Errorf("mixture member %d: %w", i, err)
		}
	}
	return nil
}

// Sample splits the requested steps evenly across members and concatenates
// the results in member order.
func (m *Mixture) Sample(steps int) ([]trajectory.Trajectory, error) {
	var out []trajectory.Trajectory
	for i, share := range splitEven(steps, len(m.members)) {
		trajs, err := m.members[i].Sample(share)
		if err != nil {
			return nil, fmt.Errorf("mixture member %d: %w", i, err)
		}
		out = append(out, trajs...)
	}
	return out, nil
}

// splitEven divides total into k near-equal shares, remainder to the
// earliest members. Shares always sum to total.
func splitEven(total, k int) []int {
	base := total / k
	rem := total % k
	shares := make([]int, k)
	for i := range shares {
		shares[i] = base
		if i < rem {
			shares[i]++
		}
	}
	return shares
}

// #endregion train-sample
