package trajectory

import (
	"math"

	"github.com/adaptiveml/prefloop/internal/fault"
	"github.com/google/uuid"
)

// #region trajectory

// Trajectory is one episode (or episode slice) of agent experience. Obs holds
// n+1 observations bracketing n transitions; Acts and Rews hold n entries.
// Terminal is true only when the episode ended in a true environment
// termination, not a time-limit truncation.
type Trajectory struct {
	ID       string
	Obs      [][]float64
	Acts     []int
	Rews     []float64
	Infos    []map[string]float64
	Terminal bool
}

// New validates the length invariant and assigns a fresh ID.
func New(obs [][]float64, acts []int, rews []float64, infos []map[string]float64, terminal bool) (Trajectory, error) {
	t := Trajectory{
		ID:       uuid.New().String(),
		Obs:      obs,
		Acts:     acts,
		Rews:     rews,
		Infos:    infos,
		Terminal: terminal,
	}
	if err := t.Validate(); err != nil {
		return Trajectory{}, err
	}
	return t, nil
}

// Len returns the number of transitions.
func (t Trajectory) Len() int { return len(t.Acts) }

// Validate checks len(obs) == len(acts)+1 == len(rews)+1.
func (t Trajectory) Validate() error {
	if len(t.Obs) != len(t.Acts)+1 {
		return fault.Validationf(
			"trajectory has %d observations for %d actions; expected %d",
			len(t.Obs), len(t.Acts), len(t.Acts)+1,
		)
	}
	if len(t.Rews) != len(t.Acts) {
		return fault.Validationf(
			"trajectory has %d rewards for %d actions; lengths must match",
			len(t.Rews), len(t.Acts),
		)
	}
	if t.Infos != nil && len(t.Infos) != len(t.Acts) {
		return fault.Validationf(
			"trajectory has %d infos for %d actions; lengths must match",
			len(t.Infos), len(t.Acts),
		)
	}
	if len(t.Acts) == 0 {
		return fault.Validationf("trajectory has no transitions")
	}
	return nil
}

// #endregion trajectory

// #region fragment

// Fragment is a fixed-length contiguous slice of a parent trajectory. All
// data is copied, so the parent may be discarded after fragmenting.
type Fragment struct {
	Obs      [][]float64
	Acts     []int
	Rews     []float64
	Terminal bool
}

// Len returns the number of transitions in the fragment.
func (f Fragment) Len() int { return len(f.Acts) }

// DiscountedReturn sums rewards with per-step exponential discounting.
// discount == 1 means a plain sum.
func (f Fragment) DiscountedReturn(discount float64) float64 {
	var total float64
	weight := 1.0
	for _, r := range f.Rews {
		total += weight * r
		weight *= discount
	}
	return total
}

// Slice copies transitions [start, start+length) into a Fragment. The
// fragment inherits the parent's terminal flag only when its last observation
// is the parent's last observation.
func (t Trajectory) Slice(start, length int) (Fragment, error) {
	if length <= 0 {
		return Fragment{}, fault.Validationf("fragment length must be positive, got %d", length)
	}
	if start < 0 || start+length > t.Len() {
		return Fragment{}, fault.Validationf(
			"fragment [%d, %d) out of range for trajectory of length %d",
			start, start+length, t.Len(),
		)
	}

	obs := make([][]float64, length+1)
	for i := 0; i <= length; i++ {
		obs[i] = append([]float64(nil), t.Obs[start+i]...)
	}
	acts := append([]int(nil), t.Acts[start:start+length]...)
	rews := append([]float64(nil), t.Rews[start:start+length]...)

	return Fragment{
		Obs:      obs,
		Acts:     acts,
		Rews:     rews,
		Terminal: t.Terminal && start+length == t.Len(),
	}, nil
}

// #endregion fragment

// #region pair

// Pair is an ordered 2-tuple of equal-length fragments, the unit of
// comparison. A preference value p in [0, 1] is the probability that Second
// is preferred over First.
type Pair struct {
	First  Fragment
	Second Fragment
}

// Validate checks both fragments carry the same number of transitions.
func (p Pair) Validate() error {
	if p.First.Len() != p.Second.Len() {
		return fault.Validationf(
			"fragment pair has mismatched lengths %d and %d",
			p.First.Len(), p.Second.Len(),
		)
	}
	if p.First.Len() == 0 {
		return fault.Validationf("fragment pair has empty fragments")
	}
	return nil
}

// #endregion pair

// #region helpers

// TotalSteps sums transition counts across trajectories.
func TotalSteps(trajs []Trajectory) int {
	total := 0
	for _, t := range trajs {
		total += t.Len()
	}
	return total
}

// Equal reports whether two trajectories carry identical data, ignoring IDs.
func Equal(a, b Trajectory) bool {
	if a.Len() != b.Len() || a.Terminal != b.Terminal {
		return false
	}
	for i := range a.Obs {
		if len(a.Obs[i]) != len(b.Obs[i]) {
			return false
		}
		for j := range a.Obs[i] {
			if a.Obs[i][j] != b.Obs[i][j] {
				return false
			}
		}
	}
	for i := range a.Acts {
		if a.Acts[i] != b.Acts[i] || a.Rews[i] != b.Rews[i] {
			return false
		}
	}
	return true
}

// Finite reports whether every reward in the fragment is a finite number.
func (f Fragment) Finite() bool {
	for _, r := range f.Rews {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return false
		}
	}
	return true
}

// #endregion helpers
