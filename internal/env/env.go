package env

import "fmt"

// #region space

// Space describes an observation or action space. Observation spaces are flat
// float vectors (Dim > 0); action spaces are discrete (N > 0).
type Space struct {
	Dim int `json:"dim" yaml:"dim"`
	N   int `json:"n" yaml:"n"`
}

// Matches reports whether two spaces describe identical shapes.
func (s Space) Matches(o Space) bool { return s == o }

func (s Space) String() string {
	if s.N > 0 {
		return fmt.Sprintf("Discrete(%d)", s.N)
	}
	return fmt.Sprintf("Box(%d)", s.Dim)
}

// #endregion space

// #region info

// Info carries per-step metadata from a vectorized environment.
type Info struct {
	// TerminalObs is the true final observation of a finished episode. Set
	// only when the corresponding done flag is true; the main observation
	// slot then holds the auto-reset initial observation.
	TerminalObs []float64
	// Truncated marks an episode cut by the time limit rather than a true
	// environment termination.
	Truncated bool
}

// #endregion info

// #region vecenv

// VecEnv is the vectorized environment capability. Step advances every
// sub-environment by one transition; finished sub-environments reset
// automatically, reporting the terminal observation through Info.
type VecEnv interface {
	NumEnvs() int
	ObservationSpace() Space
	ActionSpace() Space
	Reset() [][]float64
	Step(acts []int) (obs [][]float64, rews []float64, dones []bool, infos []Info)
}

// RewardFunc rescoring a batch of transitions. Used to relabel environment
// rewards with a learned reward model.
type RewardFunc func(obs [][]float64, acts []int, nextObs [][]float64, dones []bool) []float64

// #endregion vecenv
