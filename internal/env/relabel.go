package env

// #region relabel-wrapper

// RelabelWrapper replaces environment rewards with the output of a learned
// reward function before the agent sees them. It wraps outside the buffer
// wrapper, so recorded trajectories keep the true environment rewards while
// the agent trains against the model's.
type RelabelWrapper struct {
	inner  VecEnv
	reward RewardFunc
	last   [][]float64
}

// NewRelabel wraps an environment with reward relabeling.
func NewRelabel(inner VecEnv, reward RewardFunc) *RelabelWrapper {
	return &RelabelWrapper{inner: inner, reward: reward}
}

func (r *RelabelWrapper) NumEnvs() int            { return r.inner.NumEnvs() }
func (r *RelabelWrapper) ObservationSpace() Space { return r.inner.ObservationSpace() }
func (r *RelabelWrapper) ActionSpace() Space      { return r.inner.ActionSpace() }

// Reset passes through and tracks current observations for relabeling.
func (r *RelabelWrapper) Reset() [][]float64 {
	obs := r.inner.Reset()
	r.setLast(obs)
	return obs
}

// Step relabels the returned rewards with the reward function evaluated on
// (obs, act, next_obs, done), using the terminal observation for finished
// episodes.
func (r *RelabelWrapper) Step(acts []int) ([][]float64, []float64, []bool, []Info) {
	if r.last == nil {
		r.setLast(r.inner.Reset())
	}
	obs, rews, dones, infos := r.inner.Step(acts)

	next := make([][]float64, len(obs))
	for i := range obs {
		if dones[i] {
			next[i] = infos[i].TerminalObs
		} else {
			next[i] = obs[i]
		}
	}

	relabeled := r.reward(r.last, acts, next, dones)
	copy(rews, relabeled)

	r.setLast(obs)
	return obs, rews, dones, infos
}

func (r *RelabelWrapper) setLast(obs [][]float64) {
	r.last = make([][]float64, len(obs))
	for i, o := range obs {
		r.last[i] = append([]float64(nil), o...)
	}
}

// #endregion relabel-wrapper
