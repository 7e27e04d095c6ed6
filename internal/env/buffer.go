package env

import (
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region buffer-wrapper

// BufferWrapper records every transition passing through the wrapped
// environment so collectors can reconstruct full trajectories afterwards.
// It sits directly on the raw environment, inside any reward relabeling, so
// recorded rewards are exactly what the environment produced.
//
// The buffer is a single-producer single-consumer hand-off: producers must
// not run while Pending() > 0, and Drain empties the buffer completely.
type BufferWrapper struct {
	inner   VecEnv
	started bool
	open    []partial
	closed  []trajectory.Trajectory
	pending int
}

type partial struct {
	obs  [][]float64
	acts []int
	rews []float64
}

// NewBuffer wraps a vectorized environment with transition recording.
func NewBuffer(inner VecEnv) *BufferWrapper {
	return &BufferWrapper{inner: inner}
}

func (b *BufferWrapper) NumEnvs() int            { return b.inner.NumEnvs() }
func (b *BufferWrapper) ObservationSpace() Space { return b.inner.ObservationSpace() }
func (b *BufferWrapper) ActionSpace() Space      { return b.inner.ActionSpace() }

// #endregion buffer-wrapper

// #region reset

// Reset starts the wrapped environment on first call. Later calls return the
// current observations without disturbing in-flight episodes, so repeated
// Reset from different rollout drivers cannot drop recorded transitions.
func (b *BufferWrapper) Reset() [][]float64 {
	if b.started {
		current := make([][]float64, len(b.open))
		for i, p := range b.open {
			current[i] = p.obs[len(p.obs)-1]
		}
		return current
	}

	obs := b.inner.Reset()
	b.open = make([]partial, len(obs))
	for i, o := range obs {
		b.open[i] = partial{obs: [][]float64{copyVec(o)}}
	}
	b.started = true
	return obs
}

// #endregion reset

// #region step

// Step records one transition per sub-environment. Finished episodes are
// closed with the terminal observation from Info and a fresh partial episode
// begins at the auto-reset observation.
func (b *BufferWrapper) Step(acts []int) ([][]float64, []float64, []bool, []Info) {
	obs, rews, dones, infos := b.inner.Step(acts)

	for i := range acts {
		p := &b.open[i]
		p.acts = append(p.acts, acts[i])
		p.rews = append(p.rews, rews[i])

		if dones[i] {
			p.obs = append(p.obs, copyVec(infos[i].TerminalObs))
			b.closeEpisode(i, !infos[i].Truncated)
			b.open[i] = partial{obs: [][]float64{copyVec(obs[i])}}
		} else {
			p.obs = append(p.obs, copyVec(obs[i]))
		}
	}
	b.pending += len(acts)

	return obs, rews, dones, infos
}

func (b *BufferWrapper) closeEpisode(i int, terminal bool) {
	p := b.open[i]
	t, err := trajectory.New(p.obs, p.acts, p.rews, nil, terminal)
	if err != nil {
		// The wrapper constructs episodes append-by-append, so the length
		// invariant cannot be violated here.
		panic(err)
	}
	b.closed = append(b.closed, t)
}

// #endregion step

// #region drain

// Pending returns the number of transitions recorded since the last Drain.
func (b *BufferWrapper) Pending() int { return b.pending }

// Drain returns all buffered trajectories in completion order, appending
// non-empty in-flight episodes as truncated (non-terminal) trajectories, and
// empties the buffer. Each in-flight episode keeps only its latest
// observation so recording continues seamlessly.
func (b *BufferWrapper) Drain() []trajectory.Trajectory {
	out := b.closed
	b.closed = nil

	for i := range b.open {
		p := b.open[i]
		if len(p.acts) == 0 {
			continue
		}
		t, err := trajectory.New(p.obs, p.acts, p.rews, nil, false)
		if err != nil {
			panic(err)
		}
		out = append(out, t)
		b.open[i] = partial{obs: [][]float64{p.obs[len(p.obs)-1]}}
	}

	b.pending = 0
	return out
}

// #endregion drain

func copyVec(v []float64) []float64 {
	return append([]float64(nil), v...)
}
