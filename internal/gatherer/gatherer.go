package gatherer

import "github.com/adaptiveml/prefloop/internal/trajectory"

// #region gatherer

// Gatherer turns fragment pairs into preference probabilities in [0, 1]:
// the probability that the second fragment of each pair is preferred.
// Implementations may be synthetic oracles or external elicitation channels;
// the orchestrator does not care which.
type Gatherer interface {
	Gather(pairs []trajectory.Pair) ([]float32, error)
}

// #endregion gatherer
