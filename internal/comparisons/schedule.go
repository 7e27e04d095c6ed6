package comparisons

import (
	"math"
	"sort"

	"github.com/adaptiveml/prefloop/internal/fault"
)

// #region schedule

// Schedule weights preference queries as a function of normalized training
// progress t in [0, 1). Weights are relative; AllocateQueries normalizes
// them onto the comparison budget.
type Schedule func(t float64) float64

// Recognized schedule names.
const (
	ScheduleConstant         = "constant"
	ScheduleHyperbolic       = "hyperbolic"
	ScheduleInverseQuadratic = "inverse_quadratic"
)

// ScheduleByName resolves a named schedule: constant (flat), hyperbolic
// (front-loaded, 1/(t+1)) or inverse_quadratic (1/(t+1)^2).
func ScheduleByName(name string) (Schedule, error) {
	switch name {
	case ScheduleConstant:
		return func(t float64) float64 { return 1 }, nil
	case ScheduleHyperbolic:
		return func(t float64) float64 { return 1 / (t + 1) }, nil
	case ScheduleInverseQuadratic:
		return func(t float64) float64 { return 1 / ((t + 1) * (t + 1)) }, nil
	default:
		return nil, fault.Validationf(
			"unknown query schedule %q; expected constant, hyperbolic or inverse_quadratic", name,
		)
	}
}

// #endregion schedule

// #region allocate

// AllocateQueries splits totalComparisons across iterations proportionally
// to the schedule weight at each iteration's normalized progress. Integer
// allocations are rounded by the largest-remainder method, so they always
// sum exactly to totalComparisons.
func AllocateQueries(s Schedule, totalComparisons, iterations int) ([]int, error) {
	if iterations < 1 {
		return nil, fault.Validationf("iterations must be positive, got %d", iterations)
	}
	if totalComparisons < 0 {
		return nil, fault.Validationf("total comparisons must be non-negative, got %d", totalComparisons)
	}

	weights := make([]float64, iterations)
	var sum float64
	for i := range weights {
		w := s(float64(i) / float64(iterations))
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return nil, fault.Validationf("schedule weight at iteration %d is %v; weights must be finite and positive", i, w)
		}
		weights[i] = w
		sum += w
	}

	out := make([]int, iterations)
	remainders := make([]float64, iterations)
	allocated := 0
	for i, w := range weights {
		share := w / sum * float64(totalComparisons)
		out[i] = int(math.Floor(share))
		remainders[i] = share - math.Floor(share)
		allocated += out[i]
	}

	// Hand out the remainder to the largest fractional parts, earliest
	// iterations first on ties.
	order := make([]int, iterations)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := 0; i < totalComparisons-allocated; i++ {
		out[order[i]]++
	}

	return out, nil
}

// #endregion allocate
