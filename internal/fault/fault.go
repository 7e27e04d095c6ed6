package fault

import "fmt"

// #region validation

// ValidationError reports malformed input: bad shapes, out-of-range values,
// unsupported enum members, mismatched spaces, or empty collections. It is
// always raised before any state mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// #endregion validation

// #region consistency

// ConsistencyError reports a violated stateful precondition, e.g. an
// undrained rollout buffer. Raised instead of silently proceeding.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string { return e.Msg }

// Consistencyf builds a ConsistencyError from a format string.
func Consistencyf(format string, args ...any) error {
	return &ConsistencyError{Msg: fmt.Sprintf(format, args...)}
}

// #endregion consistency

// #region capacity

// CapacityError reports a request for more data than is available.
type CapacityError struct {
	What      string
	Requested int
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("asked for %d %s but only %d available", e.Requested, e.What, e.Available)
}

// #endregion capacity

// #region wiring

// WiringError reports a component connected to an incompatible reward-model
// shape, e.g. the basic trainer handed an ensemble. Raised eagerly at
// construction, naming the offending concrete type.
type WiringError struct {
	Msg string
}

func (e *WiringError) Error() string { return e.Msg }

// Wiringf builds a WiringError from a format string.
func Wiringf(format string, args ...any) error {
	return &WiringError{Msg: fmt.Sprintf(format, args...)}
}

// #endregion wiring
