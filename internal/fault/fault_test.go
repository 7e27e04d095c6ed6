package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTypesSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Validationf("bad %s", "input"))
	var verr *ValidationError
	require.ErrorAs(t, wrapped, &verr)
	assert.Equal(t, "bad input", verr.Msg)

	var cerr *ConsistencyError
	assert.False(t, errors.As(wrapped, &cerr))
	require.ErrorAs(t, Consistencyf("stale"), &cerr)

	var werr *WiringError
	require.ErrorAs(t, Wiringf("mismatch"), &werr)
}

func TestCapacityErrorMessage(t *testing.T) {
	err := &CapacityError{What: "transitions", Requested: 12, Available: 7}
	assert.Equal(t, "asked for 12 transitions but only 7 available", err.Error())
}
