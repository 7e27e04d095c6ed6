package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapSinkDumpFlushesSortedFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewZapSink(zap.New(core))

	s.Record("b_metric", 2)
	s.Record("a_metric", 1)
	s.Record("a_metric", 1.5)
	s.Dump(3)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].Context
	require.Len(t, fields, 3)
	assert.Equal(t, "step", fields[0].Key)
	assert.Equal(t, "a_metric", fields[1].Key)
	assert.Equal(t, "b_metric", fields[2].Key)

	m := entries[0].ContextMap()
	assert.Equal(t, int64(3), m["step"])
	assert.Equal(t, 1.5, m["a_metric"])

	// A second dump starts from a clean slate.
	s.Dump(4)
	require.Len(t, logs.All(), 2)
	assert.Len(t, logs.All()[1].Context, 1)
}

func TestMemorySinkHistory(t *testing.T) {
	s := NewMemory()
	assert.Nil(t, s.Last())

	s.Record("loss", 0.9)
	s.Dump(0)
	s.Record("loss", 0.4)
	s.Record("accuracy", 0.8)
	s.Dump(1)

	require.Len(t, s.History, 2)
	assert.Equal(t, []int{0, 1}, s.Steps)
	assert.Equal(t, map[string]float64{"loss": 0.9}, s.History[0])
	assert.Equal(t, map[string]float64{"loss": 0.4, "accuracy": 0.8}, s.Last())
}
