package metrics

import (
	"sort"

	"go.uber.org/zap"
)

// #region sink

// Sink receives scalar training metrics. Record stages key/value pairs;
// Dump flushes everything staged since the last Dump.
type Sink interface {
	Record(key string, value float64)
	Dump(step int)
}

// #endregion sink

// #region zap-sink

// ZapSink flushes staged metrics as one structured log line per Dump.
type ZapSink struct {
	logger  *zap.Logger
	pending map[string]float64
}

// NewZapSink builds a sink writing through the given logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger, pending: make(map[string]float64)}
}

// Record stages one scalar; later records with the same key overwrite.
func (s *ZapSink) Record(key string, value float64) {
	s.pending[key] = value
}

// Dump flushes staged metrics with keys in sorted order.
func (s *ZapSink) Dump(step int) {
	keys := make([]string, 0, len(s.pending))
	for k := range s.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys)+1)
	fields = append(fields, zap.Int("step", step))
	for _, k := range keys {
		fields = append(fields, zap.Float64(k, s.pending[k]))
	}
	s.logger.Info("metrics", fields...)
	s.pending = make(map[string]float64)
}

// #endregion zap-sink

// #region memory-sink

// Memory keeps every dumped batch for assertions in tests.
type Memory struct {
	History []map[string]float64
	Steps   []int
	pending map[string]float64
}

// NewMemory builds an in-memory sink.
func NewMemory() *Memory {
	return &Memory{pending: make(map[string]float64)}
}

// Record stages one scalar.
func (s *Memory) Record(key string, value float64) {
	s.pending[key] = value
}

// Dump appends the staged batch to History.
func (s *Memory) Dump(step int) {
	s.History = append(s.History, s.pending)
	s.Steps = append(s.Steps, step)
	s.pending = make(map[string]float64)
}

// Last returns the most recently dumped batch, or nil.
func (s *Memory) Last() map[string]float64 {
	if len(s.History) == 0 {
		return nil
	}
	return s.History[len(s.History)-1]
}

// #endregion memory-sink
