package trajectory

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a trajectory corpus used in
// deterministic tests and offline runs.
type Fixture struct {
	Description  string              `json:"description"`
	Trajectories []FixtureTrajectory `json:"trajectories"`
}

// FixtureTrajectory mirrors Trajectory with JSON tags.
type FixtureTrajectory struct {
	Obs      [][]float64 `json:"obs"`
	Acts     []int       `json:"acts"`
	Rews     []float64   `json:"rews"`
	Terminal bool        `json:"terminal"`
}

// #endregion fixture-types

// #region load-save

// LoadFixture reads a fixture file from disk.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// SaveFixture writes a fixture file to disk.
func SaveFixture(path string, f Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}

// #endregion load-save

// #region build

// Build validates every fixture trajectory and assigns IDs.
func (f Fixture) Build() ([]Trajectory, error) {
	trajs := make([]Trajectory, 0, len(f.Trajectories))
	for i, ft := range f.Trajectories {
		t, err := New(ft.Obs, ft.Acts, ft.Rews, nil, ft.Terminal)
		if err != nil {
			return nil, fmt.Errorf("fixture trajectory %d: %w", i, err)
		}
		trajs = append(trajs, t)
	}
	return trajs, nil
}

// Record converts trajectories into a serializable fixture.
func Record(description string, trajs []Trajectory) Fixture {
	f := Fixture{Description: description}
	for _, t := range trajs {
		f.Trajectories = append(f.Trajectories, FixtureTrajectory{
			Obs:      t.Obs,
			Acts:     t.Acts,
			Rews:     t.Rews,
			Terminal: t.Terminal,
		})
	}
	return f
}

// #endregion build
