package dataset

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region schema

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshot_meta (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	sample_count  INTEGER NOT NULL,
	max_size      INTEGER NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS preference_samples (
	seq              INTEGER PRIMARY KEY,
	sample_id        TEXT NOT NULL,
	preference       BLOB NOT NULL,
	obs_dim          INTEGER NOT NULL,
	first_obs        BLOB NOT NULL,
	first_acts       BLOB NOT NULL,
	first_rews       BLOB NOT NULL,
	first_terminal   INTEGER NOT NULL,
	second_obs       BLOB NOT NULL,
	second_acts      BLOB NOT NULL,
	second_rews      BLOB NOT NULL,
	second_terminal  INTEGER NOT NULL
);
`

// #endregion schema

// #region save

// Save serializes the whole dataset to a single SQLite file at path,
// replacing any previous snapshot. Preferences round-trip bit-exactly.
func (d *Dataset) Save(path string) error {
	// Snapshots are wholesale, never incremental.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(snapshotSchema); err != nil {
		return fmt.Errorf("migrate snapshot: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO snapshot_meta (id, sample_count, max_size, created_at) VALUES (1, ?, ?, ?)`,
		len(d.samples), d.maxSize, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	for seq, s := range d.samples {
		_, err = tx.Exec(
			`INSERT INTO preference_samples
			 (seq, sample_id, preference, obs_dim,
			  first_obs, first_acts, first_rews, first_terminal,
			  second_obs, second_acts, second_rews, second_terminal)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			seq, s.ID, encodeFloat32(s.Preference), obsDim(s.Pair.First),
			encodeObs(s.Pair.First.Obs), encodeInts(s.Pair.First.Acts),
			encodeFloats(s.Pair.First.Rews), boolInt(s.Pair.First.Terminal),
			encodeObs(s.Pair.Second.Obs), encodeInts(s.Pair.Second.Acts),
			encodeFloats(s.Pair.Second.Rews), boolInt(s.Pair.Second.Terminal),
		)
		if err != nil {
			return fmt.Errorf("insert sample %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// #endregion save

// #region load

// Load restores a dataset from a snapshot file, preserving sample order,
// fragment content and exact preference values.
func Load(path string) (*Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer db.Close()

	var count, maxSize int
	err = db.QueryRow(`SELECT sample_count, max_size FROM snapshot_meta WHERE id = 1`).
		Scan(&count, &maxSize)
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	rows, err := db.Query(
		`SELECT sample_id, preference, obs_dim,
		        first_obs, first_acts, first_rews, first_terminal,
		        second_obs, second_acts, second_rews, second_terminal
		 FROM preference_samples ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("read samples: %w", err)
	}
	defer rows.Close()

	d := &Dataset{maxSize: maxSize}
	for rows.Next() {
		var (
			s                    Sample
			prefBlob             []byte
			dim                  int
			fObs, fActs, fRews   []byte
			sObs, sActs, sRews   []byte
			fTerminal, sTerminal int
		)
		err = rows.Scan(&s.ID, &prefBlob, &dim,
			&fObs, &fActs, &fRews, &fTerminal,
			&sObs, &sActs, &sRews, &sTerminal)
		if err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}

		pref, err := decodeFloat32(prefBlob)
		if err != nil {
			return nil, err
		}
		s.Preference = pref
		s.Pair.First = trajectory.Fragment{
			Obs:      decodeObs(fObs, dim),
			Acts:     decodeInts(fActs),
			Rews:     decodeFloats(fRews),
			Terminal: fTerminal != 0,
		}
		s.Pair.Second = trajectory.Fragment{
			Obs:      decodeObs(sObs, dim),
			Acts:     decodeInts(sActs),
			Rews:     decodeFloats(sRews),
			Terminal: sTerminal != 0,
		}
		d.samples = append(d.samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	if len(d.samples) != count {
		return nil, fmt.Errorf("snapshot holds %d samples, meta says %d", len(d.samples), count)
	}
	return d, nil
}

// #endregion load

// #region codecs

func encodeFloat32(f float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
	return buf
}

func decodeFloat32(buf []byte) (float32, error) {
	if len(buf) != 4 {
		return 0, fmt.Errorf("preference blob has %d bytes, expected 4", len(buf))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf)), nil
}

func encodeFloats(v []float64) []byte {
	buf := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(f))
	}
	return buf
}

func decodeFloats(buf []byte) []float64 {
	v := make([]float64, len(buf)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return v
}

func encodeInts(v []int) []byte {
	buf := make([]byte, 8*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(x))
	}
	return buf
}

func decodeInts(buf []byte) []int {
	v := make([]int, len(buf)/8)
	for i := range v {
		v[i] = int(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return v
}

func encodeObs(obs [][]float64) []byte {
	flat := make([]float64, 0, len(obs)*obsLen(obs))
	for _, o := range obs {
		flat = append(flat, o...)
	}
	return encodeFloats(flat)
}

func decodeObs(buf []byte, dim int) [][]float64 {
	flat := decodeFloats(buf)
	if dim <= 0 {
		return nil
	}
	obs := make([][]float64, len(flat)/dim)
	for i := range obs {
		obs[i] = flat[i*dim : (i+1)*dim]
	}
	return obs
}

func obsDim(f trajectory.Fragment) int { return obsLen(f.Obs) }

func obsLen(obs [][]float64) int {
	if len(obs) == 0 {
		return 0
	}
	return len(obs[0])
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion codecs
