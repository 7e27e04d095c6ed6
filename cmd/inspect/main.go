package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/adaptiveml/prefloop/internal/dataset"
	"github.com/adaptiveml/prefloop/internal/trajectory"
)

// #region main

func main() {
	path := flag.String("snapshot", "", "path to a preference dataset snapshot")
	last := flag.Int("last", 20, "show N most recent samples")
	id := flag.String("id", "", "show single sample detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --snapshot path/to/preferences.db [--last N] [--id sample-id] [--json]")
		os.Exit(2)
	}

	ds, err := dataset.Load(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open snapshot: %v\n", err)
		os.Exit(1)
	}

	if *id != "" {
		if err := runDetailMode(ds, *id, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(ds, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	ID           string  `json:"id"`
	Length       int     `json:"length"`
	Preference   float32 `json:"preference"`
	FirstReturn  float64 `json:"first_return"`
	SecondReturn float64 `json:"second_return"`
	FirstDone    bool    `json:"first_done"`
	SecondDone   bool    `json:"second_done"`
}

func runListMode(ds *dataset.Dataset, last int, jsonOut bool) error {
	n := ds.Len()
	if n == 0 {
		fmt.Fprintln(os.Stderr, "no samples found")
		return nil
	}
	start := 0
	if last > 0 && n > last {
		start = n - last
	}

	rows := make([]listRow, 0, n-start)
	for i := start; i < n; i++ {
		rows = append(rows, newListRow(ds.At(i)))
	}

	if jsonOut {
		return printJSON(rows)
	}
	printListTable(rows)
	fmt.Printf("\n%d of %d samples", len(rows), n)
	if ds.MaxSize() > 0 {
		fmt.Printf(" (capacity %d)", ds.MaxSize())
	}
	fmt.Println()
	return nil
}

func newListRow(s dataset.Sample) listRow {
	return listRow{
		ID:           s.ID,
		Length:       s.Pair.First.Len(),
		Preference:   s.Preference,
		FirstReturn:  s.Pair.First.DiscountedReturn(1),
		SecondReturn: s.Pair.Second.DiscountedReturn(1),
		FirstDone:    s.Pair.First.Terminal,
		SecondDone:   s.Pair.Second.Terminal,
	}
}

func printListTable(rows []listRow) {
	fmt.Printf("%-36s  %5s  %10s  %10s  %10s  %5s  %5s\n",
		"Sample", "Len", "Pref", "Return A", "Return B", "DoneA", "DoneB")
	for _, r := range rows {
		fmt.Printf("%-36s  %5d  %10.4f  %10.4f  %10.4f  %5v  %5v\n",
			r.ID, r.Length, r.Preference, r.FirstReturn, r.SecondReturn, r.FirstDone, r.SecondDone)
	}
}

// #endregion list-mode

// #region detail-mode

type detailView struct {
	ID         string       `json:"id"`
	Preference float32      `json:"preference"`
	First      fragmentView `json:"first"`
	Second     fragmentView `json:"second"`
}

type fragmentView struct {
	Length   int       `json:"length"`
	Return   float64   `json:"return"`
	Terminal bool      `json:"terminal"`
	Acts     []int     `json:"acts"`
	Rews     []float64 `json:"rews"`
}

func runDetailMode(ds *dataset.Dataset, id string, jsonOut bool) error {
	var sample dataset.Sample
	found := false
	for i := 0; i < ds.Len(); i++ {
		if ds.At(i).ID == id {
			sample = ds.At(i)
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("sample %q not found", id)
	}

	view := detailView{
		ID:         sample.ID,
		Preference: sample.Preference,
		First:      newFragmentView(sample.Pair.First),
		Second:     newFragmentView(sample.Pair.Second),
	}
	if jsonOut {
		return printJSON(view)
	}

	fmt.Printf("Sample %s\n", view.ID)
	fmt.Printf("  preference: %.4f\n", view.Preference)
	printFragment("first", view.First)
	printFragment("second", view.Second)
	return nil
}

func newFragmentView(f trajectory.Fragment) fragmentView {
	return fragmentView{
		Length:   f.Len(),
		Return:   f.DiscountedReturn(1),
		Terminal: f.Terminal,
		Acts:     f.Acts,
		Rews:     f.Rews,
	}
}

func printFragment(name string, fv fragmentView) {
	fmt.Printf("  %s: len=%d return=%.4f terminal=%v\n", name, fv.Length, fv.Return, fv.Terminal)
	fmt.Printf("    acts: %v\n", fv.Acts)
	fmt.Printf("    rews: %v\n", fv.Rews)
}

// #endregion detail-mode

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
