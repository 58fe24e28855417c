package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tracescope/internal/canon"
)

// Snapshot renders a run as canonical JSON lines: a header, one line per
// trace event and the final router state.
func Snapshot(name string, result *Result) ([]byte, error) {
	var buf bytes.Buffer
	write := func(v any) error {
		b, err := canon.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		buf.WriteByte('\n')
		return nil
	}

	if err := write(map[string]any{"scenario_name": name}); err != nil {
		return nil, err
	}
	for _, e := range result.Trace {
		if err := write(e); err != nil {
			return nil, err
		}
	}
	if err := write(map[string]any{"location": result.Location, "routes": result.Routes}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}
