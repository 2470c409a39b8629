package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/OrionReed/ggraph/internal/ir"
)

// TraceSnapshot captures what a scenario run produced.
// It serializes to canonical JSON for byte-exact golden comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Board        ir.Board
}

// Canonical renders the snapshot as canonical JSON. Evaluation ids are left
// out; seq and wave already identify each record. The final section maps
// every node id to the value it supplies, or null.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	trace := make(ir.List, len(s.Trace))
	for i, ev := range s.Trace {
		entry := ir.Object{
			"seq":     ir.Number(ev.Seq),
			"wave":    ir.String(ev.Wave),
			"node":    ir.String(ev.Node),
			"trigger": ir.String(ev.Trigger),
			"value":   nullable(ev.Value),
		}
		if ev.SyntaxError {
			entry["syntax_error"] = ir.Bool(true)
		}
		trace[i] = entry
	}

	final := make(ir.Object, len(s.Board.Nodes))
	for _, n := range s.Board.Nodes {
		v, ok := n.Value()
		if !ok {
			v = ir.Null{}
		}
		final[n.ID] = v
	}

	return ir.MarshalCanonical(ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"trace":         trace,
		"final":         final,
	})
}

func nullable(v ir.Value) ir.Value {
	if v == nil {
		return ir.Null{}
	}
	return v
}

// RunWithGolden executes a scenario and compares its snapshot against
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

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Board:        result.Board,
	}
	data, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
