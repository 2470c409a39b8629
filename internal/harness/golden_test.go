package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

func TestTraceSnapshotCanonical(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "tiny",
		Trace: []TraceEvent{
			{Seq: 1, Wave: "wave-1", Node: "b", Trigger: ir.TriggerFormula, Value: ir.String("hi")},
			{Seq: 2, Wave: "wave-2", Node: "b", Trigger: ir.TriggerUpstream, SyntaxError: true},
		},
		Board: ir.Board{Nodes: []ir.Node{
			{ID: "b", Kind: ir.KindVoting, ComputedValue: ir.String("hi"), SyntaxError: true},
			{ID: "a", Kind: ir.KindSource, Text: " 3 "},
		}},
	}

	data, err := snap.Canonical()
	require.NoError(t, err)

	want := `{"final":{"a":3,"b":null},"scenario_name":"tiny","trace":[` +
		`{"node":"b","seq":1,"trigger":"formula","value":"hi","wave":"wave-1"},` +
		`{"node":"b","seq":2,"syntax_error":true,"trigger":"upstream","value":null,"wave":"wave-2"}]}`
	assert.Equal(t, want, string(data))
}

func TestAssertGoldenOnStoredResult(t *testing.T) {
	result, err := Run(loadScenario(t, "end_to_end"))
	require.NoError(t, err)

	require.NoError(t, AssertGolden(t, "end_to_end", result))
}
