package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

// createTestStore opens a store in a temp directory and closes it on cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleBoard() ir.Board {
	return ir.Board{
		Nodes: []ir.Node{
			{ID: "b", Kind: ir.KindSource, Text: "4"},
			{
				ID:            "a",
				Kind:          ir.KindVoting,
				Text:          "sum(SCALAR) + x",
				ValueType:     ir.TypeScalar,
				Contributions: ir.Contributions{"u1": ir.Number(0.5), "u2": ir.Number(1)},
				ComputedValue: ir.Number(5.5),
			},
			{ID: "g", Kind: ir.KindGenerator, Text: "Write about {x}", Output: "done", Generation: 3},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "b", End: "a", Label: "x", Directional: true},
			{ID: "c2", Start: "a", End: "", Label: "", Directional: false},
		},
	}
}

func sampleEvaluation(wave, nodeID string, seq int64) ir.Evaluation {
	inputs := ir.InputMap{"x": {Value: ir.Number(4), Text: "4", SourceID: "b"}}
	return ir.Evaluation{
		ID:      ir.MustEvaluationID(nodeID, wave, inputs, seq),
		Seq:     seq,
		Wave:    wave,
		NodeID:  nodeID,
		Trigger: ir.TriggerUpstream,
		Inputs:  inputs,
		Value:   ir.Number(5.5),
	}
}
