package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

func codes(findings []ValidationError) []string {
	out := make([]string, len(findings))
	for i, f := range findings {
		out[i] = f.Code
	}
	return out
}

func TestValidateCleanBoard(t *testing.T) {
	b := ir.Board{
		Nodes: []ir.Node{
			{ID: "a", Kind: ir.KindSource, Text: "7"},
			{ID: "b", Kind: ir.KindVoting, Text: "SCALAR + x", ValueType: ir.TypeScalar,
				Contributions: ir.Contributions{"u1": ir.Number(0.5)}},
			{ID: "g", Kind: ir.KindGenerator, Text: "About {x}"},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "a", End: "b", Label: "x", Directional: true},
			{ID: "c2", Start: "b", End: "g", Label: "x", Directional: true},
		},
	}

	assert.Empty(t, Validate(b))
}

func TestValidateStructureErrors(t *testing.T) {
	b := ir.Board{
		Nodes: []ir.Node{
			{ID: "", Kind: ir.KindSource},
			{ID: "a", Kind: ir.KindSource},
			{ID: "a", Kind: ir.KindSource},
			{ID: "z", Kind: "sticky"},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "a", End: "ghost", Directional: true},
			{ID: "c1", Start: "a", End: "", Directional: true},
		},
	}

	got := Validate(b)
	assert.Equal(t, []string{ErrEmptyID, ErrDuplicateID, ErrInvalidKind, ErrDanglingConnector, ErrDuplicateID}, codes(got))
	for _, f := range got {
		assert.True(t, f.IsError())
	}
}

func TestValidateContributionTypes(t *testing.T) {
	tests := []struct {
		name string
		vt   ir.ValueType
		val  ir.Value
		ok   bool
	}{
		{"scalar in range", ir.TypeScalar, ir.Number(1), true},
		{"scalar above one", ir.TypeScalar, ir.Number(1.5), false},
		{"scalar as string", ir.TypeScalar, ir.String("0.5"), false},
		{"boolean", ir.TypeBoolean, ir.Bool(true), true},
		{"boolean as number", ir.TypeBoolean, ir.Number(1), false},
		{"string", ir.TypeString, ir.String("hi"), true},
		{"rank ballot", ir.TypeRank, ir.Ballot{Up: []string{"a"}}.Value(), true},
		{"rank string", ir.TypeRank, ir.String("a"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ir.Board{Nodes: []ir.Node{{
				ID: "v", Kind: ir.KindVoting, Text: string(tt.vt), ValueType: tt.vt,
				Contributions: ir.Contributions{"u1": tt.val},
			}}}
			got := Validate(b)
			if tt.ok {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, []string{ErrContributionType}, codes(got))
			}
		})
	}
}

func TestValidateUntypedContributions(t *testing.T) {
	b := ir.Board{Nodes: []ir.Node{{
		ID: "v", Kind: ir.KindVoting, Text: "1 + 1", ValueType: ir.TypeNone,
		Contributions: ir.Contributions{"u1": ir.Number(1)},
	}}}

	assert.Equal(t, []string{ErrUntypedContribution}, codes(Validate(b)))
}

func TestValidateWiringWarnings(t *testing.T) {
	b := ir.Board{
		Nodes: []ir.Node{
			{ID: "a", Kind: ir.KindSource, Text: "1"},
			{ID: "b", Kind: ir.KindSource, Text: "2"},
			{ID: "v", Kind: ir.KindVoting, Text: "x"},
			{ID: "g", Kind: ir.KindGenerator, Text: "About {topic} and {x}"},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "a", End: "v", Label: "x", Directional: true},
			{ID: "c2", Start: "b", End: "v", Label: "x", Directional: true},
			{ID: "c3", Start: "a", End: "v", Label: "sum", Directional: true},
			{ID: "c4", Start: "b", End: "v", Label: "my label", Directional: true},
			{ID: "c5", Start: "a", End: "g", Label: "x", Directional: true},
		},
	}

	got := Validate(b)
	assert.Equal(t, []string{ErrDuplicateLabel, ErrReservedLabel, ErrUnusableLabel, ErrUnboundPlaceholder}, codes(got))
	for _, f := range got {
		assert.False(t, f.IsError())
	}
	assert.Contains(t, got[3].Message, "{topic}")
}

func TestValidateReservedLabelMessages(t *testing.T) {
	b := ir.Board{
		Nodes: []ir.Node{
			{ID: "a", Kind: ir.KindSource, Text: "1"},
			{ID: "v", Kind: ir.KindVoting, Text: "sum + 1"},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "a", End: "v", Label: "VALUES", Directional: true},
			{ID: "c2", Start: "a", End: "v", Label: "sum", Directional: true},
		},
	}

	got := Validate(b)
	require.Equal(t, []string{ErrReservedLabel, ErrReservedLabel}, codes(got))
	assert.Contains(t, got[0].Message, "shadowed by VALUES")
	assert.Contains(t, got[1].Message, "reads as the input")
}

func TestValidateReportsCycles(t *testing.T) {
	b := ir.Board{
		Nodes: []ir.Node{
			{ID: "a", Kind: ir.KindVoting, Text: "y"},
			{ID: "b", Kind: ir.KindVoting, Text: "x"},
		},
		Connectors: []ir.Connector{
			{ID: "c1", Start: "a", End: "b", Label: "x", Directional: true},
			{ID: "c2", Start: "b", End: "a", Label: "y", Directional: true},
		},
	}

	got := Validate(b)
	assert.Equal(t, []string{ErrCycle}, codes(got))
	assert.Equal(t, LevelWarning, got[0].Level)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "nodes.a", Message: "duplicate node id", Code: ErrDuplicateID, Level: LevelError}
	assert.Equal(t, "[E102] nodes.a: duplicate node id", e.Error())
}
