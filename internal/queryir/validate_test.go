package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

func TestValidate_ValidSelect(t *testing.T) {
	r := Validate(Select{
		From:    "evaluations",
		Columns: []string{"id", "seq", "wave"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "board", Value: ir.String("Poll")},
			&In{Field: "trigger", Values: []ir.Value{ir.String("explicit")}},
		}},
		OrderBy: []string{"seq"},
	})
	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	assert.NoError(t, r.Err())
}

func TestValidate_CollectsEveryError(t *testing.T) {
	r := Validate(&Select{
		From:    "evaluations",
		Columns: []string{"id", "colour"},
		Filter: And{Predicates: []Predicate{
			Equals{Field: "board", Value: ir.List{}},
			In{Field: "trigger"},
			nil,
		}},
		OrderBy: []string{"time"},
	})
	require.False(t, r.Valid)
	assert.Equal(t, []string{
		"unknown column evaluations.colour",
		"unknown column evaluations.time",
		"board compared with list",
		"trigger IN () matches nothing",
		"nil predicate",
	}, r.Errors)
	assert.EqualError(t, r.Err(), "invalid query: unknown column evaluations.colour (and 4 more)")
}

func TestValidate_NoColumns(t *testing.T) {
	r := Validate(Select{From: "evaluations"})
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"select from evaluations names no columns"}, r.Errors)
}

func TestValidate_UnknownTableStopsEarly(t *testing.T) {
	r := Validate(Select{From: "actions", Columns: []string{"x"}})
	assert.Equal(t, []string{`unknown table "actions"`}, r.Errors)
}

func TestConjoin(t *testing.T) {
	a := Equals{Field: "board", Value: ir.String("b")}
	b := Equals{Field: "wave", Value: ir.String("w")}

	assert.Nil(t, Conjoin())
	assert.Nil(t, Conjoin(nil, nil))
	assert.Equal(t, a, Conjoin(nil, a))
	assert.Equal(t, And{Predicates: []Predicate{a, b}}, Conjoin(a, nil, b))
}

func TestHasColumn(t *testing.T) {
	assert.True(t, HasColumn("evaluations", "node_id"))
	assert.False(t, HasColumn("evaluations", "flow_token"))
	assert.False(t, HasColumn("nodes", "id"))
}
