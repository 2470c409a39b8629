package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/queryir"
)

func TestCompile_SimpleSelect(t *testing.T) {
	sql, params, err := Compile(queryir.Select{
		From:    "evaluations",
		Columns: []string{"id", "seq"},
		Filter:  queryir.Equals{Field: "board", Value: ir.String("Poll")},
		OrderBy: []string{"seq"},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, seq FROM evaluations WHERE board = ? ORDER BY seq ASC, id COLLATE BINARY ASC", sql)
	assert.Equal(t, []any{"Poll"}, params)
	assert.NotContains(t, sql, "Poll")
}

func TestCompile_NoFilterStillOrders(t *testing.T) {
	sql, params, err := Compile(&queryir.Select{From: "evaluations", Columns: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM evaluations ORDER BY id COLLATE BINARY ASC", sql)
	assert.Empty(t, params)
}

func TestCompile_IDOrderKeyNotRepeated(t *testing.T) {
	sql, _, err := Compile(queryir.Select{From: "evaluations", Columns: []string{"id"}, OrderBy: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, "SELECT id FROM evaluations ORDER BY id COLLATE BINARY ASC", sql)
}

func TestCompile_AndIn(t *testing.T) {
	sql, params, err := Compile(queryir.Select{
		From:    "evaluations",
		Columns: []string{"id"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "board", Value: ir.String("Poll")},
			&queryir.In{Field: "trigger", Values: []ir.Value{ir.String("explicit"), ir.String("upstream")}},
			queryir.Equals{Field: "seq", Value: ir.Number(3)},
			queryir.Equals{Field: "syntax_error", Value: ir.Bool(false)},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id FROM evaluations WHERE board = ? AND trigger IN (?, ?) AND seq = ? AND syntax_error = ? ORDER BY id COLLATE BINARY ASC",
		sql)
	assert.Equal(t, []any{"Poll", "explicit", "upstream", int64(3), false}, params)
}

func TestCompile_EmptyAnd(t *testing.T) {
	sql, params, err := Compile(queryir.Select{
		From:    "evaluations",
		Columns: []string{"id"},
		Filter:  queryir.And{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "WHERE 1 = 1")
	assert.Empty(t, params)
}

func TestCompile_FractionalNumberStaysFloat(t *testing.T) {
	_, params, err := Compile(queryir.Select{
		From:    "evaluations",
		Columns: []string{"id"},
		Filter:  queryir.Equals{Field: "seq", Value: ir.Number(1.5)},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{1.5}, params)
}

func TestCompile_RejectsInvalidQuery(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		want  string
	}{
		{
			name:  "unknown table",
			query: queryir.Select{From: "flows", Columns: []string{"id"}},
			want:  `unknown table "flows"`,
		},
		{
			name:  "unknown column",
			query: queryir.Select{From: "evaluations", Columns: []string{"nope"}},
			want:  "unknown column evaluations.nope",
		},
		{
			name: "null literal",
			query: queryir.Select{
				From:    "evaluations",
				Columns: []string{"id"},
				Filter:  queryir.Equals{Field: "wave", Value: ir.Null{}},
			},
			want: "wave compared with null",
		},
		{
			name:  "nil query",
			query: nil,
			want:  "nil query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Compile(tt.query)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
