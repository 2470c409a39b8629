package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

func call(t *testing.T, vt ir.ValueType, name string, args ...ir.Value) ir.Value {
	t.Helper()
	v, err := For(vt)[name](args)
	require.NoError(t, err)
	return v
}

func TestForHasExactlyThreeFunctions(t *testing.T) {
	set := For(ir.TypeScalar)
	assert.Len(t, set, 3)
	for _, name := range Names {
		assert.Contains(t, set, name)
		assert.True(t, IsBuiltin(name))
	}
	assert.False(t, IsBuiltin("VALUES"))
}

// =============================================================================
// sum / average
// =============================================================================

func TestSumScalar(t *testing.T) {
	vals := ir.List{ir.Number(1), ir.Number(2.5), ir.Number(0.5)}
	assert.Equal(t, ir.Number(4), call(t, ir.TypeScalar, "sum", vals))
	assert.Equal(t, ir.Number(0), call(t, ir.TypeScalar, "sum", ir.List{}))
}

func TestAverageScalar(t *testing.T) {
	vals := ir.List{ir.Number(1), ir.Number(2), ir.Number(6)}
	assert.Equal(t, ir.Number(3), call(t, ir.TypeScalar, "average", vals))
}

func TestAverageScalarEmpty(t *testing.T) {
	assert.Equal(t, ir.Null{}, call(t, ir.TypeScalar, "average", ir.List{}))
}

func TestBooleanSumAndAverageCountTrue(t *testing.T) {
	vals := ir.List{ir.Bool(true), ir.Bool(false), ir.Bool(true), ir.Bool(true)}
	assert.Equal(t, ir.Number(3), call(t, ir.TypeBoolean, "sum", vals))
	assert.Equal(t, ir.Number(3), call(t, ir.TypeBoolean, "average", vals))
}

func TestSumAverageOtherTypesAreNull(t *testing.T) {
	vals := ir.List{ir.String("a"), ir.String("b")}
	for _, vt := range []ir.ValueType{ir.TypeString, ir.TypeRank, ir.TypeNone} {
		assert.Equal(t, ir.Null{}, call(t, vt, "sum", vals), vt)
		assert.Equal(t, ir.Null{}, call(t, vt, "average", vals), vt)
	}
}

func TestSumScalarRejectsNonNumbers(t *testing.T) {
	_, err := For(ir.TypeScalar)["sum"]([]ir.Value{ir.List{ir.Number(1), ir.String("x")}})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "sum", argErr.Func)
}

func TestArgumentShape(t *testing.T) {
	set := For(ir.TypeScalar)
	for _, name := range Names {
		_, err := set[name](nil)
		assert.Error(t, err, name)

		_, err = set[name]([]ir.Value{ir.Number(1)})
		assert.Error(t, err, name)

		_, err = set[name]([]ir.Value{ir.List{}, ir.List{}})
		assert.Error(t, err, name)
	}
}

// =============================================================================
// countVotes
// =============================================================================

func ballot(up, down []string) ir.Value {
	return ir.Ballot{Up: up, Down: down}.Value()
}

func TestCountVotes(t *testing.T) {
	ballots := ir.List{
		ballot([]string{"a"}, nil),
		ballot([]string{"a", "b"}, []string{"a"}),
	}

	got := call(t, ir.TypeRank, "countVotes", ballots)
	assert.Equal(t, ir.List{
		ir.Object{"item": ir.String("b"), "score": ir.Number(1)},
		ir.Object{"item": ir.String("a"), "score": ir.Number(0)},
	}, got)
}

func TestCountVotesNegativeAndTies(t *testing.T) {
	ballots := ir.List{
		ballot([]string{"x", "y"}, []string{"z"}),
		ballot(nil, []string{"z"}),
	}

	got := call(t, ir.TypeRank, "countVotes", ballots)
	assert.Equal(t, ir.List{
		ir.Object{"item": ir.String("x"), "score": ir.Number(1)},
		ir.Object{"item": ir.String("y"), "score": ir.Number(1)},
		ir.Object{"item": ir.String("z"), "score": ir.Number(-2)},
	}, got)
}

func TestCountVotesSkipsMissingBallots(t *testing.T) {
	got := call(t, ir.TypeRank, "countVotes", ir.List{ir.Null{}, ballot([]string{"a"}, nil)})
	assert.Equal(t, ir.List{ir.Object{"item": ir.String("a"), "score": ir.Number(1)}}, got)
}

func TestCountVotesEmpty(t *testing.T) {
	assert.Equal(t, ir.List{}, call(t, ir.TypeRank, "countVotes", ir.List{}))
}

func TestCountVotesRejectsMalformedBallot(t *testing.T) {
	_, err := For(ir.TypeRank)["countVotes"]([]ir.Value{ir.List{ir.Number(3)}})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Contains(t, argErr.Error(), "ballot 0")
}

func TestCountVotesBallotCountsItemOnce(t *testing.T) {
	got := call(t, ir.TypeRank, "countVotes", ir.List{
		ballot([]string{"a", "a"}, []string{"b", "b"}),
	})
	assert.Equal(t, ir.List{
		ir.Object{"item": ir.String("a"), "score": ir.Number(1)},
		ir.Object{"item": ir.String("b"), "score": ir.Number(-1)},
	}, got)
}
