package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/formula"
	"github.com/OrionReed/ggraph/internal/ir"
)

func voting(text string, contribs ir.Contributions) ir.Node {
	return ir.Node{
		ID:            "n",
		Kind:          ir.KindVoting,
		Text:          text,
		ValueType:     formula.DetectType(text),
		Contributions: contribs,
	}
}

func input(v ir.Value) ir.Input {
	return ir.Input{Value: v, Text: ir.Display(v), SourceID: "src"}
}

func mustEval(t *testing.T, node ir.Node, inputs ir.InputMap) ir.Value {
	t.Helper()
	res := Evaluate(node, inputs)
	require.False(t, res.SyntaxError, "unexpected error: %v", res.Err)
	require.NoError(t, res.Err)
	return res.Value
}

// =============================================================================
// Aggregation through formulas
// =============================================================================

func TestScalarSumAndAverage(t *testing.T) {
	contribs := ir.Contributions{"alice": ir.Number(0.2), "bob": ir.Number(0.4), "carol": ir.Number(0.9)}

	sum := mustEval(t, voting("sum(SCALAR)", contribs), nil)
	assert.InDelta(t, 1.5, float64(sum.(ir.Number)), 1e-9)

	avg := mustEval(t, voting("average(SCALAR)", contribs), nil)
	assert.InDelta(t, 0.5, float64(avg.(ir.Number)), 1e-9)
}

func TestBooleanSumEqualsAverage(t *testing.T) {
	contribs := ir.Contributions{"a": ir.Bool(true), "b": ir.Bool(false), "c": ir.Bool(true)}

	assert.Equal(t, ir.Number(2), mustEval(t, voting("sum(BOOLEAN)", contribs), nil))
	assert.Equal(t, ir.Number(2), mustEval(t, voting("average(BOOLEAN)", contribs), nil))
}

func TestRankCountVotes(t *testing.T) {
	contribs := ir.Contributions{
		"alice": ir.Ballot{Up: []string{"a"}}.Value(),
		"bob":   ir.Ballot{Up: []string{"a", "b"}, Down: []string{"a"}}.Value(),
	}

	got := mustEval(t, voting("countVotes(RANK)[0].item", contribs), nil)
	assert.Equal(t, ir.String("b"), got)
}

func TestStringValuesList(t *testing.T) {
	contribs := ir.Contributions{"b": ir.String("second"), "a": ir.String("first")}
	assert.Equal(t, ir.List{ir.String("first"), ir.String("second")}, mustEval(t, voting("STRING", contribs), nil))
	assert.Equal(t, ir.Number(2), mustEval(t, voting("STRING.length", contribs), nil))
}

func TestCallFormArgumentsDoNotReachBody(t *testing.T) {
	contribs := ir.Contributions{"a": ir.Number(1), "b": ir.Number(3)}
	assert.Equal(t, ir.Number(4), mustEval(t, voting("sum(SCALAR(0.3, w))", contribs), nil))
}

// =============================================================================
// Inputs
// =============================================================================

func TestEndToEndSourcePlusContribution(t *testing.T) {
	node := voting("SCALAR + x", ir.Contributions{"alice": ir.Number(5)})
	inputs := ir.InputMap{"x": {Value: ir.Number(7), Text: "7", SourceID: "a"}}

	assert.Equal(t, ir.Number(12), mustEval(t, node, inputs))
}

func TestUnresolvedLabelIsSyntaxError(t *testing.T) {
	node := voting("SCALAR + missing", ir.Contributions{"alice": ir.Number(5)})
	node.ComputedValue = ir.Number(99)

	res := Evaluate(node, nil)
	require.True(t, res.SyntaxError)

	var undef *UndefinedError
	require.ErrorAs(t, res.Err, &undef)
	assert.Equal(t, "missing", undef.Name)

	next := node.Apply(res.Patch())
	assert.True(t, next.SyntaxError)
	assert.Equal(t, ir.Number(99), next.ComputedValue, "previous value is kept")
}

func TestSuccessClearsSyntaxError(t *testing.T) {
	node := voting("3", nil)
	node.SyntaxError = true
	node.ComputedValue = ir.Number(1)

	res := Evaluate(node, nil)
	require.False(t, res.SyntaxError)

	next := node.Apply(res.Patch())
	assert.False(t, next.SyntaxError)
	assert.Equal(t, ir.Number(3), next.ComputedValue)
}

func TestPlainValues(t *testing.T) {
	assert.Equal(t, ir.Bool(true), mustEval(t, voting("true", nil), nil))
	assert.Equal(t, ir.String("hi"), mustEval(t, voting("'hi'", nil), nil))
	assert.Equal(t, ir.Null{}, mustEval(t, voting("", nil), nil))
	assert.Equal(t, ir.Null{}, mustEval(t, voting("null", nil), nil))
}

func TestNullResultPatchesNull(t *testing.T) {
	node := voting("", nil)
	node.ComputedValue = ir.Number(5)

	next := node.Apply(Evaluate(node, nil).Patch())
	assert.Nil(t, next.ComputedValue)
	assert.False(t, next.SyntaxError)
}

// =============================================================================
// Operators
// =============================================================================

func TestOperators(t *testing.T) {
	inputs := ir.InputMap{
		"n":    input(ir.Number(4)),
		"s":    input(ir.String("ab")),
		"ns":   input(ir.String("10")),
		"yes":  input(ir.Bool(true)),
		"list": input(ir.List{ir.Number(1), ir.Number(2)}),
		"obj":  input(ir.Object{"k": ir.Number(9)}),
	}

	tests := []struct {
		src  string
		want ir.Value
	}{
		{"1 + 2 * 3", ir.Number(7)},
		{"(1 + 2) * 3", ir.Number(9)},
		{"n / 8", ir.Number(0.5)},
		{"n % 3", ir.Number(1)},
		{"-n", ir.Number(-4)},
		{"s + n", ir.String("ab4")},
		{"'x' + true", ir.String("xtrue")},
		{"'v: ' + list", ir.String("v: 1,2")},
		{"ns * 2", ir.Number(20)},
		{"yes + 1", ir.Number(2)},
		{"n > 3 && n < 5", ir.Bool(true)},
		{"'a' < 'b'", ir.Bool(true)},
		{"ns == 10", ir.Bool(true)},
		{"ns === 10", ir.Bool(false)},
		{"ns !== '10'", ir.Bool(false)},
		{"list == [1, 2]", ir.Bool(true)},
		{"0 || 'fallback'", ir.String("fallback")},
		{"0 && missing", ir.Number(0)},
		{"!yes", ir.Bool(false)},
		{"n > 3 ? 'big' : 'small'", ir.String("big")},
		{"list[1]", ir.Number(2)},
		{"list[5]", ir.Null{}},
		{"list.length", ir.Number(2)},
		{"s[0]", ir.String("a")},
		{"obj.k", ir.Number(9)},
		{"obj['k']", ir.Number(9)},
		{"obj.missing", ir.Null{}},
		{"[n, s]", ir.List{ir.Number(4), ir.String("ab")}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, mustEval(t, voting(tt.src, nil), inputs))
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	inputs := ir.InputMap{
		"n":    input(ir.Number(4)),
		"nul":  input(ir.Null{}),
		"list": input(ir.List{ir.Number(1), ir.Number(2)}),
	}

	tests := []struct {
		name string
		src  string
	}{
		{"bare builtin", "sum"},
		{"builtin in list", "[average]"},
		{"unknown function", "max(1, 2)"},
		{"call an input", "n(1)"},
		{"division by zero", "n / 0"},
		{"modulo by zero", "n % 0"},
		{"null arithmetic", "nul + 1"},
		{"text arithmetic", "'abc' * 2"},
		{"multi element list arithmetic", "list * 2"},
		{"field of number", "n.length"},
		{"index of number", "n[0]"},
		{"fractional index", "list[0.5]"},
		{"wrong builtin arity", "sum(1)"},
		{"free text", "How much do you like pizza? SCALAR"},
		{"infinite result", "1e308 * 10"},
		{"nan in list", "[1e308 * 10 - 1e308 * 10]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(voting(tt.src, nil), inputs)
			assert.True(t, res.SyntaxError)
			assert.Error(t, res.Err)
			assert.Nil(t, res.Value)
		})
	}
}

func TestReservedLabels(t *testing.T) {
	inputs := ir.InputMap{
		"sum":    input(ir.Number(4)),
		"VALUES": input(ir.Number(100)),
	}
	contribs := ir.Contributions{"u1": ir.Number(1), "u2": ir.Number(2)}

	// A label named like a built-in reads as the input.
	assert.Equal(t, ir.Number(5), mustEval(t, voting("sum + 1", nil), inputs))
	// Calls still reach the built-in.
	assert.Equal(t, ir.Number(7), mustEval(t, voting("sum(SCALAR) + sum", contribs), inputs))
	// VALUES names the contributions over the input.
	assert.Equal(t, ir.List{ir.Number(1), ir.Number(2)}, mustEval(t, voting("SCALAR", contribs), inputs))
}

func TestAbsentInputIsUnbound(t *testing.T) {
	res := Evaluate(voting("x", nil), ir.InputMap{"x": {Value: nil, SourceID: "a"}})
	assert.True(t, res.SyntaxError)
}

func TestSelectorIgnoredInBody(t *testing.T) {
	node := voting("sum(SCALAR) @alice", ir.Contributions{"alice": ir.Number(2), "bob": ir.Number(3)})
	assert.Equal(t, ir.Number(5), mustEval(t, node, nil))
}

func TestContributionsOrderIsByContributor(t *testing.T) {
	node := voting("STRING[0]", ir.Contributions{"zed": ir.String("last"), "amy": ir.String("first")})
	assert.Equal(t, ir.String("first"), mustEval(t, node, nil))
}

// =============================================================================
// Generator prompts
// =============================================================================

func TestGeneratorPrompt(t *testing.T) {
	inputs := ir.InputMap{
		"topic": {Value: ir.String("cats"), Text: "cats", SourceID: "a"},
		"score": {Value: ir.Number(0.5), Text: "0.5", SourceID: "b"},
	}

	got := GeneratorPrompt("Write about {topic} ({topic}) rated {score}, ignoring {missing}.", inputs)
	assert.Equal(t, "Write about cats (cats) rated 0.5, ignoring {missing}.", got)
}

func TestGeneratorPromptObjectKeepsMarkup(t *testing.T) {
	inputs := ir.InputMap{"votes": input(ir.Object{"Q&A": ir.Number(2), "<none>": ir.Number(1)})}
	assert.Equal(t, `tally: {"<none>":1,"Q&A":2}`, GeneratorPrompt("tally: {votes}", inputs))
}

func TestGeneratorPromptNoResubstitution(t *testing.T) {
	inputs := ir.InputMap{
		"a": {Text: "{b}"},
		"b": {Text: "B"},
	}
	assert.Equal(t, "{b} B", GeneratorPrompt("{a} {b}", inputs))
}

func TestGeneratorPromptNormalizesTemplate(t *testing.T) {
	// Labels are stored composed; the template spells the same word decomposed.
	inputs := ir.InputMap{"\u00e9t\u00e9": {Text: "summer"}}
	assert.Equal(t, "in summer", GeneratorPrompt("in {e\u0301te\u0301}", inputs))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("{a} and {b} and {a} and {} and {c"))
	assert.Empty(t, Placeholders("no placeholders"))
}
