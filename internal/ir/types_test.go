package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceToken(t *testing.T) {
	assert.Equal(t, Bool(true), CoerceToken("true"))
	assert.Equal(t, Bool(false), CoerceToken("false"))
	assert.Equal(t, Number(0.3), CoerceToken("0.3"))
	assert.Equal(t, String("someLabel"), CoerceToken("someLabel"))
	assert.Equal(t, String("True"), CoerceToken("True"))
}

func TestCoerceText(t *testing.T) {
	v, ok := CoerceText(" 7 ")
	require.True(t, ok)
	assert.Equal(t, Number(7), v)

	v, ok = CoerceText("hello world")
	require.True(t, ok)
	assert.Equal(t, String("hello world"), v)

	_, ok = CoerceText("   ")
	assert.False(t, ok)
}

func TestParseValueType(t *testing.T) {
	assert.Equal(t, TypeScalar, ParseValueType("scalar"))
	assert.Equal(t, TypeRank, ParseValueType(" RANK "))
	assert.Equal(t, TypeNone, ParseValueType("NUMBER"))
	assert.Equal(t, TypeNone, ParseValueType(""))
}

func TestDefaultContribution(t *testing.T) {
	assert.Equal(t, Number(0), DefaultContribution(TypeScalar))
	assert.Equal(t, Bool(false), DefaultContribution(TypeBoolean))
	assert.Equal(t, Null{}, DefaultContribution(TypeString))
	assert.Equal(t, Null{}, DefaultContribution(TypeRank))
	assert.Equal(t, Null{}, DefaultContribution(TypeNone))
}

func TestContributionsOrdered(t *testing.T) {
	c := Contributions{
		"carol": Number(3),
		"alice": Number(1),
		"bob":   nil,
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, c.Contributors())
	assert.Equal(t, List{Number(1), Null{}, Number(3)}, c.Ordered())

	assert.Equal(t, List{}, Contributions(nil).Ordered())
}

func TestNodeValue(t *testing.T) {
	t.Run("source text", func(t *testing.T) {
		v, ok := Node{Kind: KindSource, Text: "7"}.Value()
		require.True(t, ok)
		assert.Equal(t, Number(7), v)
	})

	t.Run("blank source", func(t *testing.T) {
		_, ok := Node{Kind: KindSource, Text: ""}.Value()
		assert.False(t, ok)
	})

	t.Run("voting computed", func(t *testing.T) {
		v, ok := Node{Kind: KindVoting, ComputedValue: Number(12)}.Value()
		require.True(t, ok)
		assert.Equal(t, Number(12), v)
	})

	t.Run("voting in error", func(t *testing.T) {
		_, ok := Node{Kind: KindVoting, ComputedValue: Number(12), SyntaxError: true}.Value()
		assert.False(t, ok)
	})

	t.Run("voting never evaluated", func(t *testing.T) {
		_, ok := Node{Kind: KindVoting}.Value()
		assert.False(t, ok)
	})

	t.Run("generator output", func(t *testing.T) {
		v, ok := Node{Kind: KindGenerator, Output: "a poem"}.Value()
		require.True(t, ok)
		assert.Equal(t, String("a poem"), v)
	})

	t.Run("generator without output", func(t *testing.T) {
		_, ok := Node{Kind: KindGenerator}.Value()
		assert.False(t, ok)
	})
}

func TestNodeApply(t *testing.T) {
	orig := Node{
		ID:            "b",
		Kind:          KindVoting,
		Text:          "SCALAR + x",
		ValueType:     TypeScalar,
		Contributions: Contributions{"alice": Number(5)},
		ComputedValue: Number(12),
	}

	t.Run("empty patch is identity", func(t *testing.T) {
		assert.True(t, Patch{}.IsEmpty())
		assert.Equal(t, orig, orig.Apply(Patch{}))
	})

	t.Run("fields set independently", func(t *testing.T) {
		next := orig.Apply(Patch{SyntaxError: Ptr(true)})
		assert.True(t, next.SyntaxError)
		assert.Equal(t, Number(12), next.ComputedValue)
		assert.False(t, orig.SyntaxError, "original must not change")
	})

	t.Run("null clears computed value", func(t *testing.T) {
		next := orig.Apply(Patch{ComputedValue: Null{}})
		assert.Nil(t, next.ComputedValue)
	})

	t.Run("empty contributions clear the map", func(t *testing.T) {
		next := orig.Apply(Patch{ValueType: Ptr(TypeBoolean), Contributions: Contributions{}})
		assert.Equal(t, TypeBoolean, next.ValueType)
		assert.Empty(t, next.Contributions)
		assert.Len(t, orig.Contributions, 1)
	})

	t.Run("result does not alias contributions", func(t *testing.T) {
		next := orig.Apply(Patch{})
		next.Contributions["bob"] = Number(1)
		assert.Len(t, orig.Contributions, 1)
	})
}

func TestPatchMerge(t *testing.T) {
	a := Patch{ValueType: Ptr(TypeScalar), SyntaxError: Ptr(true)}
	b := Patch{SyntaxError: Ptr(false), ComputedValue: Number(3)}

	merged := a.Merge(b)
	assert.Equal(t, TypeScalar, *merged.ValueType)
	assert.False(t, *merged.SyntaxError)
	assert.Equal(t, Number(3), merged.ComputedValue)
}

func TestNodeJSON(t *testing.T) {
	n := Node{
		ID:            "b",
		Kind:          KindVoting,
		Text:          "RANK countVotes(RANK)",
		ValueType:     TypeRank,
		Contributions: Contributions{"alice": Ballot{Up: []string{"a"}}.Value()},
		ComputedValue: List{Object{"item": String("a"), "score": Number(1)}},
	}

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var got Node
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, n.ID, got.ID)
	assert.Equal(t, n.ValueType, got.ValueType)
	assert.True(t, Equal(n.ComputedValue, got.ComputedValue))
	assert.True(t, Equal(Object(n.Contributions), Object(got.Contributions)))
}

func TestNodeJSONNullComputedValue(t *testing.T) {
	var got Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a","kind":"voting","text":"","computed_value":null}`), &got))
	assert.Nil(t, got.ComputedValue)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "x", NormalizeLabel("  x \n"))
	// "e" + combining acute composes to a single rune under NFC.
	assert.Equal(t, "\u00e9", NormalizeLabel("e\u0301"))
}

func TestBoardNode(t *testing.T) {
	b := Board{Nodes: []Node{{ID: "a"}, {ID: "b"}}}
	n, ok := b.Node("b")
	require.True(t, ok)
	assert.Equal(t, "b", n.ID)

	_, ok = b.Node("c")
	assert.False(t, ok)
}

func TestDecodeBallot(t *testing.T) {
	t.Run("from decoded map", func(t *testing.T) {
		b, err := DecodeBallot(map[string]any{"up": []any{"a", "b"}, "down": []any{"c"}})
		require.NoError(t, err)
		assert.Equal(t, Ballot{Up: []string{"a", "b"}, Down: []string{"c"}}, b)
	})

	t.Run("from value", func(t *testing.T) {
		b, err := DecodeBallot(Object{"up": List{String("a")}})
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, b.Up)
		assert.Empty(t, b.Down)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := DecodeBallot(map[string]any{"sideways": []any{"a"}})
		assert.Error(t, err)
	})

	t.Run("not an object", func(t *testing.T) {
		_, err := DecodeBallot(Number(3))
		assert.Error(t, err)
	})

	t.Run("null", func(t *testing.T) {
		_, err := DecodeBallot(Null{})
		assert.Error(t, err)
	})
}

func TestBallotValue(t *testing.T) {
	v := Ballot{Up: []string{"a"}, Down: nil}.Value()
	assert.Equal(t, Object{"up": List{String("a")}, "down": List{}}, v)
}
