package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"integer", Number(42), "42"},
		{"negative", Number(-100), "-100"},
		{"fraction", Number(0.25), "0.25"},
		{"negative zero", Number(math.Copysign(0, -1)), "0"},
		{"exponent", Number(1e21), "1e+21"},
		{"bool true", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"nil", nil, "null"},
		{"empty list", List{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"list", List{Number(1), String("a"), Null{}}, `[1,"a",null]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalRejectsNonFinite(t *testing.T) {
	_, err := MarshalCanonical(Number(math.NaN()))
	assert.Error(t, err)

	_, err = MarshalCanonical(Object{"a": List{Number(math.Inf(-1))}})
	assert.Error(t, err)
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Number(1),
		"alpha": Number(2),
		"beta":  Object{"y": Number(1), "x": Number(2)},
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+1F600 encodes as the surrogate pair D83D DE00, which sorts before
	// U+FF21 in UTF-16 even though its UTF-8 bytes sort after.
	obj := Object{
		"\uFF21":     Number(1),
		"\U0001F600": Number(2),
	}

	result, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFF21\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(result))
}

func TestMarshalCanonicalNFCNormalization(t *testing.T) {
	decomposed, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	composed, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestMarshalCanonicalStringEscaping(t *testing.T) {
	result, err := MarshalCanonical(String("a\"b\\c\n"))
	require.NoError(t, err)
	assert.Equal(t, `"a\"b\\c\n"`, string(result))
}

func TestMarshalCanonicalU2028U2029NotEscaped(t *testing.T) {
	result, err := MarshalCanonical(String("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(result))
}

func TestMarshalCanonicalLiteralBackslashU2028(t *testing.T) {
	// A literal backslash followed by the text "u2028" must stay escaped.
	result, err := MarshalCanonical(String(`\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(result))
}
