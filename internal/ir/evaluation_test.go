package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeEqual(t *testing.T) {
	base := Node{
		ID:            "b",
		Kind:          KindVoting,
		Text:          "SCALAR + x",
		ValueType:     TypeScalar,
		Contributions: Contributions{"u1": Number(5)},
		ComputedValue: Number(12),
	}

	t.Run("identical", func(t *testing.T) {
		assert.True(t, base.Equal(base.Apply(Patch{})))
	})

	t.Run("computed value differs", func(t *testing.T) {
		other := base.Apply(Patch{ComputedValue: Number(13)})
		assert.False(t, base.Equal(other))
	})

	t.Run("cleared computed value differs", func(t *testing.T) {
		other := base.Apply(Patch{ComputedValue: Null{}})
		assert.False(t, base.Equal(other))
	})

	t.Run("contribution differs", func(t *testing.T) {
		other := base.Apply(Patch{Contributions: Contributions{"u1": Number(6)}})
		assert.False(t, base.Equal(other))
	})

	t.Run("nil and empty contributions are equal", func(t *testing.T) {
		a := Node{ID: "a", Kind: KindSource}
		b := Node{ID: "a", Kind: KindSource, Contributions: Contributions{}}
		assert.True(t, a.Equal(b))
	})

	t.Run("generation differs", func(t *testing.T) {
		other := base.Apply(Patch{Generation: Ptr[int64](1)})
		assert.False(t, base.Equal(other))
	})
}

func TestEvaluationJSONRoundTrip(t *testing.T) {
	ev := Evaluation{
		ID:      "e1",
		Seq:     3,
		Wave:    "wave-1",
		NodeID:  "b",
		Trigger: TriggerUpstream,
		Inputs:  InputMap{"x": {Value: Number(7), Text: "7", SourceID: "a"}},
		Value:   List{String("cats"), Number(2)},
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var got Evaluation
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ev, got)
}

func TestEvaluationJSONNullValue(t *testing.T) {
	var got Evaluation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e2","value":null,"syntax_error":true,"inputs":{}}`), &got))
	assert.True(t, IsNull(got.Value))
	assert.True(t, got.SyntaxError)
	assert.Empty(t, got.Inputs)
}
