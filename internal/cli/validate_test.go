package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/compiler"
)

func TestValidateValidBoard(t *testing.T) {
	out, _, err := execute(t, "validate", pollBoard)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Poll")
	assert.Contains(t, out, "All boards valid")
}

func TestValidateInvalidBoard(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/boards/invalid.cue")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✗ Broken")
	assert.Contains(t, out, compiler.ErrDanglingConnector)
}

func TestValidateJSON(t *testing.T) {
	out, _, err := execute(t, "validate", "testdata/boards/invalid.cue", "--format", "json")
	require.Error(t, err)

	var result ValidationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.False(t, result.Valid)
	require.Len(t, result.Boards, 1)

	var codes []string
	for _, f := range result.Boards[0].Findings {
		codes = append(codes, f.Code)
	}
	assert.Contains(t, codes, compiler.ErrDanglingConnector)
}
