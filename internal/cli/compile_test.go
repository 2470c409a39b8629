package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OrionReed/ggraph/internal/ir"
)

func TestCompileText(t *testing.T) {
	out, _, err := execute(t, "compile", pollBoard)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 1 board(s)")
	assert.Contains(t, out, "Poll: 3 node(s), 2 connector(s)")
}

func TestCompileJSON(t *testing.T) {
	out, _, err := execute(t, "compile", pollBoard, "--format", "json")
	require.NoError(t, err)

	var result CompilationResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Boards, 1)

	b := result.Boards[0]
	assert.Equal(t, "Poll", b.Name)
	assert.Len(t, b.Hash, 64)

	score, ok := b.Board.Node("score")
	require.True(t, ok)
	assert.Equal(t, ir.TypeScalar, score.ValueType)
	assert.Len(t, score.Contributions, 2)
}

func TestCompileSelectsBoard(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/boards/several.cue", "--board", "Second")
	require.NoError(t, err)
	assert.Contains(t, out, "Second: 2 node(s), 1 connector(s)")
	assert.NotContains(t, out, "First")

	_, _, err = execute(t, "compile", "testdata/boards/several.cue", "--board", "Third")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileWritesOutputFile(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "boards.json")

	out, _, err := execute(t, "compile", pollBoard, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote boards to "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Boards, 1)
	assert.Equal(t, "Poll", result.Boards[0].Name)
}

func TestCompileMissingPath(t *testing.T) {
	out, _, err := execute(t, "compile", "testdata/missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
