package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	harnessScenarios = "../harness/testdata/scenarios"
	harnessGolden    = "../harness/testdata/golden"
)

const failingScenario = `name: wrong_sum
cue: |
  board: Sum: nodes: total: {kind: "voting", text: "sum(SCALAR)", contributions: {a: 1, b: 2}}
steps:
  - op: evaluate_all
assertions:
  - type: value
    node: total
    expect: 4
`

func TestTestCommandPasses(t *testing.T) {
	out, _, err := execute(t, "test", harnessScenarios, "--golden", harnessGolden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ end_to_end")
	assert.Contains(t, out, "✓ rank_votes")
	assert.Contains(t, out, "Test Summary: 4 passed, 0 failed, 4 total")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommandFilter(t *testing.T) {
	out, _, err := execute(t, "test", harnessScenarios, "--golden", harnessGolden, "--filter", "eager_*", "--format", "json")
	require.NoError(t, err)

	var result TestResult
	resp := decode(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "eager_chain", result.Scenarios[0].Name)
}

func TestTestCommandFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_sum.yaml"), []byte(failingScenario), 0o644))

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_sum")
	assert.Contains(t, out, "Test Summary: 0 passed, 1 failed, 1 total")

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	resp := decode(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommandUpdateWritesGolden(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(harnessScenarios, "eager_chain.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "eager_chain.yaml"), data, 0o644))

	_, _, err = execute(t, "test", dir, "--update")
	require.NoError(t, err)

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "eager_chain.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(harnessGolden, "eager_chain.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	// A tampered golden file fails the run.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "eager_chain.golden"), []byte("{}\n"), 0o644))
	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandMissingPath(t *testing.T) {
	_, _, err := execute(t, "test", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
