package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const pollBoard = "testdata/boards/poll.cue"

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decode parses a JSON envelope and re-decodes its data into out.
func decode(t *testing.T, output string, out any) CLIResponse {
	t.Helper()

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	if out != nil {
		data, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return resp
}

// importPoll creates a database holding the Poll board.
func importPoll(t *testing.T) string {
	t.Helper()

	db := filepath.Join(t.TempDir(), "ggraph.db")
	_, _, err := execute(t, "import", pollBoard, "--db", db)
	require.NoError(t, err)
	return db
}

func nodeByID(t *testing.T, nodes []nodeResult, id string) nodeResult {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	require.Failf(t, "node missing", "no node %s in %v", id, nodes)
	return nodeResult{}
}
