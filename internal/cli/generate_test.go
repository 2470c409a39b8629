package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// completionServer streams chunks as chat completion deltas and records the
// prompt it was sent.
func completionServer(t *testing.T, chunks ...string) (*httptest.Server, *string) {
	t.Helper()

	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
			Stream bool `json:"stream"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.NotEmpty(t, req.Messages) {
			prompt = req.Messages[len(req.Messages)-1].Content
		}
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			data, _ := json.Marshal(map[string]any{
				"choices": []any{map[string]any{"delta": map[string]string{"content": c}}},
			})
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv, &prompt
}

func TestGenerate(t *testing.T) {
	db := importPoll(t)
	_, _, err := execute(t, "eval", "--db", db, "--board", "Poll")
	require.NoError(t, err)

	srv, prompt := completionServer(t, "High ", "score")

	out, _, err := execute(t, "generate", "summary",
		"--db", db, "--board", "Poll",
		"--base-url", srv.URL, "--api-key", "test-key",
		"--format", "json")
	require.NoError(t, err)

	var result GenerateResult
	decode(t, out, &result)
	assert.Equal(t, "summary", result.Node)
	assert.Equal(t, "Score is 3.5", result.Prompt)
	assert.Equal(t, "Score is 3.5", *prompt)
	assert.Equal(t, "High score", result.Output)
	assert.Equal(t, int64(1), result.Generation)

	// The output is saved with the board.
	b := exportPoll(t, db)
	summary, ok := b.Node("summary")
	require.True(t, ok)
	assert.Equal(t, "High score", summary.Output)
	assert.Empty(t, summary.Pending)
}

func TestGenerateAPIKeyFromEnv(t *testing.T) {
	db := importPoll(t)
	srv, _ := completionServer(t, "ok")
	t.Setenv(APIKeyEnv, "test-key")

	out, _, err := execute(t, "generate", "summary", "--db", db, "--board", "Poll", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "| summary | generator |  | Score is {score} | ok |")
}

func TestGeneratePromptOnly(t *testing.T) {
	db := importPoll(t)
	_, _, err := execute(t, "eval", "--db", db, "--board", "Poll")
	require.NoError(t, err)

	out, _, err := execute(t, "generate", "summary", "--prompt-only", "--db", db, "--board", "Poll")
	require.NoError(t, err)
	assert.Equal(t, "Score is 3.5\n", out)
}

func TestGenerateRejectsVotingNode(t *testing.T) {
	db := importPoll(t)

	_, _, err := execute(t, "generate", "score", "--prompt-only", "--db", db, "--board", "Poll")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGenerateServerError(t *testing.T) {
	db := importPoll(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, _, err := execute(t, "generate", "summary",
		"--db", db, "--board", "Poll", "--base-url", srv.URL, "--api-key", "k")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "503")

	summary, ok := exportPoll(t, db).Node("summary")
	require.True(t, ok)
	assert.Empty(t, summary.Output)
	assert.Empty(t, summary.Pending)
}
