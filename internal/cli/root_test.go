package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"compile", "validate", "import", "export", "eval", "vote", "edit", "generate", "test", "trace"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandRejectsUnknownFormat(t *testing.T) {
	_, _, err := execute(t, "compile", pollBoard, "--format", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", errors.New("cause")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "outer: inner: cause", wrapped.Error())
}

func TestLoggerLevelFollowsVerbose(t *testing.T) {
	ctx := context.Background()

	quiet := (&RootOptions{Format: "text"}).logger(io.Discard)
	assert.False(t, quiet.Enabled(ctx, slog.LevelDebug))
	assert.True(t, quiet.Enabled(ctx, slog.LevelWarn))

	loud := (&RootOptions{Format: "json", Verbose: true}).logger(io.Discard)
	assert.True(t, loud.Enabled(ctx, slog.LevelDebug))
}
