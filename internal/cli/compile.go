package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/compiler"
	"github.com/OrionReed/ggraph/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Board  string // compile only this board
	Output string // output file path
}

// CompiledBoard is one board in compile output.
type CompiledBoard struct {
	Name  string   `json:"name"`
	Hash  string   `json:"hash"`
	Board ir.Board `json:"board"`
}

// CompilationResult holds the compiled boards.
type CompilationResult struct {
	Boards []CompiledBoard `json:"boards"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Compile CUE boards to JSON",
		Long: `Compile the boards declared in a CUE file or directory.

Every board under the top-level "board" field is compiled to the node and
connector snapshot the engine runs on. Value types and selectors are
derived from the formulas at compile time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Board, "board", "", "compile only the named board")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadBoards(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, path)

	specs := loaded.Boards
	if opts.Board != "" {
		spec, err := compiler.SelectBoard(specs, opts.Board)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeSelect, err.Error())
		}
		specs = []*compiler.BoardSpec{spec}
	}

	result := CompilationResult{Boards: make([]CompiledBoard, 0, len(specs))}
	for _, spec := range specs {
		formatter.VerboseLog("Compiling board: %s", spec.Name)
		hash, err := ir.BoardHash(spec.Board)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("hashing board %s: %v", spec.Name, err))
		}
		result.Boards = append(result.Boards, CompiledBoard{Name: spec.Name, Hash: hash, Board: spec.Board})
	}

	if opts.Output != "" {
		if err := writeResultFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d board(s)\n\n", len(result.Boards))
	for _, b := range result.Boards {
		fmt.Fprintf(w, "  %s: %d node(s), %d connector(s)\n", b.Name, len(b.Board.Nodes), len(b.Board.Connectors))
	}
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote boards to %s\n", opts.Output)
	}
	return nil
}

// writeResultFile writes v as indented JSON. Canonical JSON is only used
// for hashing.
func writeResultFile(v any, filename string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
