package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/compiler"
	"github.com/OrionReed/ggraph/internal/ir"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	BoardOptions
	Evaluate bool
}

// ImportResult describes an imported board.
type ImportResult struct {
	Name       string `json:"name"`
	Hash       string `json:"hash"`
	Nodes      int    `json:"nodes"`
	Connectors int    `json:"connectors"`
	Evaluated  int    `json:"evaluated"`
	Warnings   int    `json:"warnings"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{BoardOptions: BoardOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Compile a CUE board and store it",
		Long: `Compile a board from a CUE file or directory, validate it and save it
to the database under its name. An existing board with the same name is
replaced; its evaluation history is kept.

Examples:
  ggraph import boards/poll.cue --db ./ggraph.db
  ggraph import ./boards --db ./ggraph.db --board Poll --eval`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Board, "board", "", "board to import when the source declares several")
	cmd.Flags().StringVar(&opts.Redis, "redis", "", "Redis address sharing board snapshots (optional)")
	cmd.Flags().BoolVar(&opts.Evaluate, "eval", false, "evaluate every voting node after import")
	opts.bindEngineFlags(cmd)

	return cmd
}

func runImport(opts *ImportOptions, path string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	spec, err := LoadBoard(path, opts.Board)
	if err != nil {
		code, msg := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, msg)
	}

	warnings := 0
	for _, finding := range compiler.Validate(spec.Board) {
		if finding.IsError() {
			return formatter.Fail(ExitFailure, finding.Code, finding.Error())
		}
		warnings++
		formatter.VerboseLog("warning: %s", finding.Error())
	}

	st, shared, closeAll, err := openStores(&opts.BoardOptions)
	if err != nil {
		return err
	}
	err = saveBoard(ctx, st, shared, spec.Name, spec.Board)
	closeAll()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("saving board: %v", err))
	}

	result := ImportResult{
		Name:       spec.Name,
		Nodes:      len(spec.Board.Nodes),
		Connectors: len(spec.Board.Connectors),
		Warnings:   warnings,
	}

	board := spec.Board
	if opts.Evaluate {
		opts.Board = spec.Name
		s, err := openSession(ctx, &opts.BoardOptions, cmd)
		if err != nil {
			return err
		}
		defer s.close(cmd)

		n, evalErr := s.engine.EvaluateAll(ctx)
		result.Evaluated = n
		if err := s.commit(ctx); err != nil {
			return err
		}
		if evalErr != nil {
			return formatter.Fail(ExitFailure, ErrCodeEvaluation, evalErr.Error())
		}
		board = s.doc.Board()
	}

	result.Hash, err = ir.BoardHash(board)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	fmt.Fprintf(w, "✓ Imported %s: %d node(s), %d connector(s)\n", result.Name, result.Nodes, result.Connectors)
	if result.Warnings > 0 {
		fmt.Fprintf(w, "  %d warning(s); run validate for details\n", result.Warnings)
	}
	if opts.Evaluate {
		fmt.Fprintf(w, "  evaluated %d node(s)\n", result.Evaluated)
	}
	return nil
}
