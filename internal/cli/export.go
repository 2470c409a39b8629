package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	BoardOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{BoardOptions: BoardOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print or write a stored board",
		Long: `Print a stored board with its computed values, or write it as JSON.

Examples:
  ggraph export --db ./ggraph.db --board Poll
  ggraph export --db ./ggraph.db --board Poll -o poll.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, cmd)
		},
	}

	opts.bindStoreFlags(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the board as JSON to this file")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	st, shared, closeAll, err := openStores(&opts.BoardOptions)
	if err != nil {
		return err
	}
	defer closeAll()

	b, err := loadBoard(ctx, st, shared, opts.Board)
	if errors.Is(err, store.ErrBoardNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("board %q not found", opts.Board))
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	hash, err := ir.BoardHash(b)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	result := CompiledBoard{Name: opts.Board, Hash: hash, Board: b}

	if opts.Output != "" {
		if err := writeResultFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, err.Error())
		}
		formatter.VerboseLog("Wrote board %s to %s", opts.Board, opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	if err := boardTable(opts.Board, b).render(formatter.Writer); err != nil {
		return err
	}
	if len(b.Connectors) > 0 {
		t := newTable("", "connector", "from", "to", "label", "directional")
		for _, c := range b.Connectors {
			t.add(c.ID, c.Start, c.End, c.Label, fmt.Sprint(c.Directional))
		}
		fmt.Fprintln(formatter.Writer)
		return t.render(formatter.Writer)
	}
	return nil
}
