package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/ir"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	BoardOptions
	Connector bool
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{BoardOptions: BoardOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "edit <id> <text>",
		Short: "Change a node's text or a connector's label",
		Long: `Replace the text of a node: the value of a source, the formula of a
voting node or the prompt template of a generator. A new formula is
re-evaluated at once; in eager mode the change cascades downstream.

With --connector the id names a connector and the text is its new label.
Label changes take effect the next time a dependent is evaluated.

Examples:
  ggraph edit total 'SCALAR + bonus' --db ./ggraph.db --board Poll
  ggraph edit c1 bonus --connector --db ./ggraph.db --board Poll`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args[0], args[1], cmd)
		},
	}

	opts.bindStoreFlags(cmd)
	opts.bindEngineFlags(cmd)
	cmd.Flags().BoolVar(&opts.Connector, "connector", false, "edit a connector label instead of a node")

	return cmd
}

func runEdit(opts *EditOptions, id, text string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, &opts.BoardOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)

	if opts.Connector {
		if err := s.doc.SetLabel(id, text); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
		}
	} else if err := s.doc.SetText(id, text); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error())
	}

	if err := s.commit(ctx); err != nil {
		return err
	}

	if opts.Connector {
		if formatter.JSON() {
			return formatter.Success(map[string]string{"connector": id, "label": text})
		}
		fmt.Fprintf(formatter.Writer, "✓ Connector %s labeled %q\n", id, text)
		return nil
	}
	n, _ := s.doc.Node(id)
	return writeNodes(formatter, opts.Board, []ir.Node{n})
}
