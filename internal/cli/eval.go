package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/ir"
)

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BoardOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval [node...]",
		Short: "Evaluate voting nodes of a stored board",
		Long: `Evaluate the named voting nodes, or every voting node upstream first,
and save the results. Each evaluation is appended to the evaluation log.

In eager mode a changed value re-evaluates the node's dependents in the
same wave.

Examples:
  ggraph eval --db ./ggraph.db --board Poll
  ggraph eval total --db ./ggraph.db --board Poll --mode eager --metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args, cmd)
		},
	}

	opts.bindStoreFlags(cmd)
	opts.bindEngineFlags(cmd)

	return cmd
}

func runEval(opts *BoardOptions, ids []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	s, err := openSession(ctx, opts, cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)

	var evalErr error
	if len(ids) == 0 {
		n, err := s.engine.EvaluateAll(ctx)
		formatter.VerboseLog("Evaluated %d node(s)", n)
		evalErr = err
	} else {
		var errs []error
		for _, id := range ids {
			if _, err := s.engine.Evaluate(ctx, id); err != nil {
				errs = append(errs, err)
			}
		}
		evalErr = errors.Join(errs...)
	}

	if err := s.commit(ctx); err != nil {
		return err
	}
	if evalErr != nil {
		return formatter.Fail(ExitFailure, ErrCodeEvaluation, evalErr.Error())
	}

	b := s.doc.Board()
	var nodes []ir.Node
	if len(ids) == 0 {
		for _, n := range b.Nodes {
			if n.Kind == ir.KindVoting {
				nodes = append(nodes, n)
			}
		}
	} else {
		for _, id := range ids {
			if n, ok := b.Node(id); ok {
				nodes = append(nodes, n)
			}
		}
	}
	return writeNodes(formatter, fmt.Sprintf("%s (%s)", opts.Board, s.engine.Mode()), nodes)
}
