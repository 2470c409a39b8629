package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/ir"
)

// VoteOptions holds flags for the vote command.
type VoteOptions struct {
	BoardOptions
	Withdraw bool
}

// NewVoteCommand creates the vote command.
func NewVoteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VoteOptions{BoardOptions: BoardOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "vote <node> [value]",
		Short: "Set or withdraw a contribution on a voting node",
		Long: `Set the contribution of the --as contributor on a voting node, then
re-evaluate the node and save the board.

Without a value the widget default for the node's type is used: 0 for
SCALAR, false for BOOLEAN. RANK ballots are JSON objects with "up" and
"down" item lists.

Examples:
  ggraph vote score 0.8 --db ./ggraph.db --board Poll --as alice
  ggraph vote ranking '{"up":["tea"],"down":["coffee"]}' --db ./ggraph.db --board Poll
  ggraph vote score --withdraw --db ./ggraph.db --board Poll --as alice`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVote(opts, args, cmd)
		},
	}

	opts.bindStoreFlags(cmd)
	opts.bindEngineFlags(cmd)
	cmd.Flags().BoolVar(&opts.Withdraw, "withdraw", false, "remove the contribution instead of setting it")

	return cmd
}

func runVote(opts *VoteOptions, args []string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)
	id := args[0]

	s, err := openSession(ctx, &opts.BoardOptions, cmd)
	if err != nil {
		return err
	}
	defer s.close(cmd)

	n, ok := s.doc.Node(id)
	if !ok {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("node %q not found", id))
	}
	if n.Kind != ir.KindVoting {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluation, fmt.Sprintf("node %q is a %s node, not voting", id, n.Kind))
	}

	if opts.Withdraw {
		if len(args) > 1 {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--withdraw takes no value")
		}
		err = s.doc.Withdraw(id, opts.Contributor)
	} else {
		var raw string
		if len(args) > 1 {
			raw = args[1]
		}
		v, perr := parseContribution(n.ValueType, raw)
		if perr != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, perr.Error())
		}
		err = s.doc.Contribute(id, opts.Contributor, v)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeEvaluation, err.Error())
	}

	if err := s.commit(ctx); err != nil {
		return err
	}

	n, _ = s.doc.Node(id)
	return writeNodes(formatter, opts.Board, []ir.Node{n})
}

// parseContribution turns a command-line value into a contribution for a
// node of type vt. An empty string selects the type's default.
func parseContribution(vt ir.ValueType, raw string) (ir.Value, error) {
	if raw == "" {
		return ir.DefaultContribution(vt), nil
	}
	if vt != ir.TypeRank {
		return ir.CoerceToken(raw), nil
	}

	var ballot any
	if err := json.Unmarshal([]byte(raw), &ballot); err != nil {
		return nil, fmt.Errorf("RANK ballot must be JSON: %w", err)
	}
	b, err := ir.DecodeBallot(ballot)
	if err != nil {
		return nil, fmt.Errorf("invalid ballot: %w", err)
	}
	return b.Value(), nil
}
