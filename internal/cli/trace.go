package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	BoardOptions
	Wave     string
	Node     string
	Triggers []string
}

// TraceWave is one wave in trace output.
type TraceWave struct {
	Wave        string `json:"wave"`
	FirstSeq    int64  `json:"first_seq"`
	LastSeq     int64  `json:"last_seq"`
	Evaluations int    `json:"evaluations"`
}

// TraceResult holds the trace output. Waves is set when no filter is given,
// Evaluations otherwise.
type TraceResult struct {
	Board       string          `json:"board"`
	Waves       []TraceWave     `json:"waves,omitempty"`
	Evaluations []ir.Evaluation `json:"evaluations,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{BoardOptions: BoardOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query the evaluation log of a board",
		Long: `Show what the engine recorded for a board.

Without filters, lists the propagation waves in the order they started.
With --wave, --node or --trigger, lists the matching evaluations in seq
order with the inputs each one saw.

Examples:
  ggraph trace --db ./ggraph.db --board Poll
  ggraph trace --db ./ggraph.db --board Poll --wave 0190b5c2-...
  ggraph trace --db ./ggraph.db --board Poll --node total --format json
  ggraph trace --db ./ggraph.db --board Poll --trigger upstream,formula`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Board, "board", "", "board name (required)")
	_ = cmd.MarkFlagRequired("board")
	cmd.Flags().StringVar(&opts.Wave, "wave", "", "only evaluations of this wave")
	cmd.Flags().StringVar(&opts.Node, "node", "", "only evaluations of this node")
	cmd.Flags().StringSliceVar(&opts.Triggers, "trigger", nil, "only evaluations with these triggers (formula, contribution, upstream, explicit)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	filter := store.EvaluationFilter{NodeID: opts.Node, Wave: opts.Wave}
	for _, tr := range opts.Triggers {
		trigger := ir.Trigger(tr)
		if !validTrigger(trigger) {
			return NewExitError(ExitCommandError, fmt.Sprintf("unknown trigger %q", tr))
		}
		filter.Triggers = append(filter.Triggers, trigger)
	}

	result := TraceResult{Board: opts.Board}

	if filter.NodeID == "" && filter.Wave == "" && len(filter.Triggers) == 0 {
		waves, err := st.ListWaves(ctx, opts.Board)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list waves", err)
		}
		result.Waves = make([]TraceWave, len(waves))
		for i, w := range waves {
			result.Waves[i] = TraceWave(w)
		}
	} else {
		evs, err := st.ReadEvaluations(ctx, opts.Board, filter)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read evaluations", err)
		}
		result.Evaluations = evs
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Waves != nil {
		if len(result.Waves) == 0 {
			fmt.Fprintf(w, "No evaluations recorded for board: %s\n", opts.Board)
			return nil
		}
		t := newTable("Waves of "+opts.Board, "wave", "seq", "evaluations")
		for _, wv := range result.Waves {
			t.add(wv.Wave, fmt.Sprintf("%d-%d", wv.FirstSeq, wv.LastSeq), fmt.Sprint(wv.Evaluations))
		}
		return t.render(w)
	}

	if len(result.Evaluations) == 0 {
		fmt.Fprintln(w, "No matching evaluations.")
		return nil
	}
	t := newTable("Evaluations of "+opts.Board, "seq", "wave", "node", "trigger", "inputs", "value")
	for _, ev := range result.Evaluations {
		t.add(fmt.Sprint(ev.Seq), ev.Wave, ev.NodeID, string(ev.Trigger), formatInputs(ev.Inputs), evaluationStatus(ev))
	}
	return t.render(w)
}

func validTrigger(t ir.Trigger) bool {
	switch t {
	case ir.TriggerFormula, ir.TriggerContribution, ir.TriggerUpstream, ir.TriggerExplicit:
		return true
	}
	return false
}

func formatInputs(inputs ir.InputMap) string {
	parts := make([]string, 0, len(inputs))
	for _, label := range inputs.Labels() {
		in := inputs[label]
		parts = append(parts, fmt.Sprintf("%s=%s", label, ir.Display(in.Value)))
	}
	return strings.Join(parts, ", ")
}

func evaluationStatus(ev ir.Evaluation) string {
	if ev.SyntaxError {
		if ev.Error != "" {
			return "syntax error: " + ev.Error
		}
		return "syntax error"
	}
	return ir.Display(ev.Value)
}
