package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/OrionReed/ggraph/internal/compiler"
	"github.com/OrionReed/ggraph/internal/doc"
	"github.com/OrionReed/ggraph/internal/engine"
	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/llm"
	"github.com/OrionReed/ggraph/internal/logging"
	"github.com/OrionReed/ggraph/internal/store"
	"github.com/OrionReed/ggraph/internal/testutil"
)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	doc    *doc.Document
	engine *engine.Engine
	store  *store.Store
	script *llm.Script
	board  string
	logger *slog.Logger
}

// Option configures a run.
type Option func(*Harness)

// WithLogger routes engine logs somewhere other than the void.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Compile the board from CUE
//  2. Build the document and attach an engine to it
//  3. Execute steps, settling the engine after each
//  4. Collect the trace from the evaluation log
//  5. Evaluate assertions
//
// An error is returned only when the scenario cannot be set up; failed
// steps and assertions are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	ctx := context.Background()

	spec, err := loadBoard(scenario)
	if err != nil {
		return nil, err
	}
	steps, err := scenario.DecodeSteps()
	if err != nil {
		return nil, err
	}
	mode, err := engine.ParseMode(scenario.Mode)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	contributor := scenario.Contributor
	if contributor == "" {
		contributor = DefaultContributor
	}

	h := &Harness{
		doc:    doc.FromBoard(spec.Board, contributor),
		store:  st,
		script: llm.NewScript(replies(scenario.Replies)...),
		board:  spec.Name,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	engineOpts := []engine.EngineOption{
		engine.WithMode(mode),
		engine.WithLogger(h.logger),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithWaveGenerator(testutil.NewWaveGenerator("")),
		engine.WithEvaluationLog(st.Log(spec.Name)),
		engine.WithGenerator(h.script),
	}
	if scenario.MaxSteps > 0 {
		engineOpts = append(engineOpts, engine.WithMaxSteps(scenario.MaxSteps))
	}
	h.engine = engine.New(h.doc, engineOpts...)
	h.engine.Attach()
	defer h.engine.Stop()

	result := NewResult()
	for i, step := range steps {
		err := h.execute(ctx, step)
		if settleErr := h.engine.Settle(ctx); settleErr != nil {
			return nil, fmt.Errorf("steps[%d]: settle: %w", i, settleErr)
		}
		if msg := checkStepError(step, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, msg))
		}
	}

	evals, err := st.ReadEvaluations(ctx, spec.Name, store.EvaluationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	for _, ev := range evals {
		result.AddEvaluation(ev)
	}
	result.Board = h.doc.Board()
	result.Prompts = h.script.Prompts()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func loadBoard(s *Scenario) (*compiler.BoardSpec, error) {
	src := []byte(s.CUE)
	filename := s.Name + ".cue"
	if s.Board != "" {
		data, err := os.ReadFile(s.Board)
		if err != nil {
			return nil, fmt.Errorf("failed to read board: %w", err)
		}
		src, filename = data, s.Board
	}

	specs, err := compiler.CompileSource(src, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to compile board: %w", err)
	}
	spec, err := compiler.SelectBoard(specs, s.BoardName)
	if err != nil {
		return nil, fmt.Errorf("failed to select board: %w", err)
	}
	return spec, nil
}

func replies(specs []ReplySpec) []llm.Reply {
	out := make([]llm.Reply, len(specs))
	for i, r := range specs {
		out[i] = llm.Reply{Chunks: r.Chunks}
		if r.Error != "" {
			out[i].Err = errors.New(r.Error)
		}
	}
	return out
}

// checkStepError compares a step's outcome with its expectation and
// returns a failure message, or "".
func checkStepError(step Step, err error) string {
	switch {
	case step.ExpectError == "" && err != nil:
		return err.Error()
	case step.ExpectError != "" && err == nil:
		return fmt.Sprintf("expected error containing %q, got none", step.ExpectError)
	case step.ExpectError != "" && !strings.Contains(err.Error(), step.ExpectError):
		return fmt.Sprintf("expected error containing %q, got %q", step.ExpectError, err.Error())
	}
	return ""
}

// execute applies one step to the document or the engine.
func (h *Harness) execute(ctx context.Context, s Step) error {
	switch s.Op {
	case OpSetText:
		return h.doc.SetText(s.Node, s.Text)
	case OpContribute:
		v, err := h.contribution(s)
		if err != nil {
			return err
		}
		return h.doc.Contribute(s.Node, s.Contributor, v)
	case OpWithdraw:
		return h.doc.Withdraw(s.Node, s.Contributor)
	case OpSetOutput:
		return h.doc.SetOutput(s.Node, s.Text)
	case OpAddNode:
		return h.doc.AddNode(ir.Node{ID: s.Node, Kind: ir.NodeKind(s.Kind), Text: s.Text})
	case OpRemoveNode:
		return h.doc.RemoveNode(s.Node)
	case OpConnect:
		return h.doc.Connect(ir.Connector{
			ID:          s.ID,
			Start:       s.From,
			End:         s.To,
			Label:       s.Label,
			Directional: !s.Undirected,
		})
	case OpDisconnect:
		return h.doc.Disconnect(s.ID)
	case OpSetLabel:
		return h.doc.SetLabel(s.ID, s.Label)
	case OpEvaluate:
		_, err := h.engine.Evaluate(ctx, s.Node)
		return err
	case OpEvaluateAll:
		_, err := h.engine.EvaluateAll(ctx)
		return err
	case OpGenerate:
		return h.engine.Generate(ctx, s.Node)
	}
	return fmt.Errorf("unknown op %q", s.Op)
}

// contribution converts a step's value for the node it targets. A missing
// value is the default for the node's type; ballots are normalized.
func (h *Harness) contribution(s Step) (ir.Value, error) {
	n, ok := h.doc.Node(s.Node)
	if !ok {
		return nil, fmt.Errorf("%w: %s", doc.ErrNodeNotFound, s.Node)
	}
	if s.Value == nil {
		return ir.DefaultContribution(n.ValueType), nil
	}
	if n.ValueType == ir.TypeRank {
		b, err := ir.DecodeBallot(s.Value)
		if err != nil {
			return nil, err
		}
		return b.Value(), nil
	}
	return ir.FromAny(s.Value)
}
