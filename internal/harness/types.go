package harness

import (
	"github.com/OrionReed/ggraph/internal/ir"
)

// TraceEvent is one recorded evaluation.
type TraceEvent struct {
	Seq         int64      `json:"seq"`
	Wave        string     `json:"wave"`
	Node        string     `json:"node"`
	Trigger     ir.Trigger `json:"trigger"`
	Value       ir.Value   `json:"value"`
	SyntaxError bool       `json:"syntax_error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when no step failed unexpectedly and every assertion held.
	Pass bool `json:"pass"`

	// Trace lists the evaluations in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes failed steps and assertions.
	Errors []string `json:"errors,omitempty"`

	// Board is the final board state.
	Board ir.Board `json:"board"`

	// Prompts are the prompts the generator received.
	Prompts []string `json:"prompts,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvaluation appends an evaluation record to the trace.
func (r *Result) AddEvaluation(ev ir.Evaluation) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:         ev.Seq,
		Wave:        ev.Wave,
		Node:        ev.NodeID,
		Trigger:     ev.Trigger,
		Value:       ev.Value,
		SyntaxError: ev.SyntaxError,
	})
}
