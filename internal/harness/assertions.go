package harness

import (
	"fmt"
	"strings"

	"github.com/OrionReed/ggraph/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			status := ir.Display(ev.Value)
			if ev.SyntaxError {
				status = "syntax error"
			}
			fmt.Fprintf(&buf, "  [%d] %s %s (%s) = %s\n", ev.Seq, ev.Wave, ev.Node, ev.Trigger, status)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion against a result and returns the
// failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertEvaluationCount:
		return assertEvaluationCount(result.Trace, a)
	case AssertEvaluationOrder:
		return assertEvaluationOrder(result.Trace, a)
	case AssertPrompts:
		return assertPrompts(result, a)
	}

	n, ok := result.Board.Node(a.Node)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("node %s on the board", a.Node),
			Actual:   "not found",
		}
	}

	switch a.Type {
	case AssertValue:
		return assertValue(result.Trace, n, a)
	case AssertSyntaxError:
		return compareScalar(a, n.SyntaxError, result.Trace)
	case AssertValueType:
		return compareScalar(a, string(n.ValueType), result.Trace)
	case AssertOutput:
		return compareScalar(a, n.Output, result.Trace)
	case AssertPending:
		return compareScalar(a, n.Pending, result.Trace)
	case AssertGeneration:
		return compareScalar(a, n.Generation, result.Trace)
	case AssertContributions:
		if got := len(n.Contributions); got != *a.Count {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("%d contributions on %s", *a.Count, n.ID),
				Actual:   fmt.Sprintf("%d", got),
			}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertValue compares the value a node supplies with the expected value.
// A null expectation means the node supplies none.
func assertValue(trace []TraceEvent, n ir.Node, a Assertion) error {
	want, err := ir.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	got, ok := n.Value()
	if !ok {
		got = ir.Null{}
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %s", n.ID, display(want)),
			Actual:   display(got),
			Trace:    trace,
		}
	}
	return nil
}

// compareScalar compares a plain field through the value model, so YAML
// ints match int64 fields and strings match named string types.
func compareScalar(a Assertion, actual any, trace []TraceEvent) error {
	want, err := ir.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	got, err := ir.FromAny(actual)
	if err != nil {
		return err
	}
	if a.Expect == nil {
		// An omitted expectation means the zero value.
		want = zeroLike(got)
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %s = %s", a.Node, a.Type, display(want)),
			Actual:   display(got),
			Trace:    trace,
		}
	}
	return nil
}

func zeroLike(v ir.Value) ir.Value {
	switch v.(type) {
	case ir.String:
		return ir.String("")
	case ir.Number:
		return ir.Number(0)
	case ir.Bool:
		return ir.Bool(false)
	}
	return ir.Null{}
}

// assertEvaluationCount counts evaluations, filtered by node and trigger
// when given.
func assertEvaluationCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if a.Node != "" && ev.Node != a.Node {
			continue
		}
		if a.Trigger != "" && string(ev.Trigger) != a.Trigger {
			continue
		}
		count++
	}

	if count != *a.Count {
		what := "evaluations"
		if a.Node != "" {
			what += " of " + a.Node
		}
		if a.Trigger != "" {
			what += " triggered by " + a.Trigger
		}
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s", *a.Count, what),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertEvaluationOrder checks that the nodes were first evaluated in the
// given relative order. Other evaluations may come in between.
func assertEvaluationOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if _, seen := positions[ev.Node]; !seen {
			positions[ev.Node] = i + 1
		}
	}

	for _, id := range a.Nodes {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("all nodes evaluated: %v", a.Nodes),
				Actual:   fmt.Sprintf("missing node: %s", id),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Nodes); i++ {
		prev, curr := a.Nodes[i-1], a.Nodes[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("nodes in order: %v", a.Nodes),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

func assertPrompts(result *Result, a Assertion) error {
	want, err := ir.FromAny(a.Expect)
	if err != nil {
		return fmt.Errorf("expect: %w", err)
	}
	got, err := ir.FromAny(result.Prompts)
	if err != nil {
		return err
	}
	if !ir.Equal(want, got) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("prompts %s", display(want)),
			Actual:   display(got),
		}
	}
	return nil
}

// display renders a value as JSON so strings are quoted.
func display(v ir.Value) string {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return ir.Display(v)
	}
	return string(data)
}
