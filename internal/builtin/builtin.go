// Package builtin provides the aggregation functions callable from voting
// formulas: sum, average and countVotes.
package builtin

import (
	"fmt"
	"sort"

	"github.com/OrionReed/ggraph/internal/ir"
)

// Func is a built-in function. It receives evaluated arguments.
type Func func(args []ir.Value) (ir.Value, error)

// Set maps built-in names to implementations.
type Set map[string]Func

// Names lists every built-in name.
var Names = []string{"sum", "average", "countVotes"}

// IsBuiltin reports whether name is a built-in function.
func IsBuiltin(name string) bool {
	switch name {
	case "sum", "average", "countVotes":
		return true
	}
	return false
}

// ArgumentError reports a built-in called with unusable arguments.
type ArgumentError struct {
	Func string
	Msg  string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Func, e.Msg)
}

// For returns the built-ins bound to a node's value type.
func For(vt ir.ValueType) Set {
	return Set{
		"sum":        func(args []ir.Value) (ir.Value, error) { return sum(vt, args) },
		"average":    func(args []ir.Value) (ir.Value, error) { return average(vt, args) },
		"countVotes": countVotes,
	}
}

// listArg checks for exactly one list argument.
func listArg(name string, args []ir.Value) (ir.List, error) {
	if len(args) != 1 {
		return nil, &ArgumentError{Func: name, Msg: fmt.Sprintf("expected 1 argument, got %d", len(args))}
	}
	list, ok := args[0].(ir.List)
	if !ok {
		return nil, &ArgumentError{Func: name, Msg: fmt.Sprintf("expected a list, got %s", ir.TypeName(args[0]))}
	}
	return list, nil
}

func total(name string, list ir.List) (float64, error) {
	var acc float64
	for i, v := range list {
		f, ok := ir.ToNumber(v)
		if !ok {
			return 0, &ArgumentError{Func: name, Msg: fmt.Sprintf("element %d is not a number: %s", i, ir.Display(v))}
		}
		acc += f
	}
	return acc, nil
}

func countTrue(list ir.List) ir.Number {
	var n int
	for _, v := range list {
		if ir.Truthy(v) {
			n++
		}
	}
	return ir.Number(n)
}

func sum(vt ir.ValueType, args []ir.Value) (ir.Value, error) {
	list, err := listArg("sum", args)
	if err != nil {
		return nil, err
	}
	switch vt {
	case ir.TypeScalar:
		acc, err := total("sum", list)
		if err != nil {
			return nil, err
		}
		return ir.Number(acc), nil
	case ir.TypeBoolean:
		return countTrue(list), nil
	}
	return ir.Null{}, nil
}

// average of BOOLEAN values is the count of true entries, same as sum.
func average(vt ir.ValueType, args []ir.Value) (ir.Value, error) {
	list, err := listArg("average", args)
	if err != nil {
		return nil, err
	}
	switch vt {
	case ir.TypeScalar:
		if len(list) == 0 {
			return ir.Null{}, nil
		}
		acc, err := total("average", list)
		if err != nil {
			return nil, err
		}
		return ir.Number(acc / float64(len(list))), nil
	case ir.TypeBoolean:
		return countTrue(list), nil
	}
	return ir.Null{}, nil
}

type tally struct {
	item  string
	score int
}

// countVotes scores each item across all ballots and returns
// [{item, score}] by descending score. Each ballot moves an item by at most
// one: +1 when voted up, -1 when voted down, and -1 when listed both ways.
// Equal scores keep first appearance order. Null entries are contributors
// without a ballot.
func countVotes(args []ir.Value) (ir.Value, error) {
	list, err := listArg("countVotes", args)
	if err != nil {
		return nil, err
	}

	var tallies []*tally
	byItem := make(map[string]*tally)
	bump := func(item string, delta int) {
		t, ok := byItem[item]
		if !ok {
			t = &tally{item: item}
			byItem[item] = t
			tallies = append(tallies, t)
		}
		t.score += delta
	}

	for i, raw := range list {
		if ir.IsNull(raw) {
			continue
		}
		b, err := ir.DecodeBallot(raw)
		if err != nil {
			return nil, &ArgumentError{Func: "countVotes", Msg: fmt.Sprintf("ballot %d: %v", i, err)}
		}
		down := make(map[string]bool, len(b.Down))
		for _, item := range b.Down {
			down[item] = true
		}
		counted := make(map[string]bool, len(b.Up)+len(b.Down))
		for _, item := range b.Up {
			if counted[item] {
				continue
			}
			counted[item] = true
			if down[item] {
				bump(item, -1)
			} else {
				bump(item, 1)
			}
		}
		for _, item := range b.Down {
			if counted[item] {
				continue
			}
			counted[item] = true
			bump(item, -1)
		}
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].score > tallies[j].score
	})

	out := make(ir.List, len(tallies))
	for i, t := range tallies {
		out[i] = ir.Object{"item": ir.String(t.item), "score": ir.Number(t.score)}
	}
	return out, nil
}
