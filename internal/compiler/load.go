package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// CompileSource compiles CUE source text and returns every board declared
// under the top-level board field, in declaration order.
func CompileSource(src []byte, filename string) ([]*BoardSpec, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileValue(v)
}

// CompileValue compiles every board under v's board field.
func CompileValue(v cue.Value) ([]*BoardSpec, error) {
	boardsVal := v.LookupPath(cue.ParsePath("board"))
	if !boardsVal.Exists() {
		return nil, &CompileError{
			Field:   "board",
			Message: "no boards declared",
			Pos:     v.Pos(),
		}
	}

	iter, err := boardsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*BoardSpec
	for iter.Next() {
		spec, err := CompileBoard(iter.Value())
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// SelectBoard picks the board called name. An empty name selects the only
// board, and is an error when there are several.
func SelectBoard(specs []*BoardSpec, name string) (*BoardSpec, error) {
	if name == "" {
		switch len(specs) {
		case 0:
			return nil, fmt.Errorf("no boards declared")
		case 1:
			return specs[0], nil
		default:
			return nil, fmt.Errorf("several boards declared (%s); pick one by name", boardNames(specs))
		}
	}
	for _, s := range specs {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("board %q not found (have %s)", name, boardNames(specs))
}

func boardNames(specs []*BoardSpec) string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
