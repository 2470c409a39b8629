package compiler

import (
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/OrionReed/ggraph/internal/formula"
	"github.com/OrionReed/ggraph/internal/ir"
)

// BoardSpec is a board compiled from CUE.
type BoardSpec struct {
	Name  string
	Board ir.Board
}

// CompileBoard parses a CUE value into a board.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the board struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`board: Demo: { nodes: { ... } }`)
//	spec, err := CompileBoard(v.LookupPath(cue.ParsePath("board.Demo")))
//
// Nodes are declared as a struct keyed by node id and keep declaration
// order. Voting nodes get their value type and selector from the formula
// header, exactly as a formula edit on a live board would.
func CompileBoard(v cue.Value) (*BoardSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &BoardSpec{
		Board: ir.Board{Nodes: []ir.Node{}, Connectors: []ir.Connector{}},
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil, &CompileError{
			Field:   "nodes",
			Message: "nodes is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := nodesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		n, err := parseNode(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		spec.Board.Nodes = append(spec.Board.Nodes, n)
	}

	connVal := v.LookupPath(cue.ParsePath("connectors"))
	if connVal.Exists() {
		spec.Board.Connectors, err = parseConnectors(connVal)
		if err != nil {
			return nil, err
		}
	}

	return spec, nil
}

func parseNode(id string, v cue.Value) (ir.Node, error) {
	field := "nodes." + id
	n := ir.Node{ID: id}

	kind, err := requiredString(v, "kind", field)
	if err != nil {
		return n, err
	}
	n.Kind = ir.NodeKind(kind)
	if !ir.ValidNodeKinds[n.Kind] {
		return n, &CompileError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown kind %q (want source, voting or generator)", kind),
			Pos:     v.LookupPath(cue.ParsePath("kind")).Pos(),
		}
	}

	if n.Text, err = optionalString(v, "text"); err != nil {
		return n, err
	}

	if n.Kind == ir.KindGenerator {
		if n.Output, err = optionalString(v, "output"); err != nil {
			return n, err
		}
	}

	contribVal := v.LookupPath(cue.ParsePath("contributions"))
	if n.Kind != ir.KindVoting {
		if contribVal.Exists() {
			return n, &CompileError{
				Field:   field + ".contributions",
				Message: fmt.Sprintf("%s nodes cannot hold contributions", n.Kind),
				Pos:     contribVal.Pos(),
			}
		}
		return n, nil
	}

	header := formula.ParseHeader(n.Text)
	n.ValueType = header.Type
	n.Selector = header.Selector

	if contribVal.Exists() {
		n.Contributions, err = parseContributions(contribVal, n.ValueType, field+".contributions")
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// parseContributions decodes the contributor map. Ballots are normalized
// through ir.DecodeBallot so missing lists become empty ones.
func parseContributions(v cue.Value, vt ir.ValueType, field string) (ir.Contributions, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := ir.Contributions{}
	for iter.Next() {
		who := iter.Label()
		var raw any
		if err := iter.Value().Decode(&raw); err != nil {
			return nil, formatCUEError(err)
		}

		var val ir.Value
		if vt == ir.TypeRank {
			ballot, err := ir.DecodeBallot(raw)
			if err != nil {
				return nil, &CompileError{Field: field + "." + who, Message: err.Error(), Pos: iter.Value().Pos()}
			}
			val = ballot.Value()
		} else {
			val, err = ir.FromAny(raw)
			if err != nil {
				return nil, &CompileError{Field: field + "." + who, Message: err.Error(), Pos: iter.Value().Pos()}
			}
		}
		out[who] = val
	}
	return out, nil
}

// parseConnectors reads the connector list. A connector without an id gets
// c<position>, counting from 1. Connectors are directional unless
// directional: false is given.
func parseConnectors(v cue.Value) ([]ir.Connector, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	connectors := []ir.Connector{}
	for i := 1; iter.Next(); i++ {
		cv := iter.Value()
		field := fmt.Sprintf("connectors[%d]", i-1)

		c := ir.Connector{Directional: true}
		if c.ID, err = optionalString(cv, "id"); err != nil {
			return nil, err
		}
		if c.ID == "" {
			c.ID = "c" + strconv.Itoa(i)
		}
		if c.Start, err = requiredString(cv, "from", field); err != nil {
			return nil, err
		}
		if c.End, err = requiredString(cv, "to", field); err != nil {
			return nil, err
		}
		if c.Label, err = optionalString(cv, "label"); err != nil {
			return nil, err
		}
		if dv := cv.LookupPath(cue.ParsePath("directional")); dv.Exists() {
			if c.Directional, err = dv.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		connectors = append(connectors, c)
	}
	return connectors, nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
