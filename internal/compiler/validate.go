package compiler

import (
	"fmt"
	"regexp"

	"github.com/OrionReed/ggraph/internal/builtin"
	"github.com/OrionReed/ggraph/internal/eval"
	"github.com/OrionReed/ggraph/internal/formula"
	"github.com/OrionReed/ggraph/internal/graph"
	"github.com/OrionReed/ggraph/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Structure errors (E101-E109)
	ErrEmptyID             = "E101" // node or connector id is empty
	ErrDuplicateID         = "E102" // id used twice
	ErrInvalidKind         = "E103" // unknown node kind
	ErrDanglingConnector   = "E104" // connector end names a missing node
	ErrContributionType    = "E105" // contribution does not fit the value type
	ErrUntypedContribution = "E106" // contributions on a node without a value type

	// Wiring warnings (E110-E119)
	ErrDuplicateLabel     = "E110" // two inputs share a label
	ErrUnboundPlaceholder = "E111" // generator placeholder has no input
	ErrReservedLabel      = "E112" // label is VALUES or a built-in name
	ErrUnusableLabel      = "E113" // label is not an identifier
	ErrCycle              = "E114" // dependency cycle
)

// Severity levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// ValidationError represents a board validation finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Level   string `json:"level"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// IsError reports whether the finding makes the board invalid.
func (e ValidationError) IsError() bool {
	return e.Level == LevelError
}

var identPattern = regexp.MustCompile(`^[\p{L}_$][\p{L}\p{N}_$]*$`)

// Validate checks a board. Returns all findings (does not fail-fast);
// errors come before warnings, each group in board order.
func Validate(b ir.Board) []ValidationError {
	var errs, warns []ValidationError

	ids := make(map[string]bool, len(b.Nodes))
	for i, n := range b.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if n.ID != "" {
			field = "nodes." + n.ID
		}
		if n.ID == "" {
			errs = append(errs, failure(field, "node id is required", ErrEmptyID))
		} else if ids[n.ID] {
			errs = append(errs, failure(field, "duplicate node id", ErrDuplicateID))
		}
		ids[n.ID] = true

		if !ir.ValidNodeKinds[n.Kind] {
			errs = append(errs, failure(field+".kind", fmt.Sprintf("unknown kind %q", n.Kind), ErrInvalidKind))
			continue
		}
		errs = append(errs, validateContributions(field, n)...)
	}

	connIDs := make(map[string]bool, len(b.Connectors))
	for i, c := range b.Connectors {
		field := fmt.Sprintf("connectors[%d]", i)
		if c.ID == "" {
			errs = append(errs, failure(field, "connector id is required", ErrEmptyID))
		} else if connIDs[c.ID] {
			errs = append(errs, failure(field, fmt.Sprintf("duplicate connector id %q", c.ID), ErrDuplicateID))
		}
		connIDs[c.ID] = true

		for _, end := range []string{c.Start, c.End} {
			if end != "" && !ids[end] {
				errs = append(errs, failure(field, fmt.Sprintf("references unknown node %q", end), ErrDanglingConnector))
			}
		}
	}

	warns = append(warns, validateWiring(b)...)
	return append(errs, warns...)
}

func validateContributions(field string, n ir.Node) []ValidationError {
	if len(n.Contributions) == 0 {
		return nil
	}
	field += ".contributions"
	if n.Kind != ir.KindVoting || n.ValueType == "" || n.ValueType == ir.TypeNone {
		return []ValidationError{failure(field, "node has no value type to contribute to", ErrUntypedContribution)}
	}

	var errs []ValidationError
	for _, who := range n.Contributions.Contributors() {
		if msg := checkContribution(n.ValueType, n.Contributions[who]); msg != "" {
			errs = append(errs, failure(field+"."+who, msg, ErrContributionType))
		}
	}
	return errs
}

// checkContribution returns a message when v is not a valid contribution
// for vt, or "".
func checkContribution(vt ir.ValueType, v ir.Value) string {
	switch vt {
	case ir.TypeScalar:
		num, ok := v.(ir.Number)
		if !ok {
			return fmt.Sprintf("SCALAR contribution must be a number, got %s", ir.TypeName(v))
		}
		if num < 0 || num > 1 {
			return fmt.Sprintf("SCALAR contribution %s is outside [0, 1]", ir.FormatNumber(float64(num)))
		}
	case ir.TypeBoolean:
		if _, ok := v.(ir.Bool); !ok {
			return fmt.Sprintf("BOOLEAN contribution must be a boolean, got %s", ir.TypeName(v))
		}
	case ir.TypeString:
		if _, ok := v.(ir.String); !ok {
			return fmt.Sprintf("STRING contribution must be a string, got %s", ir.TypeName(v))
		}
	case ir.TypeRank:
		if _, err := ir.DecodeBallot(v); err != nil {
			return fmt.Sprintf("RANK contribution must be a ballot: %v", err)
		}
	}
	return ""
}

// validateWiring reports problems in how edges feed nodes. These never stop
// a board from running, so they are warnings.
func validateWiring(b ir.Board) []ValidationError {
	var warns []ValidationError
	g := graph.Build(b)

	for _, n := range g.Nodes() {
		seen := make(map[string]bool)
		labels := make(map[string]bool)
		for _, e := range g.Incoming(n.ID) {
			if e.Label == "" {
				continue
			}
			labels[e.Label] = true
			field := "nodes." + n.ID + ".inputs." + e.Label
			if seen[e.Label] {
				warns = append(warns, warning(field, "label is used by more than one input; the last valued one wins", ErrDuplicateLabel))
			}
			seen[e.Label] = true

			if n.Kind != ir.KindVoting {
				continue
			}
			switch {
			case e.Label == formula.ValuesIdent:
				warns = append(warns, warning(field, "label is shadowed by VALUES and cannot be referenced", ErrReservedLabel))
			case builtin.IsBuiltin(e.Label):
				warns = append(warns, warning(field, "label names a built-in; it reads as the input but cannot be called", ErrReservedLabel))
			case !identPattern.MatchString(e.Label):
				warns = append(warns, warning(field, "label is not an identifier and cannot be referenced", ErrUnusableLabel))
			}
		}

		if n.Kind == ir.KindGenerator {
			for _, name := range eval.Placeholders(n.Text) {
				if !labels[name] {
					warns = append(warns, warning("nodes."+n.ID+".text", fmt.Sprintf("placeholder {%s} has no input", name), ErrUnboundPlaceholder))
				}
			}
		}
	}

	for _, c := range g.Cycles() {
		warns = append(warns, warning("cycle", c.Message, ErrCycle))
	}
	return warns
}

func failure(field, msg, code string) ValidationError {
	return ValidationError{Field: field, Message: msg, Code: code, Level: LevelError}
}

func warning(field, msg, code string) ValidationError {
	return ValidationError{Field: field, Message: msg, Code: code, Level: LevelWarning}
}
