package eval

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/OrionReed/ggraph/internal/builtin"
	"github.com/OrionReed/ggraph/internal/formula"
	"github.com/OrionReed/ggraph/internal/ir"
)

// Result is the outcome of evaluating one voting node.
type Result struct {
	Header formula.Header
	Body   string

	// Value is the computed value on success. Never nil when Err is nil.
	Value ir.Value

	// SyntaxError is true when parsing or evaluation failed. Err holds the
	// cause; the node's previous computed value must be kept.
	SyntaxError bool
	Err         error
}

// Patch returns the state delta for the evaluated node. On failure only
// the error flag is set and the computed value is left alone.
func (r Result) Patch() ir.Patch {
	if r.SyntaxError {
		return ir.Patch{SyntaxError: ir.Ptr(true)}
	}
	v := r.Value
	if v == nil {
		v = ir.Null{}
	}
	return ir.Patch{ComputedValue: v, SyntaxError: ir.Ptr(false)}
}

// Evaluate runs a voting node's formula against its contributions and
// resolved inputs. It never panics and never returns an error directly:
// failures are reported through Result.SyntaxError.
func Evaluate(node ir.Node, inputs ir.InputMap) Result {
	header := formula.ParseHeader(node.Text)
	body := formula.Body(node.Text, header)
	res := Result{Header: header, Body: body}

	expr, err := formula.Parse(body)
	if err != nil {
		return res.fail(err)
	}
	if expr == nil {
		res.Value = ir.Null{}
		return res
	}

	vars := make(map[string]ir.Value, len(inputs)+1)
	for label, in := range inputs {
		if in.Value == nil {
			continue
		}
		vars[label] = in.Value
	}
	// VALUES always names the contributions, even over an input labeled VALUES.
	vars[formula.ValuesIdent] = node.Contributions.Ordered()

	en := &env{vars: vars, funcs: builtin.For(header.Type)}
	v, err := en.eval(expr)
	if err != nil {
		return res.fail(err)
	}
	if !finite(v) {
		return res.fail(fmt.Errorf("result %s is not a finite value", ir.Display(v)))
	}
	res.Value = v
	return res
}

func (r Result) fail(err error) Result {
	r.SyntaxError = true
	r.Err = err
	r.Value = nil
	return r
}

// GeneratorPrompt substitutes every {label} placeholder in template with
// the display text of the matching input. Placeholders without an input
// are left as they are.
func GeneratorPrompt(template string, inputs ir.InputMap) string {
	if len(inputs) == 0 {
		return norm.NFC.String(template)
	}
	pairs := make([]string, 0, 2*len(inputs))
	for _, label := range inputs.Labels() {
		pairs = append(pairs, "{"+label+"}", inputs[label].Text)
	}
	// One pass: substituted text is never scanned for placeholders again.
	return strings.NewReplacer(pairs...).Replace(norm.NFC.String(template))
}

// Placeholders returns the distinct {label} names in template, in order of
// first appearance.
func Placeholders(template string) []string {
	var out []string
	seen := make(map[string]bool)
	rest := norm.NFC.String(template)
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return out
		}
		end := strings.IndexByte(rest[open+1:], '}')
		if end < 0 {
			return out
		}
		name := rest[open+1 : open+1+end]
		if name != "" && !strings.ContainsRune(name, '{') && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		rest = rest[open+1:]
	}
}
