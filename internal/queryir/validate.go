package queryir

import (
	"fmt"

	"github.com/OrionReed/ggraph/internal/ir"
)

// ValidationResult lists the problems found in a query.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err returns the problems as one error, or nil for a valid query.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	if len(r.Errors) == 1 {
		return fmt.Errorf("invalid query: %s", r.Errors[0])
	}
	return fmt.Errorf("invalid query: %s (and %d more)", r.Errors[0], len(r.Errors)-1)
}

// Validate checks a query against Tables.
func Validate(q Query) ValidationResult {
	v := &validator{errors: []string{}}
	v.query(q)
	return ValidationResult{Valid: len(v.errors) == 0, Errors: v.errors}
}

type validator struct {
	table  string
	errors []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) query(q Query) {
	switch query := q.(type) {
	case Select:
		v.selectQuery(query)
	case *Select:
		if query == nil {
			v.addError("nil select")
			return
		}
		v.selectQuery(*query)
	case nil:
		v.addError("nil query")
	default:
		v.addError("unsupported query type %T", q)
	}
}

func (v *validator) selectQuery(s Select) {
	if _, ok := Tables[s.From]; !ok {
		v.addError("unknown table %q", s.From)
		return
	}
	v.table = s.From

	if len(s.Columns) == 0 {
		v.addError("select from %s names no columns", s.From)
	}
	for _, c := range s.Columns {
		v.column(c)
	}
	for _, c := range s.OrderBy {
		v.column(c)
	}
	if s.Filter != nil {
		v.predicate(s.Filter)
	}
}

func (v *validator) column(name string) {
	if !HasColumn(v.table, name) {
		v.addError("unknown column %s.%s", v.table, name)
	}
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.column(pred.Field)
		v.literal(pred.Field, pred.Value)
	case *Equals:
		v.predicate(*pred)
	case In:
		v.column(pred.Field)
		if len(pred.Values) == 0 {
			v.addError("%s IN () matches nothing", pred.Field)
		}
		for _, val := range pred.Values {
			v.literal(pred.Field, val)
		}
	case *In:
		v.predicate(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	case *And:
		v.predicate(*pred)
	case nil:
		v.addError("nil predicate")
	default:
		v.addError("unsupported predicate type %T", p)
	}
}

func (v *validator) literal(field string, val ir.Value) {
	switch val.(type) {
	case ir.String, ir.Number, ir.Bool:
	case nil, ir.Null:
		v.addError("%s compared with null", field)
	default:
		v.addError("%s compared with %s", field, ir.TypeName(val))
	}
}
