// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"math"
	"strings"

	"github.com/OrionReed/ggraph/internal/ir"
	"github.com/OrionReed/ggraph/internal/queryir"
)

// tiebreaker closes every ORDER BY so equal keys still sort the same way.
const tiebreaker = "id COLLATE BINARY ASC"

// Compile validates q and converts it to SQL with ? placeholders.
// Values are never interpolated into the SQL text.
func Compile(q queryir.Query) (string, []any, error) {
	if err := queryir.Validate(q).Err(); err != nil {
		return "", nil, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return compileSelect(query)
	case *queryir.Select:
		return compileSelect(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func compileSelect(q queryir.Select) (string, []any, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(q.Columns, ", "), q.From)

	var params []any
	if q.Filter != nil {
		where, p, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" WHERE " + where)
		params = p
	}

	b.WriteString(" ORDER BY " + orderBy(q.OrderBy))
	return b.String(), params, nil
}

func orderBy(keys []string) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if k == "id" {
			continue
		}
		parts = append(parts, k+" ASC")
	}
	return strings.Join(append(parts, tiebreaker), ", ")
}

func compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		param, err := toParam(pred.Value)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", pred.Field, err)
		}
		return pred.Field + " = ?", []any{param}, nil
	case *queryir.Equals:
		return compilePredicate(*pred)
	case queryir.In:
		params := make([]any, len(pred.Values))
		for i, v := range pred.Values {
			param, err := toParam(v)
			if err != nil {
				return "", nil, fmt.Errorf("%s: %w", pred.Field, err)
			}
			params[i] = param
		}
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
		return fmt.Sprintf("%s IN (%s)", pred.Field, marks), params, nil
	case *queryir.In:
		return compilePredicate(*pred)
	case queryir.And:
		return compileAnd(pred)
	case *queryir.And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}
	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, sub := range and.Predicates {
		sql, p, err := compilePredicate(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, p...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// toParam converts a literal to a database/sql argument. Integral numbers
// become int64 so they compare equal to INTEGER columns.
func toParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Number:
		f := float64(val)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f), nil
		}
		return f, nil
	case ir.Bool:
		return bool(val), nil
	default:
		return nil, fmt.Errorf("cannot use %s as a parameter", ir.TypeName(v))
	}
}
