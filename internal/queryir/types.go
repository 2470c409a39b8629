package queryir

import "github.com/OrionReed/ggraph/internal/ir"

// Query is a read over the evaluation log.
//
// Sealed: only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate is a row filter.
//
// Sealed: only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Select reads Columns from the From table for rows where Filter holds.
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order_by>, id
type Select struct {
	From    string
	Columns []string  // required, no SELECT *
	Filter  Predicate // nil matches every row
	OrderBy []string  // ascending; id is always the last key
}

func (Select) queryNode() {}

// Equals holds when Field equals Value. Value must be a string, number or
// boolean; Null never equals anything.
type Equals struct {
	Field string
	Value ir.Value
}

func (Equals) predicateNode() {}

// In holds when Field equals any of Values.
type In struct {
	Field  string
	Values []ir.Value
}

func (In) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Tables lists the queryable tables and their columns.
var Tables = map[string][]string{
	"evaluations": {
		"id", "board", "seq", "wave", "node_id", "trigger",
		"inputs", "value", "syntax_error", "error",
	},
}

// HasColumn reports whether table has the column.
func HasColumn(table, column string) bool {
	for _, c := range Tables[table] {
		if c == column {
			return true
		}
	}
	return false
}

// Conjoin ANDs the non-nil predicates. It returns nil when there are none
// and the predicate itself when there is one.
func Conjoin(preds ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return And{Predicates: kept}
}
