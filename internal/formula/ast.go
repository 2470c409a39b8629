package formula

// Expr is a parsed expression node.
type Expr interface {
	Pos() int
	exprNode()
}

// NumberLit is a numeric literal.
type NumberLit struct {
	At    int
	Value float64
}

// StringLit is a quoted string literal.
type StringLit struct {
	At    int
	Value string
}

// BoolLit is true or false.
type BoolLit struct {
	At    int
	Value bool
}

// NullLit is null.
type NullLit struct {
	At int
}

// ListLit is a bracketed list of expressions.
type ListLit struct {
	At    int
	Elems []Expr
}

// Ident references an input label, VALUES or a built-in.
type Ident struct {
	At   int
	Name string
}

// Unary is a prefix operator applied to an operand.
type Unary struct {
	At int
	Op string
	X  Expr
}

// Binary is an infix operator. && and || short-circuit.
type Binary struct {
	At   int
	Op   string
	X, Y Expr
}

// Conditional is cond ? then : else.
type Conditional struct {
	At               int
	Cond, Then, Else Expr
}

// Index is x[i].
type Index struct {
	At    int
	X     Expr
	Index Expr
}

// Member is x.name.
type Member struct {
	At   int
	X    Expr
	Name string
}

// Call invokes a built-in by name.
type Call struct {
	At     int
	Callee *Ident
	Args   []Expr
}

func (e *NumberLit) Pos() int   { return e.At }
func (e *StringLit) Pos() int   { return e.At }
func (e *BoolLit) Pos() int     { return e.At }
func (e *NullLit) Pos() int     { return e.At }
func (e *ListLit) Pos() int     { return e.At }
func (e *Ident) Pos() int       { return e.At }
func (e *Unary) Pos() int       { return e.At }
func (e *Binary) Pos() int      { return e.At }
func (e *Conditional) Pos() int { return e.At }
func (e *Index) Pos() int       { return e.At }
func (e *Member) Pos() int      { return e.At }
func (e *Call) Pos() int        { return e.At }

func (*NumberLit) exprNode()   {}
func (*StringLit) exprNode()   {}
func (*BoolLit) exprNode()     {}
func (*NullLit) exprNode()     {}
func (*ListLit) exprNode()     {}
func (*Ident) exprNode()       {}
func (*Unary) exprNode()       {}
func (*Binary) exprNode()      {}
func (*Conditional) exprNode() {}
func (*Index) exprNode()       {}
func (*Member) exprNode()      {}
func (*Call) exprNode()        {}

// Idents returns the distinct identifier names referenced by e, in first
// appearance order. Callee names are included.
func Idents(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case nil:
		case *Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *ListLit:
			for _, el := range n.Elems {
				walk(el)
			}
		case *Unary:
			walk(n.X)
		case *Binary:
			walk(n.X)
			walk(n.Y)
		case *Conditional:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case *Index:
			walk(n.X)
			walk(n.Index)
		case *Member:
			walk(n.X)
		case *Call:
			walk(n.Callee)
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return names
}
