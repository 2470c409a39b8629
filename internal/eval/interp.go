package eval

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/OrionReed/ggraph/internal/builtin"
	"github.com/OrionReed/ggraph/internal/formula"
	"github.com/OrionReed/ggraph/internal/ir"
)

type env struct {
	vars  map[string]ir.Value
	funcs builtin.Set
}

func (en *env) eval(e formula.Expr) (ir.Value, error) {
	switch n := e.(type) {
	case *formula.NumberLit:
		return ir.Number(n.Value), nil
	case *formula.StringLit:
		return ir.String(n.Value), nil
	case *formula.BoolLit:
		return ir.Bool(n.Value), nil
	case *formula.NullLit:
		return ir.Null{}, nil
	case *formula.ListLit:
		out := make(ir.List, len(n.Elems))
		for i, el := range n.Elems {
			v, err := en.eval(el)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *formula.Ident:
		return en.lookup(n)
	case *formula.Unary:
		return en.unary(n)
	case *formula.Binary:
		return en.binary(n)
	case *formula.Conditional:
		cond, err := en.eval(n.Cond)
		if err != nil {
			return nil, err
		}
		if ir.Truthy(cond) {
			return en.eval(n.Then)
		}
		return en.eval(n.Else)
	case *formula.Index:
		return en.index(n)
	case *formula.Member:
		return en.member(n)
	case *formula.Call:
		return en.call(n)
	default:
		return nil, typeErrorf(e.Pos(), "unsupported expression %T", e)
	}
}

func (en *env) lookup(id *formula.Ident) (ir.Value, error) {
	// An input labeled like a built-in reads as that input.
	if v, ok := en.vars[id.Name]; ok {
		return v, nil
	}
	if builtin.IsBuiltin(id.Name) {
		return nil, typeErrorf(id.At, "built-in %s can only be called", id.Name)
	}
	return nil, &UndefinedError{Name: id.Name, Pos: id.At}
}

func (en *env) call(c *formula.Call) (ir.Value, error) {
	fn, ok := en.funcs[c.Callee.Name]
	if !ok {
		if _, bound := en.vars[c.Callee.Name]; bound {
			return nil, typeErrorf(c.At, "%s is not a function", c.Callee.Name)
		}
		return nil, &UndefinedError{Name: c.Callee.Name, Pos: c.At}
	}
	args := make([]ir.Value, len(c.Args))
	for i, a := range c.Args {
		v, err := en.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return fn(args)
}

func (en *env) unary(u *formula.Unary) (ir.Value, error) {
	x, err := en.eval(u.X)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case "!":
		return ir.Bool(!ir.Truthy(x)), nil
	case "-":
		f, err := number(u.At, x)
		if err != nil {
			return nil, err
		}
		return ir.Number(-f), nil
	default: // "+"
		f, err := number(u.At, x)
		if err != nil {
			return nil, err
		}
		return ir.Number(f), nil
	}
}

func number(pos int, v ir.Value) (float64, error) {
	if ir.IsNull(v) {
		return 0, typeErrorf(pos, "null used in arithmetic")
	}
	f, ok := ir.ToNumber(v)
	if !ok {
		return 0, typeErrorf(pos, "%s %q is not a number", ir.TypeName(v), ir.Display(v))
	}
	return f, nil
}

func (en *env) binary(b *formula.Binary) (ir.Value, error) {
	x, err := en.eval(b.X)
	if err != nil {
		return nil, err
	}

	// Logical operators short-circuit and return an operand.
	switch b.Op {
	case "&&":
		if !ir.Truthy(x) {
			return x, nil
		}
		return en.eval(b.Y)
	case "||":
		if ir.Truthy(x) {
			return x, nil
		}
		return en.eval(b.Y)
	}

	y, err := en.eval(b.Y)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case "+":
		_, xs := x.(ir.String)
		_, ys := y.(ir.String)
		if xs || ys {
			return ir.String(ir.Display(x) + ir.Display(y)), nil
		}
		return arith(b, x, y)
	case "-", "*", "/", "%":
		return arith(b, x, y)
	case "<", "<=", ">", ">=":
		return compare(b, x, y)
	case "===":
		return ir.Bool(ir.Equal(x, y)), nil
	case "!==":
		return ir.Bool(!ir.Equal(x, y)), nil
	case "==":
		return ir.Bool(looseEqual(x, y)), nil
	case "!=":
		return ir.Bool(!looseEqual(x, y)), nil
	}
	return nil, typeErrorf(b.At, "unknown operator %s", b.Op)
}

func arith(b *formula.Binary, x, y ir.Value) (ir.Value, error) {
	fx, err := number(b.At, x)
	if err != nil {
		return nil, err
	}
	fy, err := number(b.At, y)
	if err != nil {
		return nil, err
	}
	switch b.Op {
	case "+":
		return ir.Number(fx + fy), nil
	case "-":
		return ir.Number(fx - fy), nil
	case "*":
		return ir.Number(fx * fy), nil
	case "/":
		if fy == 0 {
			return nil, typeErrorf(b.At, "division by zero")
		}
		return ir.Number(fx / fy), nil
	default: // "%"
		if fy == 0 {
			return nil, typeErrorf(b.At, "modulo by zero")
		}
		return ir.Number(math.Mod(fx, fy)), nil
	}
}

func compare(b *formula.Binary, x, y ir.Value) (ir.Value, error) {
	var c int
	xs, xok := x.(ir.String)
	ys, yok := y.(ir.String)
	if xok && yok {
		c = strings.Compare(string(xs), string(ys))
	} else {
		fx, err := number(b.At, x)
		if err != nil {
			return nil, err
		}
		fy, err := number(b.At, y)
		if err != nil {
			return nil, err
		}
		switch {
		case fx < fy:
			c = -1
		case fx > fy:
			c = 1
		}
	}

	switch b.Op {
	case "<":
		return ir.Bool(c < 0), nil
	case "<=":
		return ir.Bool(c <= 0), nil
	case ">":
		return ir.Bool(c > 0), nil
	default: // ">="
		return ir.Bool(c >= 0), nil
	}
}

// looseEqual is structural equality, plus numeric equality between
// numbers, booleans and numeric strings.
func looseEqual(x, y ir.Value) bool {
	if ir.Equal(x, y) {
		return true
	}
	if !isScalar(x) || !isScalar(y) {
		return false
	}
	fx, xok := ir.ToNumber(x)
	fy, yok := ir.ToNumber(y)
	return xok && yok && fx == fy
}

func isScalar(v ir.Value) bool {
	switch v.(type) {
	case ir.Number, ir.Bool, ir.String:
		return true
	}
	return false
}

func (en *env) index(ix *formula.Index) (ir.Value, error) {
	x, err := en.eval(ix.X)
	if err != nil {
		return nil, err
	}
	key, err := en.eval(ix.Index)
	if err != nil {
		return nil, err
	}

	switch val := x.(type) {
	case ir.List:
		i, err := position(ix.At, key)
		if err != nil {
			return nil, err
		}
		if i < 0 || i >= len(val) {
			return ir.Null{}, nil
		}
		return val[i], nil
	case ir.String:
		i, err := position(ix.At, key)
		if err != nil {
			return nil, err
		}
		runes := []rune(string(val))
		if i < 0 || i >= len(runes) {
			return ir.Null{}, nil
		}
		return ir.String(runes[i]), nil
	case ir.Object:
		name, ok := key.(ir.String)
		if !ok {
			return nil, typeErrorf(ix.At, "object key must be a string, got %s", ir.TypeName(key))
		}
		if v, ok := val[string(name)]; ok {
			return v, nil
		}
		return ir.Null{}, nil
	}
	return nil, typeErrorf(ix.At, "cannot index %s", ir.TypeName(x))
}

func position(pos int, key ir.Value) (int, error) {
	n, ok := key.(ir.Number)
	if !ok {
		return 0, typeErrorf(pos, "index must be a number, got %s", ir.TypeName(key))
	}
	f := float64(n)
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, typeErrorf(pos, "index %s is not an integer", ir.FormatNumber(f))
	}
	if f < 0 || f > math.MaxInt32 {
		return -1, nil
	}
	return int(f), nil
}

func (en *env) member(m *formula.Member) (ir.Value, error) {
	x, err := en.eval(m.X)
	if err != nil {
		return nil, err
	}
	switch val := x.(type) {
	case ir.List:
		if m.Name == "length" {
			return ir.Number(len(val)), nil
		}
	case ir.String:
		if m.Name == "length" {
			return ir.Number(utf8.RuneCountInString(string(val))), nil
		}
	case ir.Object:
		if v, ok := val[m.Name]; ok {
			return v, nil
		}
		return ir.Null{}, nil
	}
	return nil, typeErrorf(m.At, "%s has no field %s", ir.TypeName(x), m.Name)
}

// finite reports whether v contains no NaN or infinite number.
func finite(v ir.Value) bool {
	switch val := v.(type) {
	case ir.Number:
		f := float64(val)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	case ir.List:
		for _, el := range val {
			if !finite(el) {
				return false
			}
		}
	case ir.Object:
		for _, el := range val {
			if !finite(el) {
				return false
			}
		}
	}
	return true
}
