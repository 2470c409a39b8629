package formula

import (
	"strings"
)

// Parse parses an expression body. A blank body (or one holding only
// semicolons) parses to a nil Expr and no error.
func Parse(src string) (Expr, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	p.skipSemicolons()
	if p.peek().kind == tokEOF {
		return nil, nil
	}

	expr, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSemicolons()
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, errorf(tok.pos, "unexpected %s", describe(tok))
	}
	return expr, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isOp(ops ...string) bool {
	tok := p.peek()
	if tok.kind != tokOp {
		return false
	}
	for _, op := range ops {
		if tok.text == op {
			return true
		}
	}
	return false
}

func (p *parser) expect(op string) (token, error) {
	if !p.isOp(op) {
		tok := p.peek()
		return tok, errorf(tok.pos, "expected %q, found %s", op, describe(tok))
	}
	return p.advance(), nil
}

func (p *parser) skipSemicolons() {
	for p.isOp(";") {
		p.advance()
	}
}

func describe(tok token) string {
	switch tok.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string " + quote(tok.text)
	default:
		return tok.kind.String() + " " + quote(tok.text)
	}
}

func quote(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

func (p *parser) expr() (Expr, error) {
	cond, err := p.binary(0)
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	q := p.advance()
	then, err := p.expr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.expr()
	if err != nil {
		return nil, err
	}
	return &Conditional{At: q.pos, Cond: cond, Then: then, Else: els}, nil
}

// binaryLevels lists infix operators from loosest to tightest binding.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", "<=", ">", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) binary(level int) (Expr, error) {
	if level == len(binaryLevels) {
		return p.unary()
	}
	x, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.isOp(binaryLevels[level]...) {
		op := p.advance()
		y, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		x = &Binary{At: op.pos, Op: op.text, X: x, Y: y}
	}
	return x, nil
}

func (p *parser) unary() (Expr, error) {
	if p.isOp("-", "+", "!") {
		op := p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &Unary{At: op.pos, Op: op.text, X: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.isOp("["):
			open := p.advance()
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &Index{At: open.pos, X: x, Index: idx}
		case p.isOp("."):
			dot := p.advance()
			name := p.advance()
			if name.kind != tokIdent {
				return nil, errorf(name.pos, "expected field name after '.', found %s", describe(name))
			}
			x = &Member{At: dot.pos, X: x, Name: name.text}
		case p.isOp("("):
			open := p.advance()
			callee, ok := x.(*Ident)
			if !ok {
				return nil, errorf(open.pos, "only built-in functions can be called")
			}
			args, err := p.list(")")
			if err != nil {
				return nil, err
			}
			x = &Call{At: callee.At, Callee: callee, Args: args}
		default:
			return x, nil
		}
	}
}

// list parses comma separated expressions up to the closing operator.
// The opening bracket has already been consumed.
func (p *parser) list(closing string) ([]Expr, error) {
	var elems []Expr
	if p.isOp(closing) {
		p.advance()
		return elems, nil
	}
	for {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.isOp(",") {
			p.advance()
			continue
		}
		if _, err := p.expect(closing); err != nil {
			return nil, err
		}
		return elems, nil
	}
}

func (p *parser) primary() (Expr, error) {
	tok := p.advance()
	switch tok.kind {
	case tokNumber:
		return &NumberLit{At: tok.pos, Value: tok.num}, nil
	case tokString:
		return &StringLit{At: tok.pos, Value: tok.text}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return &BoolLit{At: tok.pos, Value: true}, nil
		case "false":
			return &BoolLit{At: tok.pos, Value: false}, nil
		case "null":
			return &NullLit{At: tok.pos}, nil
		}
		return &Ident{At: tok.pos, Name: tok.text}, nil
	case tokOp:
		switch tok.text {
		case "(":
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "[":
			elems, err := p.list("]")
			if err != nil {
				return nil, err
			}
			return &ListLit{At: tok.pos, Elems: elems}, nil
		}
	}
	return nil, errorf(tok.pos, "unexpected %s", describe(tok))
}
