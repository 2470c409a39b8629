package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokNumber:
		return "number"
	case tokString:
		return "string"
	case tokIdent:
		return "identifier"
	default:
		return "operator"
	}
}

type token struct {
	kind tokenKind
	text string // operator or identifier text; decoded value for strings
	num  float64
	pos  int
}

// operators, longest first so that "===" wins over "==".
var operators = []string{
	"===", "!==",
	"==", "!=", "<=", ">=", "&&", "||",
	"+", "-", "*", "/", "%", "<", ">", "!",
	"(", ")", "[", "]", ",", ".", "?", ":", ";",
}

// SyntaxError reports a malformed expression.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at %d: %s", e.Pos, e.Msg)
}

func errorf(pos int, format string, args ...any) *SyntaxError {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

type lexer struct {
	src string
	pos int
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// tokenize splits src into tokens, ending with tokEOF.
func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) next() (token, error) {
	for lx.pos < len(lx.src) {
		r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		lx.pos += size
	}
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]
	switch {
	case isDigit(c) || (c == '.' && lx.pos+1 < len(lx.src) && isDigit(lx.src[lx.pos+1])):
		return lx.number()
	case c == '"' || c == '\'':
		return lx.str(c)
	}

	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	if isIdentStart(r) {
		lx.pos += size
		for lx.pos < len(lx.src) {
			r, size = utf8.DecodeRuneInString(lx.src[lx.pos:])
			if !isIdentPart(r) {
				break
			}
			lx.pos += size
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}, nil
	}

	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)
			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}
	return token{}, errorf(start, "unexpected character %q", r)
}

func (lx *lexer) number() (token, error) {
	start := lx.pos
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		lx.pos++
		for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			lx.pos++
		}
	}
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		save := lx.pos
		lx.pos++
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
			lx.pos++
		}
		if lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
			for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
				lx.pos++
			}
		} else {
			lx.pos = save
		}
	}

	text := lx.src[start:lx.pos]
	if lx.pos < len(lx.src) {
		if r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:]); isIdentStart(r) {
			return token{}, errorf(lx.pos, "identifier directly after number %q", text)
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return token{}, errorf(start, "invalid number %q", text)
	}
	return token{kind: tokNumber, text: text, num: f, pos: start}, nil
}

func (lx *lexer) str(quote byte) (token, error) {
	start := lx.pos
	lx.pos++
	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch c {
		case quote:
			lx.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case '\n':
			return token{}, errorf(lx.pos, "newline in string literal")
		case '\\':
			lx.pos++
			if lx.pos >= len(lx.src) {
				return token{}, errorf(start, "unterminated string literal")
			}
			switch esc := lx.src[lx.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			default:
				sb.WriteByte(esc)
			}
			lx.pos++
		default:
			sb.WriteByte(c)
			lx.pos++
		}
	}
	return token{}, errorf(start, "unterminated string literal")
}
