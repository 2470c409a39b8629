package formula

import (
	"regexp"
	"strings"

	"github.com/OrionReed/ggraph/internal/ir"
)

// ValuesIdent is the identifier the type keyword is replaced with.
const ValuesIdent = "VALUES"

var selectorPattern = regexp.MustCompile(`@([a-zA-Z]+)`)

// Span is a half-open byte range [Start, End) of formula text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Header is what the formula declares about itself.
type Header struct {
	Type     ir.ValueType `json:"type"`
	Selector string       `json:"selector,omitempty"`
	Args     []ir.Value   `json:"args,omitempty"`

	// Span covers the type keyword, or the whole TYPE(...) call form when
	// the keyword is followed by an argument list. Zero when Type is NONE.
	Span Span `json:"span"`
}

// DetectType returns the first keyword present in text, checked in the
// order SCALAR, BOOLEAN, STRING, RANK. Text with no keyword is NONE.
func DetectType(text string) ir.ValueType {
	for _, vt := range ir.ValueTypePriority {
		if strings.Contains(text, string(vt)) {
			return vt
		}
	}
	return ir.TypeNone
}

// Selector returns the name of the first @name token, or "".
func Selector(text string) string {
	m := selectorPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// ParseHeader classifies formula text and extracts its argument list.
func ParseHeader(text string) Header {
	h := Header{
		Type:     DetectType(text),
		Selector: Selector(text),
	}
	if h.Type == ir.TypeNone {
		return h
	}

	start := strings.Index(text, string(h.Type))
	end := start + len(h.Type)
	h.Span = Span{Start: start, End: end}

	if end < len(text) && text[end] == '(' {
		if closing, ok := matchParen(text, end); ok {
			h.Args = splitArgs(text[end+1 : closing])
			h.Span.End = closing + 1
		}
	}
	return h
}

// Body returns the expression source: the header span replaced by VALUES
// and every @selector token blanked out.
func Body(text string, h Header) string {
	if h.Type == ir.TypeNone {
		return blankSelectors(text, Span{})
	}
	blanked := blankSelectors(text, h.Span)
	return blanked[:h.Span.Start] + ValuesIdent + blanked[h.Span.End:]
}

// blankSelectors replaces @name tokens outside skip with spaces, keeping
// byte offsets stable.
func blankSelectors(text string, skip Span) string {
	locs := selectorPattern.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}
	b := []byte(text)
	for _, loc := range locs {
		if loc[0] < skip.End && loc[1] > skip.Start {
			continue
		}
		for i := loc[0]; i < loc[1]; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

// matchParen finds the ')' closing the '(' at open, skipping quoted text.
func matchParen(text string, open int) (int, bool) {
	depth := 0
	var quote byte
	for i := open; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// splitArgs splits an argument list on top level commas and coerces each
// token. Empty tokens are dropped.
func splitArgs(s string) []ir.Value {
	var args []ir.Value
	depth := 0
	var quote byte
	last := 0
	flush := func(end int) {
		tok := strings.TrimSpace(s[last:end])
		if tok != "" {
			args = append(args, coerceArg(tok))
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				last = i + 1
			}
		}
	}
	flush(len(s))
	return args
}

func coerceArg(tok string) ir.Value {
	if len(tok) >= 2 {
		if q := tok[0]; (q == '"' || q == '\'') && tok[len(tok)-1] == q {
			return ir.String(tok[1 : len(tok)-1])
		}
	}
	return ir.CoerceToken(tok)
}
