// Package formula reads the text of a voting node.
//
// Formula text mixes free text with one embedded expression. The header
// scan finds the declared value type keyword (SCALAR, BOOLEAN, STRING,
// RANK), its optional argument list and an optional @selector token. The
// body is the text with the type keyword replaced by VALUES; it is parsed
// with a small fixed grammar:
//
//	expr     = or [ "?" expr ":" expr ]
//	or       = and { "||" and }
//	and      = equality { "&&" equality }
//	equality = relation { ("==" | "!=" | "===" | "!==") relation }
//	relation = additive { ("<" | "<=" | ">" | ">=") additive }
//	additive = term { ("+" | "-") term }
//	term     = unary { ("*" | "/" | "%") unary }
//	unary    = ("-" | "!" | "+") unary | postfix
//	postfix  = primary { "[" expr "]" | "." ident | "(" args ")" }
//	primary  = number | string | "true" | "false" | "null" | ident
//	         | "[" [ expr { "," expr } ] "]" | "(" expr ")"
//
// Only a bare identifier may be called. Nothing in the grammar can produce
// a function value.
package formula
