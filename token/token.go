// Package token defines the tokens produced when lexing Kestrel source code.
package token

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
type Position struct {
	Char   int // byte offset
	Line   int // 0-indexed
	Column int // 0-indexed
	File   string
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// Token represents one token lexed from the input source code.
type Token struct {
	Type          Type
	Literal       string
	StartPosition Position
	EndPosition   Position
}

// Token types
const (
	CHAR    = "CHAR"
	EOF     = "EOF"
	FLOAT   = "FLOAT"
	IDENT   = "IDENT"
	ILLEGAL = "ILLEGAL"
	INT     = "INT"
	LPAREN  = "("
	QUOTE   = "'"
	RPAREN  = ")"
	STRING  = "STRING"
)
