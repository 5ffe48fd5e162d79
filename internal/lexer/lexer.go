// Package lexer splits Kestrel source text into tokens.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/token"
)

// Error is a lexical error at a position in the input.
type Error struct {
	Code     errors.ErrorCode
	Message  string
	Position token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Message, e.Position.LineNumber(), e.Position.ColumnNumber())
}

// Named characters accepted after #\.
var charNames = map[string]rune{
	"space":   ' ',
	"newline": '\n',
	"tab":     '\t',
	"return":  '\r',
	"nul":     0,
}

// Lexer reads tokens from an input string.
type Lexer struct {
	input    string
	filename string

	pos    int // offset of the current rune
	line   int
	column int
}

// New returns a Lexer for the given input.
func New(input string) *Lexer {
	return &Lexer{input: input}
}

// SetFilename sets the filename recorded in token positions.
func (l *Lexer) SetFilename(filename string) {
	l.filename = filename
}

// Filename returns the filename recorded in token positions.
func (l *Lexer) Filename() string {
	return l.filename
}

func (l *Lexer) position() token.Position {
	return token.Position{
		Char:   l.pos,
		Line:   l.line,
		Column: l.column,
		File:   l.filename,
	}
}

func (l *Lexer) peek() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	return r
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) errorf(code errors.ErrorCode, pos token.Position, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Position: pos}
}

// skipSpace skips whitespace and comments, which run from ; to the end of
// the line.
func (l *Lexer) skipSpace() {
	for !l.atEOF() {
		r := l.peek()
		switch {
		case r == ';':
			for !l.atEOF() && l.peek() != '\n' {
				l.advance()
			}
		case unicode.IsSpace(r):
			l.advance()
		default:
			return
		}
	}
}

// Next returns the next token. At the end of input it returns an EOF token.
func (l *Lexer) Next() (token.Token, error) {
	l.skipSpace()
	start := l.position()
	if l.atEOF() {
		return token.Token{Type: token.EOF, StartPosition: start, EndPosition: start}, nil
	}
	tok := token.Token{StartPosition: start}
	switch r := l.peek(); r {
	case '(':
		l.advance()
		tok.Type, tok.Literal = token.LPAREN, "("
	case ')':
		l.advance()
		tok.Type, tok.Literal = token.RPAREN, ")"
	case '\'':
		l.advance()
		tok.Type, tok.Literal = token.QUOTE, "'"
	case '"':
		s, err := l.readString()
		if err != nil {
			return token.Token{Type: token.ILLEGAL, StartPosition: start, EndPosition: l.position()}, err
		}
		tok.Type, tok.Literal = token.STRING, s
	case '#':
		c, err := l.readChar()
		if err != nil {
			return token.Token{Type: token.ILLEGAL, StartPosition: start, EndPosition: l.position()}, err
		}
		tok.Type, tok.Literal = token.CHAR, string(c)
	default:
		atom := l.readAtom()
		tok.Type, tok.Literal = classify(atom), atom
	}
	tok.EndPosition = l.position()
	return tok, nil
}

func isDelimiter(r rune) bool {
	return unicode.IsSpace(r) || r == '(' || r == ')' || r == '"' || r == ';' || r == '\''
}

func (l *Lexer) readAtom() string {
	start := l.pos
	for !l.atEOF() && !isDelimiter(l.peek()) {
		l.advance()
	}
	return l.input[start:l.pos]
}

// classify decides whether an atom is a number or an identifier. Atoms that
// start like a number but do not parse as one are reported by the parser.
func classify(atom string) token.Type {
	digits := strings.TrimLeft(atom, "+-")
	if len(atom)-len(digits) > 1 || digits == "" || !unicode.IsDigit(rune(digits[0])) {
		return token.IDENT
	}
	if strings.ContainsAny(digits, ".eE") {
		return token.FLOAT
	}
	return token.INT
}

// readString reads a string literal and returns its decoded contents.
func (l *Lexer) readString() (string, error) {
	start := l.position()
	l.advance() // opening quote
	var b strings.Builder
	for {
		if l.atEOF() {
			return "", l.errorf(errors.E1002, start, "unterminated string literal")
		}
		escPos := l.position()
		r := l.advance()
		switch r {
		case '"':
			return b.String(), nil
		case '\\':
			if l.atEOF() {
				return "", l.errorf(errors.E1002, start, "unterminated string literal")
			}
			e := l.advance()
			switch e {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case '0':
				b.WriteRune(0)
			case '\\', '"', '\'':
				b.WriteRune(e)
			default:
				return "", l.errorf(errors.E1010, escPos, "invalid escape sequence \\%c", e)
			}
		default:
			b.WriteRune(r)
		}
	}
}

// readChar reads a character literal such as #\a or #\space.
func (l *Lexer) readChar() (rune, error) {
	start := l.position()
	l.advance() // #
	if l.peek() != '\\' {
		return 0, l.errorf(errors.E1001, start, "unexpected character after #")
	}
	l.advance()
	if l.atEOF() {
		return 0, l.errorf(errors.E1003, start, "incomplete character literal")
	}
	first := l.advance()
	rest := l.readAtom()
	if rest == "" {
		return first, nil
	}
	name := string(first) + rest
	if c, ok := charNames[name]; ok {
		return c, nil
	}
	return 0, l.errorf(errors.E1003, start, "unknown character name %q", name)
}

// GetLineText returns the line of input containing the token.
func (l *Lexer) GetLineText(tok token.Token) string {
	return LineText(l.input, tok.StartPosition.Line)
}

// LineText returns the given 0-indexed line of input.
func LineText(input string, line int) string {
	for i := 0; i < line; i++ {
		nl := strings.IndexByte(input, '\n')
		if nl < 0 {
			return ""
		}
		input = input[nl+1:]
	}
	if nl := strings.IndexByte(input, '\n'); nl >= 0 {
		input = input[:nl]
	}
	return input
}
