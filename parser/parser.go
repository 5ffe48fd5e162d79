// Package parser reads Kestrel source text into syntax trees.
//
// Parsing happens in two steps. The reader turns tokens into s-expressions
// (atoms and lists), and the analyzer turns each s-expression into an
// ast.Node, recognizing the special forms. A malformed special form does not
// stop parsing: the analyzer records the error and moves on to the next
// top-level form, so a single Parse call can report several errors.
// Unbalanced parentheses and lexical errors end parsing immediately.
package parser

import (
	"context"
	stderrors "errors"

	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/internal/lexer"
	"github.com/deepnoodle-ai/kestrel/token"
)

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// MaxErrors is the maximum number of errors to collect before stopping.
const MaxErrors = 10

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name reported in positions and errors.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser.
// This prevents stack overflow on deeply nested input.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// Parse parses the provided input as Kestrel source code and returns its
// top-level forms.
func Parse(ctx context.Context, input string, options ...Option) ([]ast.Node, error) {
	return New(input, options...).Parse(ctx)
}

// Parser reads top-level forms from source text. A Parser should be used
// only once.
type Parser struct {
	input    string
	filename string
	maxDepth int

	l        *lexer.Lexer
	curToken token.Token
	depth    int

	errors errors.CompileErrors
}

// New returns a Parser for the given input.
func New(input string, options ...Option) *Parser {
	p := &Parser{
		input:    input,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(p)
	}
	p.l = lexer.New(input)
	p.l.SetFilename(p.filename)
	return p
}

// Parse reads every top-level form of the input. When errors occur, the
// returned forms are those that parsed successfully.
func (p *Parser) Parse(ctx context.Context) ([]ast.Node, error) {
	if err := p.nextToken(); err != nil {
		return nil, p.errors.ToError()
	}
	var nodes []ast.Node
	for p.curToken.Type != token.EOF {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if len(p.errors.Errors) >= MaxErrors {
			break
		}
		d, err := p.read()
		if err != nil {
			// The token stream is no longer balanced.
			break
		}
		node, err := p.analyze(d)
		if err != nil {
			continue
		}
		nodes = append(nodes, node)
	}
	return nodes, p.errors.ToError()
}

// nextToken advances to the next token, recording lexical errors.
func (p *Parser) nextToken() error {
	tok, err := p.l.Next()
	if err != nil {
		var lexErr *lexer.Error
		if stderrors.As(err, &lexErr) {
			return p.fail(lexErr.Code, lexErr.Position, tok.EndPosition, "%s", lexErr.Message)
		}
		return p.fail(errors.E1003, tok.StartPosition, tok.EndPosition, "%s", err.Error())
	}
	p.curToken = tok
	return nil
}

// fail records an error and returns it.
func (p *Parser) fail(code errors.ErrorCode, start, end token.Position, format string, args ...any) error {
	err := newError(p.input, p.filename, code, start, end, format, args...)
	p.errors.Add(err)
	return err
}
