package parser

import (
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/token"
)

// datum is one s-expression: an atom or a parenthesized list.
type datum struct {
	tok   token.Token // the atom, or the opening parenthesis of a list
	list  bool
	items []*datum
	end   token.Position
}

func (d *datum) pos() token.Position {
	return d.tok.StartPosition
}

func (d *datum) isSymbol(name string) bool {
	return !d.list && d.tok.Type == token.IDENT && d.tok.Literal == name
}

// read reads one s-expression starting at the current token and leaves the
// parser on the token that follows it.
func (p *Parser) read() (*datum, error) {
	tok := p.curToken
	switch tok.Type {
	case token.LPAREN:
		return p.readList()
	case token.RPAREN:
		return nil, p.fail(errors.E1001, tok.StartPosition, tok.EndPosition, "unexpected )")
	case token.QUOTE:
		return nil, p.fail(errors.E1003, tok.StartPosition, tok.EndPosition, "quoted expressions are not supported")
	case token.EOF:
		return nil, p.fail(errors.E1001, tok.StartPosition, tok.EndPosition, "unexpected end of file")
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	return &datum{tok: tok, end: tok.EndPosition}, nil
}

func (p *Parser) readList() (*datum, error) {
	open := p.curToken
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > p.maxDepth {
		return nil, p.fail(errors.E1003, open.StartPosition, open.EndPosition,
			"maximum nesting depth of %d exceeded", p.maxDepth)
	}
	if err := p.nextToken(); err != nil {
		return nil, err
	}
	d := &datum{tok: open, list: true}
	for {
		switch p.curToken.Type {
		case token.RPAREN:
			d.end = p.curToken.EndPosition
			if err := p.nextToken(); err != nil {
				return nil, err
			}
			return d, nil
		case token.EOF:
			return nil, p.fail(errors.E1007, open.StartPosition, open.EndPosition,
				"unclosed (")
		}
		item, err := p.read()
		if err != nil {
			return nil, err
		}
		d.items = append(d.items, item)
	}
}
