package parser

import (
	stderrors "errors"
	"math"
	"strconv"

	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/token"
	"github.com/deepnoodle-ai/kestrel/value"
)

type formParser func(p *Parser, d *datum) (ast.Node, error)

// Special forms, keyed by the symbol at the head of the list.
var specialForms map[string]formParser

func init() {
	specialForms = map[string]formParser{
		"define": (*Parser).parseDefine,
		"const":  (*Parser).parseConst,
		"lambda": (*Parser).parseLambda,
		"let":    (*Parser).parseLet,
		"do":     (*Parser).parseDo,
		"if":     (*Parser).parseIf,
		"and":    (*Parser).parseAnd,
		"or":     (*Parser).parseOr,
		"apply":  (*Parser).parseApply,
	}
}

// IsSpecialForm reports whether name introduces a special form.
func IsSpecialForm(name string) bool {
	_, ok := specialForms[name]
	return ok
}

// analyze converts an s-expression into a syntax node.
func (p *Parser) analyze(d *datum) (ast.Node, error) {
	if !d.list {
		return p.parseAtom(d)
	}
	if len(d.items) == 0 {
		return &ast.Literal{ValuePos: d.pos(), Value: value.Unit{}}, nil
	}
	head := d.items[0]
	if !head.list && head.tok.Type == token.IDENT {
		if parse, ok := specialForms[head.tok.Literal]; ok {
			return parse(p, d)
		}
	}
	fn, err := p.analyze(head)
	if err != nil {
		return nil, err
	}
	args, err := p.analyzeAll(d.items[1:])
	if err != nil {
		return nil, err
	}
	return &ast.Call{Lparen: d.pos(), Fn: fn, Args: args}, nil
}

func (p *Parser) analyzeAll(items []*datum) ([]ast.Node, error) {
	nodes := make([]ast.Node, 0, len(items))
	for _, item := range items {
		n, err := p.analyze(item)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *Parser) parseAtom(d *datum) (ast.Node, error) {
	tok := d.tok
	pos := tok.StartPosition
	switch tok.Type {
	case token.INT:
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, p.invalidNumber(tok, err)
		}
		return &ast.Literal{ValuePos: pos, Value: value.Int(i)}, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err == nil && math.IsInf(f, 0) {
			err = strconv.ErrRange
		}
		if err != nil {
			return nil, p.invalidNumber(tok, err)
		}
		return &ast.Literal{ValuePos: pos, Value: value.Float(f)}, nil
	case token.STRING:
		return &ast.Literal{ValuePos: pos, Value: value.String(tok.Literal)}, nil
	case token.CHAR:
		r := []rune(tok.Literal)
		return &ast.Literal{ValuePos: pos, Value: value.Char(r[0])}, nil
	case token.IDENT:
		switch tok.Literal {
		case "true":
			return &ast.Literal{ValuePos: pos, Value: value.Bool(true)}, nil
		case "false":
			return &ast.Literal{ValuePos: pos, Value: value.Bool(false)}, nil
		}
		if IsSpecialForm(tok.Literal) {
			return nil, p.failAt(d, errors.E1003, "%s cannot be used as a value", tok.Literal)
		}
		return &ast.Ident{NamePos: pos, Name: tok.Literal}, nil
	}
	return nil, p.failAt(d, errors.E1001, "unexpected %s", tok.Literal)
}

func (p *Parser) invalidNumber(tok token.Token, err error) error {
	msg := "invalid number literal %q"
	if stderrors.Is(err, strconv.ErrRange) {
		msg = "number literal %q is out of range"
	}
	return p.fail(errors.E1008, tok.StartPosition, tok.EndPosition, msg, tok.Literal)
}

// failAt records an error spanning the datum.
func (p *Parser) failAt(d *datum, code errors.ErrorCode, format string, args ...any) error {
	end := d.end
	if end.Line != d.pos().Line {
		end = d.tok.EndPosition
	}
	return p.fail(code, d.pos(), end, format, args...)
}

// symbol returns the name of a datum that must be a plain identifier.
func (p *Parser) symbol(d *datum, what string) (string, error) {
	if d.list || d.tok.Type != token.IDENT {
		return "", p.failAt(d, errors.E1001, "expected %s, found %s", what, describe(d))
	}
	name := d.tok.Literal
	if name == "true" || name == "false" || IsSpecialForm(name) {
		return "", p.failAt(d, errors.E1003, "%s cannot be used as %s", name, what)
	}
	return name, nil
}

func describe(d *datum) string {
	if d.list {
		return "list"
	}
	switch d.tok.Type {
	case token.IDENT:
		return d.tok.Literal
	case token.STRING:
		return "string"
	case token.CHAR:
		return "character"
	default:
		return "number"
	}
}

// arity checks the number of operands of a special form.
func (p *Parser) arity(d *datum, min, max int) error {
	n := len(d.items) - 1
	if n >= min && (max < 0 || n <= max) {
		return nil
	}
	name := d.items[0].tok.Literal
	switch {
	case max < 0:
		return p.failAt(d, errors.E1003, "%s expects at least %d operands, found %d", name, min, n)
	case min == max:
		return p.failAt(d, errors.E1003, "%s expects %d operands, found %d", name, min, n)
	default:
		return p.failAt(d, errors.E1003, "%s expects %d to %d operands, found %d", name, min, max, n)
	}
}

func (p *Parser) params(d *datum) ([]string, error) {
	if !d.list {
		return nil, p.failAt(d, errors.E1001, "expected parameter list, found %s", describe(d))
	}
	params := make([]string, 0, len(d.items))
	for _, item := range d.items {
		name, err := p.symbol(item, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, name)
	}
	return params, nil
}

// parseDefine parses (define name value) and the function shorthand
// (define (name params...) body...).
func (p *Parser) parseDefine(d *datum) (ast.Node, error) {
	if err := p.arity(d, 1, -1); err != nil {
		return nil, err
	}
	target := d.items[1]
	if target.list {
		if len(target.items) == 0 {
			return nil, p.failAt(target, errors.E1003, "define expects a function name")
		}
		name, err := p.symbol(target.items[0], "function name")
		if err != nil {
			return nil, err
		}
		params, err := p.params(&datum{list: true, items: target.items[1:]})
		if err != nil {
			return nil, err
		}
		body, err := p.analyzeAll(d.items[2:])
		if err != nil {
			return nil, err
		}
		fn := &ast.Lambda{LambdaPos: target.pos(), Name: name, Params: params, Body: body}
		return &ast.Define{DefinePos: d.pos(), Name: name, Value: fn}, nil
	}
	if err := p.arity(d, 2, 2); err != nil {
		return nil, err
	}
	name, err := p.symbol(target, "definition name")
	if err != nil {
		return nil, err
	}
	v, err := p.analyze(d.items[2])
	if err != nil {
		return nil, err
	}
	return &ast.Define{DefinePos: d.pos(), Name: name, Value: v}, nil
}

func (p *Parser) parseConst(d *datum) (ast.Node, error) {
	if err := p.arity(d, 2, 2); err != nil {
		return nil, err
	}
	name, err := p.symbol(d.items[1], "constant name")
	if err != nil {
		return nil, err
	}
	v, err := p.analyze(d.items[2])
	if err != nil {
		return nil, err
	}
	return &ast.Const{ConstPos: d.pos(), Name: name, Value: v}, nil
}

func (p *Parser) parseLambda(d *datum) (ast.Node, error) {
	if err := p.arity(d, 1, -1); err != nil {
		return nil, err
	}
	params, err := p.params(d.items[1])
	if err != nil {
		return nil, err
	}
	body, err := p.analyzeAll(d.items[2:])
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{LambdaPos: d.pos(), Params: params, Body: body}, nil
}

// parseLet parses (let ((name value) ...) body...).
func (p *Parser) parseLet(d *datum) (ast.Node, error) {
	if err := p.arity(d, 1, -1); err != nil {
		return nil, err
	}
	list := d.items[1]
	if !list.list {
		return nil, p.failAt(list, errors.E1001, "expected binding list, found %s", describe(list))
	}
	bindings := make([]ast.Binding, 0, len(list.items))
	for _, item := range list.items {
		if !item.list || len(item.items) != 2 {
			return nil, p.failAt(item, errors.E1003, "let binding must have the form (name value)")
		}
		name, err := p.symbol(item.items[0], "binding name")
		if err != nil {
			return nil, err
		}
		v, err := p.analyze(item.items[1])
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, ast.Binding{Name: name, NamePos: item.items[0].pos(), Value: v})
	}
	body, err := p.analyzeAll(d.items[2:])
	if err != nil {
		return nil, err
	}
	return &ast.Let{LetPos: d.pos(), Bindings: bindings, Body: body}, nil
}

func (p *Parser) parseDo(d *datum) (ast.Node, error) {
	body, err := p.analyzeAll(d.items[1:])
	if err != nil {
		return nil, err
	}
	return &ast.Do{DoPos: d.pos(), Body: body}, nil
}

func (p *Parser) parseIf(d *datum) (ast.Node, error) {
	if err := p.arity(d, 2, 3); err != nil {
		return nil, err
	}
	parts, err := p.analyzeAll(d.items[1:])
	if err != nil {
		return nil, err
	}
	node := &ast.If{IfPos: d.pos(), Cond: parts[0], Then: parts[1]}
	if len(parts) == 3 {
		node.Else = parts[2]
	}
	return node, nil
}

func (p *Parser) parseAnd(d *datum) (ast.Node, error) {
	operands, err := p.analyzeAll(d.items[1:])
	if err != nil {
		return nil, err
	}
	return &ast.And{AndPos: d.pos(), Operands: operands}, nil
}

func (p *Parser) parseOr(d *datum) (ast.Node, error) {
	operands, err := p.analyzeAll(d.items[1:])
	if err != nil {
		return nil, err
	}
	return &ast.Or{OrPos: d.pos(), Operands: operands}, nil
}

// parseApply parses (apply fn args... list). The compiler checks that the
// list argument is present.
func (p *Parser) parseApply(d *datum) (ast.Node, error) {
	if err := p.arity(d, 1, -1); err != nil {
		return nil, err
	}
	fn, err := p.analyze(d.items[1])
	if err != nil {
		return nil, err
	}
	args, err := p.analyzeAll(d.items[2:])
	if err != nil {
		return nil, err
	}
	return &ast.Apply{ApplyPos: d.pos(), Fn: fn, Args: args}, nil
}
