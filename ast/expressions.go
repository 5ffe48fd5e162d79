package ast

import (
	"strings"

	"github.com/deepnoodle-ai/kestrel/token"
	"github.com/deepnoodle-ai/kestrel/value"
)

// Literal is a self-evaluating value such as 1, "text", true or ().
type Literal struct {
	ValuePos token.Position
	Value    value.Value
}

func (x *Literal) node()               {}
func (x *Literal) Pos() token.Position { return x.ValuePos }
func (x *Literal) String() string      { return x.Value.String() }

// Ident is a reference to a name.
type Ident struct {
	NamePos token.Position
	Name    string
}

func (x *Ident) node()               {}
func (x *Ident) Pos() token.Position { return x.NamePos }
func (x *Ident) String() string      { return x.Name }

// Call is a function application (fn args...).
type Call struct {
	Lparen token.Position
	Fn     Node
	Args   []Node
}

func (x *Call) node()               {}
func (x *Call) Pos() token.Position { return x.Lparen }
func (x *Call) String() string      { return form(x.Fn.String(), joinNodes(x.Args)) }

// If is a conditional. Else is nil when the alternative was omitted, in which
// case the expression evaluates to unit when the condition is false.
type If struct {
	IfPos token.Position
	Cond  Node
	Then  Node
	Else  Node
}

func (x *If) node()               {}
func (x *If) Pos() token.Position { return x.IfPos }

func (x *If) String() string {
	if x.Else == nil {
		return form("if", x.Cond.String(), x.Then.String())
	}
	return form("if", x.Cond.String(), x.Then.String(), x.Else.String())
}

// Lambda is a function expression. Name is set when the function is
// introduced by define, which allows the body to call itself directly.
type Lambda struct {
	LambdaPos token.Position
	Name      string
	Params    []string
	Body      []Node
}

func (x *Lambda) node()               {}
func (x *Lambda) Pos() token.Position { return x.LambdaPos }

func (x *Lambda) String() string {
	params := "(" + strings.Join(x.Params, " ") + ")"
	return form("lambda", params, joinNodes(x.Body))
}

// Define introduces a global definition. It is only valid at top level.
type Define struct {
	DefinePos token.Position
	Name      string
	Value     Node
}

func (x *Define) node()               {}
func (x *Define) Pos() token.Position { return x.DefinePos }

func (x *Define) String() string {
	if fn, ok := x.Value.(*Lambda); ok && fn.Name == x.Name {
		head := "(" + strings.Join(append([]string{x.Name}, fn.Params...), " ") + ")"
		return form("define", head, joinNodes(fn.Body))
	}
	return form("define", x.Name, x.Value.String())
}

// Const introduces a compile-time constant. Its value must fold to a literal.
// It is only valid at top level.
type Const struct {
	ConstPos token.Position
	Name     string
	Value    Node
}

func (x *Const) node()               {}
func (x *Const) Pos() token.Position { return x.ConstPos }
func (x *Const) String() string      { return form("const", x.Name, x.Value.String()) }

// Let binds names to values for the duration of its body. All values are
// evaluated before any name is bound.
type Let struct {
	LetPos   token.Position
	Bindings []Binding
	Body     []Node
}

func (x *Let) node()               {}
func (x *Let) Pos() token.Position { return x.LetPos }

func (x *Let) String() string {
	bindings := make([]string, len(x.Bindings))
	for i, b := range x.Bindings {
		bindings[i] = "(" + b.Name + " " + b.Value.String() + ")"
	}
	return form("let", "("+strings.Join(bindings, " ")+")", joinNodes(x.Body))
}

// Do evaluates its expressions in order and yields the last value.
type Do struct {
	DoPos token.Position
	Body  []Node
}

func (x *Do) node()               {}
func (x *Do) Pos() token.Position { return x.DoPos }
func (x *Do) String() string      { return form("do", joinNodes(x.Body)) }

// And yields the first false operand, or the last operand.
type And struct {
	AndPos   token.Position
	Operands []Node
}

func (x *And) node()               {}
func (x *And) Pos() token.Position { return x.AndPos }
func (x *And) String() string      { return form("and", joinNodes(x.Operands)) }

// Or yields the first true operand, or the last operand.
type Or struct {
	OrPos    token.Position
	Operands []Node
}

func (x *Or) node()               {}
func (x *Or) Pos() token.Position { return x.OrPos }
func (x *Or) String() string      { return form("or", joinNodes(x.Operands)) }

// Apply calls Fn with the leading Args followed by the elements of the list
// given as the last argument.
type Apply struct {
	ApplyPos token.Position
	Fn       Node
	Args     []Node
}

func (x *Apply) node()               {}
func (x *Apply) Pos() token.Position { return x.ApplyPos }
func (x *Apply) String() string      { return form("apply", x.Fn.String(), joinNodes(x.Args)) }
