package ast

import "iter"

// Visitor defines the interface for AST traversal. If Visit returns nil,
// children of the node are not visited. Otherwise, the returned Visitor
// is used to visit children.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. It starts by calling
// v.Visit(node); if the returned visitor w is not nil, Walk is invoked
// recursively with visitor w for each of the non-nil children of node.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	for child := range Children(node) {
		Walk(v, child)
	}
}

// Children yields the direct children of a node in source order.
func Children(node Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		var nodes []Node
		switch n := node.(type) {
		case *Call:
			nodes = append([]Node{n.Fn}, n.Args...)
		case *If:
			nodes = []Node{n.Cond, n.Then}
			if n.Else != nil {
				nodes = append(nodes, n.Else)
			}
		case *Lambda:
			nodes = n.Body
		case *Define:
			nodes = []Node{n.Value}
		case *Const:
			nodes = []Node{n.Value}
		case *Let:
			for _, b := range n.Bindings {
				nodes = append(nodes, b.Value)
			}
			nodes = append(nodes, n.Body...)
		case *Do:
			nodes = n.Body
		case *And:
			nodes = n.Operands
		case *Or:
			nodes = n.Operands
		case *Apply:
			nodes = append([]Node{n.Fn}, n.Args...)
		}
		for _, child := range nodes {
			if !yield(child) {
				return
			}
		}
	}
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses an AST in depth-first order, calling f for each node.
// Children are visited only when f returns true.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}
