// Package ast defines the syntax tree consumed by the Kestrel compiler.
//
// The node set is closed: every node type lives in this package and
// implements the unexported node method, so the compiler can lower a tree
// with a single exhaustive type switch.
package ast

import (
	"strings"

	"github.com/deepnoodle-ai/kestrel/token"
)

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// String returns a human friendly representation of the Node, close to
	// the source text it was read from.
	String() string

	node()
}

// Binding is a single name/value pair of a let form.
type Binding struct {
	Name    string
	NamePos token.Position
	Value   Node
}

func joinNodes(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, " ")
}

func form(head string, rest ...string) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(head)
	for _, r := range rest {
		if r == "" {
			continue
		}
		b.WriteString(" ")
		b.WriteString(r)
	}
	b.WriteString(")")
	return b.String()
}
