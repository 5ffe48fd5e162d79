package compiler

import (
	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/value"
)

// ResolutionKind is the kind of binding an identifier resolves to.
type ResolutionKind int

const (
	Unbound ResolutionKind = iota
	Local
	Self
	Constant
	Builtin
	Global
)

func (k ResolutionKind) String() string {
	switch k {
	case Local:
		return "local"
	case Self:
		return "self"
	case Constant:
		return "constant"
	case Builtin:
		return "builtin"
	case Global:
		return "global"
	default:
		return "unbound"
	}
}

// Resolution describes what an identifier refers to at one point in the
// source.
type Resolution struct {
	Kind    ResolutionKind
	Name    string
	Slot    int              // Local
	Value   value.Value      // Constant
	Builtin builtins.Builtin // Builtin
}

// scope maps names to frame slots.
type scope map[string]int

// funcState tracks one function while its body is being lowered.
type funcState struct {
	parent *funcState

	// Name the body may use to call itself; empty for anonymous functions
	// and top-level code.
	name     string
	params   int
	captures []string

	scopes []scope

	// Current operand stack depth. The next bound name takes this slot.
	depth int

	slotNames []string
	code      *code
}

func newFuncState(parent *funcState, name string, params, captures []string) *funcState {
	fs := &funcState{
		parent:   parent,
		name:     name,
		params:   len(params),
		captures: captures,
		code:     newCode(),
	}
	base := scope{}
	for _, p := range params {
		base[p] = fs.depth
		fs.slotNames = append(fs.slotNames, p)
		fs.depth++
	}
	for _, c := range captures {
		base[c] = fs.depth
		fs.slotNames = append(fs.slotNames, c)
		fs.depth++
	}
	fs.scopes = []scope{base}
	return fs
}

// isTopLevel reports whether this is the code of a top-level form rather
// than a function body.
func (fs *funcState) isTopLevel() bool {
	return fs.parent == nil
}

// lookupLocal searches the function's scopes, innermost first.
func (fs *funcState) lookupLocal(name string) (int, bool) {
	for i := len(fs.scopes) - 1; i >= 0; i-- {
		if slot, ok := fs.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (fs *funcState) enterScope() {
	fs.scopes = append(fs.scopes, scope{})
}

func (fs *funcState) leaveScope() {
	fs.scopes = fs.scopes[:len(fs.scopes)-1]
}

// bind binds name in the innermost scope to the given slot.
func (fs *funcState) bind(name string, slot int) {
	fs.scopes[len(fs.scopes)-1][name] = slot
	for len(fs.slotNames) <= slot {
		fs.slotNames = append(fs.slotNames, "")
	}
	if fs.slotNames[slot] == "" {
		fs.slotNames[slot] = name
	}
}

// localNames returns every name visible in the function's scopes.
func (fs *funcState) localNames() []string {
	var names []string
	for _, s := range fs.scopes {
		for name := range s {
			names = append(names, name)
		}
	}
	return names
}

// resolve finds the binding of an identifier at the current point of
// lowering. Locals shadow the function's own name, which shadows globals,
// which shadow builtins.
func (c *Compiler) resolve(name string) Resolution {
	fs := c.fn
	if slot, ok := fs.lookupLocal(name); ok {
		return Resolution{Kind: Local, Name: name, Slot: slot}
	}
	if fs.name != "" && fs.name == name {
		return Resolution{Kind: Self, Name: name}
	}
	if g, ok := c.env.Lookup(name); ok {
		if g.Kind == ConstantSymbol {
			return Resolution{Kind: Constant, Name: name, Value: g.Value}
		}
		return Resolution{Kind: Global, Name: name}
	}
	if c.globalNames[name] {
		return Resolution{Kind: Global, Name: name}
	}
	if b, ok := c.builtins.Lookup(name); ok {
		return Resolution{Kind: Builtin, Name: name, Builtin: b}
	}
	return Resolution{Kind: Unbound, Name: name}
}

// isBuiltin reports whether fn is an identifier naming the unshadowed
// builtin with the given id.
func (c *Compiler) isBuiltin(fn ast.Node, id builtins.ID) bool {
	ident, ok := fn.(*ast.Ident)
	if !ok {
		return false
	}
	res := c.resolve(ident.Name)
	return res.Kind == Builtin && res.Builtin.ID == id
}

// freeNames returns, in order of first use, the identifiers a lambda uses
// without binding them itself.
func freeNames(fn *ast.Lambda) []string {
	var out []string
	seen := map[string]bool{}
	bound := map[string]bool{}
	for _, p := range fn.Params {
		bound[p] = true
	}
	if fn.Name != "" {
		bound[fn.Name] = true
	}
	for _, node := range fn.Body {
		collectFree(node, bound, seen, &out)
	}
	return out
}

func collectFree(node ast.Node, bound, seen map[string]bool, out *[]string) {
	ast.Inspect(node, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			if !bound[n.Name] && !seen[n.Name] {
				seen[n.Name] = true
				*out = append(*out, n.Name)
			}
		case *ast.Let:
			for _, b := range n.Bindings {
				collectFree(b.Value, bound, seen, out)
			}
			inner := extend(bound, nil)
			for _, b := range n.Bindings {
				inner[b.Name] = true
			}
			for _, body := range n.Body {
				collectFree(body, inner, seen, out)
			}
			return false
		case *ast.Lambda:
			inner := extend(bound, n.Params)
			if n.Name != "" {
				inner[n.Name] = true
			}
			for _, body := range n.Body {
				collectFree(body, inner, seen, out)
			}
			return false
		}
		return true
	})
}

func extend(bound map[string]bool, names []string) map[string]bool {
	out := make(map[string]bool, len(bound)+len(names))
	for k := range bound {
		out[k] = true
	}
	for _, name := range names {
		out[name] = true
	}
	return out
}
