package compiler

import (
	"sort"

	"github.com/deepnoodle-ai/kestrel/value"
)

// SymbolKind distinguishes the two kinds of top-level names.
type SymbolKind int

const (
	// DefinedSymbol is a name introduced by define. References load it by
	// name at run time.
	DefinedSymbol SymbolKind = iota + 1

	// ConstantSymbol is a name introduced by const. References are replaced
	// by its value at compile time.
	ConstantSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case DefinedSymbol:
		return "definition"
	case ConstantSymbol:
		return "constant"
	default:
		return "unknown"
	}
}

// Symbol describes one top-level name known to the compiler.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Value value.Value // Set for constants
	Arity int         // Parameter count of a defined function, or -1
}

// Env is the compile-time global environment: every top-level name that
// earlier forms introduced. An Env is immutable. Compiling a top-level form
// returns a new Env and leaves its input untouched, so a failed compile
// never leaves partial state behind and independent compiles may share a
// base Env across goroutines.
type Env struct {
	globals map[string]Symbol
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{globals: map[string]Symbol{}}
}

// Lookup returns the symbol with the given name.
func (e *Env) Lookup(name string) (Symbol, bool) {
	if e == nil {
		return Symbol{}, false
	}
	g, ok := e.globals[name]
	return g, ok
}

// Len returns the number of symbols.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.globals)
}

// Names returns the sorted names of all symbols.
func (e *Env) Names() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.globals))
	for name := range e.globals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithConstant returns a copy of the environment with an added constant.
// Hosts use this to predeclare constants; the compiler uses it for const.
func (e *Env) WithConstant(name string, v value.Value) *Env {
	return e.with(Symbol{Name: name, Kind: ConstantSymbol, Value: v, Arity: -1})
}

// WithDefinition returns a copy of the environment with an added definition.
// Arity is the parameter count of a defined function, or -1 when the
// definition is not known to be a function.
func (e *Env) WithDefinition(name string, arity int) *Env {
	return e.with(Symbol{Name: name, Kind: DefinedSymbol, Arity: arity})
}

func (e *Env) with(g Symbol) *Env {
	globals := make(map[string]Symbol, e.Len()+1)
	if e != nil {
		for k, v := range e.globals {
			globals[k] = v
		}
	}
	globals[g.Name] = g
	return &Env{globals: globals}
}
